// Package router defines how HTTP routes are registered and which
// middleware guards each group.
package router

import (
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/ipelms/ipelms/internal/config"
	"github.com/ipelms/ipelms/internal/handler"
	"github.com/ipelms/ipelms/internal/middleware"
	"github.com/ipelms/ipelms/internal/repository"
	"github.com/ipelms/ipelms/internal/session"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Cfg      config.Config
	RateCfg  config.RateLimitConfig
	Sessions session.Store
	Users    *repository.UserRepo
	Limiter  *middleware.WindowStore
	Index    *handler.IndexHandler
	Auth     *handler.AuthHandler
	Course   *handler.CourseHandler
	Lesson   *handler.LessonHandler
	Notice   *handler.NoticeHandler
	Assign   *handler.AssignmentHandler
}

// Register wires the middleware chain and all routes onto e. The order
// matters: the access log sits outermost so it sees the final status of
// every request, the session resolver runs before CSRF so the token check
// always has a session to compare against, and RequireAuth guards only
// the groups that need a signed-in user.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.AccessLog())
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(strconv.FormatInt(d.Cfg.MaxUploadBytes, 10) + "B"))
	e.Use(middleware.Resolve(d.Sessions, d.Users))
	e.Use(middleware.CSRF(d.Sessions))

	limited := func(name string) echo.MiddlewareFunc {
		return middleware.RateLimit(d.Limiter, d.RateCfg, name)
	}

	// Public pages.
	e.GET("/", d.Index.Index)
	e.GET("/healthz", handler.Health(d.Cfg))
	e.GET("/courses", d.Course.List)
	e.GET("/courses/:course_id", d.Course.Detail)

	// Account endpoints. The form posts that guess at credentials or mint
	// tokens are rate limited per client address.
	a := e.Group("/auth")
	a.GET("/register", d.Auth.RegisterForm)
	a.POST("/register", d.Auth.Register, limited("register"))
	a.GET("/login", d.Auth.LoginForm)
	a.POST("/login", d.Auth.Login, limited("login"))
	a.POST("/logout", d.Auth.Logout)
	a.GET("/reset", d.Auth.ResetRequestForm)
	a.POST("/reset", d.Auth.ResetRequest, limited("reset"))
	a.GET("/reset/confirm", d.Auth.ResetConfirmForm)
	a.POST("/reset/confirm", d.Auth.ResetConfirm, limited("reset"))

	// Everything below needs a signed-in user.
	p := e.Group("", middleware.RequireAuth(d.Sessions))

	p.GET("/courses/new", d.Course.NewForm)
	p.POST("/courses/new", d.Course.Create)
	p.POST("/courses/:course_id/join", d.Course.Join)
	p.POST("/courses/:course_id/leave", d.Course.Leave)
	p.GET("/courses/:course_id/grades", d.Assign.Grades)

	p.GET("/lessons/new/:course_id", d.Lesson.NewForm)
	p.POST("/lessons/new/:course_id", d.Lesson.Create, limited("upload"))
	p.GET("/lessons/:lesson_id", d.Lesson.Detail)
	p.GET("/lessons/:lesson_id/edit", d.Lesson.EditForm)
	p.POST("/lessons/:lesson_id/edit", d.Lesson.Edit, limited("upload"))
	p.POST("/lessons/:lesson_id/delete", d.Lesson.Delete)
	p.GET("/lessons/:lesson_id/download", d.Lesson.Download)

	p.GET("/notices/new/:course_id", d.Notice.NewForm)
	p.POST("/notices/new/:course_id", d.Notice.Create)
	p.GET("/notices/:notice_id", d.Notice.Detail)

	p.GET("/assignments/new/:course_id", d.Assign.NewForm)
	p.POST("/assignments/new/:course_id", d.Assign.Create)
	p.GET("/assignments/:assignment_id", d.Assign.Detail)
	p.POST("/assignments/:assignment_id/submit", d.Assign.Submit, limited("upload"))
	p.POST("/submissions/:submission_id/grade", d.Assign.Grade)
	p.GET("/submissions/:submission_id/download", d.Assign.DownloadSubmission)
}
