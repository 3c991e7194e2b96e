package main

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/ipelms/ipelms/internal/config"
	"github.com/ipelms/ipelms/internal/database"
	"github.com/ipelms/ipelms/internal/handler"
	"github.com/ipelms/ipelms/internal/middleware"
	"github.com/ipelms/ipelms/internal/queue"
	"github.com/ipelms/ipelms/internal/repository"
	"github.com/ipelms/ipelms/internal/router"
	"github.com/ipelms/ipelms/internal/service/eventpub"
	"github.com/ipelms/ipelms/internal/session"
	"github.com/ipelms/ipelms/internal/upload"
	"github.com/ipelms/ipelms/internal/view"
)

func main() {
	cfg := config.Load()
	rateCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Pool{
		MaxOpen:     cfg.DBMaxOpen,
		MaxIdle:     cfg.DBMaxIdle,
		MaxLifetime: cfg.DBMaxLifetime,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Sessions live in Redis when it is reachable; otherwise they fall
	// back to process memory, which is fine for a single instance.
	var sessions session.Store
	if rdb := config.NewRedisClient(); rdb != nil {
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	} else {
		log.Println("redis unavailable, using in-memory sessions")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	uploads, err := upload.NewStore(cfg.UploadRoot)
	if err != nil {
		log.Fatalf("upload store: %v", err)
	}

	// The activity consumer reconnects on its own; a startup error here
	// only means the first connection attempt failed.
	go func() {
		if err := queue.StartActivityConsumer(cfg.AMQPURL); err != nil {
			log.Printf("activity consumer: %v", err)
		}
	}()
	events := eventpub.NewPublisher(cfg.AMQPURL)

	users := repository.NewUserRepo(db)
	courses := repository.NewCourseRepo(db)
	lessons := repository.NewLessonRepo(db)
	notices := repository.NewNoticeRepo(db)
	assignments := repository.NewAssignmentRepo(db)

	templates, err := view.New("web/templates")
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = templates

	r := handler.NewRenderer(sessions, cfg.SiteName)
	router.Register(e, router.Deps{
		Cfg:      cfg,
		RateCfg:  rateCfg,
		Sessions: sessions,
		Users:    users,
		Limiter:  middleware.NewWindowStore(),
		Index:    handler.NewIndexHandler(r, courses),
		Auth:     handler.NewAuthHandler(r, cfg, users),
		Course:   handler.NewCourseHandler(r, courses, lessons, notices, assignments, events),
		Lesson:   handler.NewLessonHandler(r, courses, lessons, uploads),
		Notice:   handler.NewNoticeHandler(r, courses, notices),
		Assign:   handler.NewAssignmentHandler(r, courses, assignments, uploads, events),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
