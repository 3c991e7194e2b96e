package handler

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ipelms/ipelms/internal/auth"
	"github.com/ipelms/ipelms/internal/config"
	mw "github.com/ipelms/ipelms/internal/middleware"
	"github.com/ipelms/ipelms/internal/repository"
	"github.com/ipelms/ipelms/internal/utils"
)

var emailRe = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

const resetTokenTTL = 30 * time.Minute

// AuthHandler bundles dependencies for registration, login, logout and
// password reset.
type AuthHandler struct {
	renderer
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(r renderer, cfg config.Config, users *repository.UserRepo) *AuthHandler {
	return &AuthHandler{renderer: r, Cfg: cfg, Users: users}
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(c echo.Context) error {
	return h.render(c, "auth/register", nil)
}

// Register creates an account. New users start with the informational
// "student" role; actual rights come from per-course edges.
func (h *AuthHandler) Register(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	password := c.FormValue("password")

	if len(name) < 2 {
		return h.flashRedirect(c, "danger", "Name is too short.", "/auth/register")
	}
	if !emailRe.MatchString(email) {
		return h.flashRedirect(c, "danger", "Invalid email address.", "/auth/register")
	}
	if len(password) < 6 {
		return h.flashRedirect(c, "danger", "Password must be at least 6 characters.", "/auth/register")
	}

	hash, err := utils.HashPassword(password, h.Cfg.BcryptCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "hashing password failed")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Users.Create(ctx, name, email, hash, "student")
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return h.flashRedirect(c, "danger", "That email is already registered.", "/auth/register")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "creating account failed")
	}
	c.Logger().Infof("new user registered: id=%d email=%s", id, email)
	return h.flashRedirect(c, "success", "Account created. Please sign in.", "/auth/login")
}

// LoginForm renders the login page, carrying the return path through.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	return h.render(c, "auth/login", pageData{"Next": c.QueryParam("next")})
}

// Login verifies credentials and establishes a fresh session bound to the
// user. The pre-login session is discarded so a fixated session id never
// becomes authenticated, and failures answer one generic message so the
// response does not reveal whether the email exists.
func (h *AuthHandler) Login(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	password := c.FormValue("password")

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil || !utils.VerifyPassword(u.PasswordHash, password) {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
		}
		return h.flashRedirect(c, "danger", "Invalid credentials.", "/auth/login")
	}

	if old := mw.SessionID(c); old != "" {
		_ = h.Sessions.Delete(ctx, old)
	}
	sid, err := h.Sessions.Create(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session store unavailable")
	}
	if err := h.Sessions.BindUser(ctx, sid, u.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session store unavailable")
	}
	mw.SetSessionCookie(c, sid)
	mw.SetSessionID(c, sid) // flash below lands on the fresh session
	c.Logger().Infof("login ok: id=%d email=%s", u.ID, u.Email)

	h.flash(c, "success", "Welcome, "+u.Name+"!")
	return c.Redirect(http.StatusSeeOther, safeNext(c.FormValue("next"), "/"))
}

// Logout clears the session. A fresh anonymous session replaces it so the
// goodbye notice has somewhere to live.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if ident := mw.CurrentIdentity(c); !ident.Anonymous() {
		c.Logger().Infof("logout: user_id=%d", ident.ID)
	}
	if sid := mw.SessionID(c); sid != "" {
		_ = h.Sessions.Delete(ctx, sid)
	}
	sid, err := h.Sessions.Create(ctx)
	if err == nil {
		mw.SetSessionCookie(c, sid)
		mw.SetSessionID(c, sid)
	}
	h.flash(c, "info", "You have signed out.")
	return c.Redirect(http.StatusSeeOther, "/")
}

// ResetRequestForm renders the forgot-password page.
func (h *AuthHandler) ResetRequestForm(c echo.Context) error {
	return h.render(c, "auth/reset_request", nil)
}

// ResetRequest issues a signed, time-limited reset token for the account,
// if it exists. The token is written to the server log; the response is
// identical either way so the endpoint cannot be used to probe for
// registered addresses.
func (h *AuthHandler) ResetRequest(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByEmail(ctx, email)
	if err == nil {
		token, terr := auth.NewResetToken(h.Cfg.SecretKey, u.ID, resetTokenTTL)
		if terr == nil {
			log.Printf("password reset requested: user_id=%d url=/auth/reset/confirm?token=%s", u.ID, token)
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "reset request failed")
	}
	return h.flashRedirect(c, "info",
		"If that address is registered, a reset link has been issued.", "/auth/login")
}

// ResetConfirmForm renders the new-password page for a token.
func (h *AuthHandler) ResetConfirmForm(c echo.Context) error {
	return h.render(c, "auth/reset_confirm", pageData{"Token": c.QueryParam("token")})
}

// ResetConfirm validates the token and sets the new password.
func (h *AuthHandler) ResetConfirm(c echo.Context) error {
	token := c.FormValue("token")
	password := c.FormValue("password")
	if len(password) < 6 {
		return h.flashRedirect(c, "danger", "Password must be at least 6 characters.",
			"/auth/reset/confirm?token="+token)
	}
	userID, err := auth.ParseResetToken(h.Cfg.SecretKey, token)
	if err != nil {
		return h.flashRedirect(c, "danger", "Invalid or expired reset link.", "/auth/reset")
	}
	hash, err := utils.HashPassword(password, h.Cfg.BcryptCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "hashing password failed")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "resetting password failed")
	}
	c.Logger().Infof("password reset completed: user_id=%d", userID)
	return h.flashRedirect(c, "success", "Password updated. Please sign in.", "/auth/login")
}
