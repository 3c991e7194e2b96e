package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipelms/ipelms/internal/session"
)

func csrfSetup(t *testing.T) (session.Store, string, string) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	sid, err := store.Create(context.Background())
	require.NoError(t, err)
	tok, err := store.EnsureCSRF(context.Background(), sid)
	require.NoError(t, err)
	return store, sid, tok
}

func runCSRF(store session.Store, sid string, req *http.Request) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if sid != "" {
		SetSessionID(c, sid)
	}
	h := CSRF(store)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return rec, h(c)
}

func TestCSRFAcceptsFormToken(t *testing.T) {
	store, sid, tok := csrfSetup(t)

	form := url.Values{"csrf_token": {tok}}
	req := httptest.NewRequest(http.MethodPost, "/courses/new", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	rec, err := runCSRF(store, sid, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFAcceptsHeaderToken(t *testing.T) {
	store, sid, tok := csrfSetup(t)

	req := httptest.NewRequest(http.MethodPost, "/courses/new", nil)
	req.Header.Set(HeaderCSRF, tok)

	rec, err := runCSRF(store, sid, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFRejects(t *testing.T) {
	store, sid, tok := csrfSetup(t)

	tests := []struct {
		name  string
		sid   string
		token string
	}{
		{name: "missing token", sid: sid},
		{name: "wrong token", sid: sid, token: "forged"},
		{name: "token for another session", sid: sid, token: tok + "x"},
		{name: "no session", sid: "", token: tok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.token != "" {
				form.Set("csrf_token", tt.token)
			}
			req := httptest.NewRequest(http.MethodPost, "/courses/new", strings.NewReader(form.Encode()))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

			_, err := runCSRF(store, tt.sid, req)
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		})
	}
}

func TestCSRFSkipsReadOnlyVerbs(t *testing.T) {
	store, sid, _ := csrfSetup(t)

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		req := httptest.NewRequest(method, "/courses", nil)
		rec, err := runCSRF(store, sid, req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestCSRFRejectsBeforeTokenIssued(t *testing.T) {
	// A session that never rendered a form has no stored token yet, so any
	// supplied value is rejected.
	store := session.NewMemoryStore(time.Hour)
	sid, err := store.Create(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/courses/new", nil)
	req.Header.Set(HeaderCSRF, "anything")

	_, err = runCSRF(store, sid, req)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
