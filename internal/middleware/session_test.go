package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipelms/ipelms/internal/auth"
	"github.com/ipelms/ipelms/internal/model"
	"github.com/ipelms/ipelms/internal/repository"
	"github.com/ipelms/ipelms/internal/session"
)

// fakeUsers serves identity lookups from a fixed map.
type fakeUsers struct {
	users map[uint64]model.User
}

func (f fakeUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func TestResolveCreatesAnonymousSession(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	users := fakeUsers{}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotSID string
	h := Resolve(store, users)(func(c echo.Context) error {
		gotSID = SessionID(c)
		assert.True(t, CurrentIdentity(c).Anonymous())
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	require.NotEmpty(t, gotSID)

	// the new session id was set as an HttpOnly cookie
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Equal(t, gotSID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	// and it resolves in the store
	_, err := store.Get(context.Background(), gotSID)
	assert.NoError(t, err)
}

func TestResolveAttachesIdentity(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	users := fakeUsers{users: map[uint64]model.User{
		7: {ID: 7, Name: "Ana", Email: "ana@example.com", Role: "student"},
	}}

	sid, err := store.Create(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.BindUser(context.Background(), sid, 7))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sid})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Resolve(store, users)(func(c echo.Context) error {
		ident := CurrentIdentity(c)
		assert.Equal(t, uint64(7), ident.ID)
		assert.Equal(t, "Ana", ident.Name)
		assert.Equal(t, sid, SessionID(c))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))

	// an existing valid session is not re-issued
	assert.Empty(t, rec.Result().Cookies())
}

func TestResolveStaleUserIsAnonymous(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	users := fakeUsers{} // user 9 no longer exists

	sid, err := store.Create(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.BindUser(context.Background(), sid, 9))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sid})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Resolve(store, users)(func(c echo.Context) error {
		assert.True(t, CurrentIdentity(c).Anonymous())
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
}

func TestResolveReplacesUnknownCookie(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "expired-or-forged"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotSID string
	h := Resolve(store, fakeUsers{})(func(c echo.Context) error {
		gotSID = SessionID(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	require.NotEmpty(t, gotSID)
	assert.NotEqual(t, "expired-or-forged", gotSID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, gotSID, cookies[0].Value)
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	sid, err := store.Create(context.Background())
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/courses/new", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	SetSessionID(c, sid)

	h := RequireAuth(store)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Fcourses%2Fnew", rec.Header().Get(echo.HeaderLocation))

	flashes, err := store.PopFlashes(context.Background(), sid)
	require.NoError(t, err)
	require.Len(t, flashes, 1)
	assert.Equal(t, "warning", flashes[0].Level)
}

func TestRequireAuthPassesSignedIn(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/courses/new", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	SetIdentity(c, auth.Identity{ID: 5, Name: "Ana"})

	h := RequireAuth(store)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
