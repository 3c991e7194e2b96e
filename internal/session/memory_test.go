package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	id, err := s.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, data.UserID)
	assert.Empty(t, data.CSRFToken)

	require.NoError(t, s.BindUser(ctx, id, 42))
	data, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), data.UserID)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNoSession)

	// deleting again is a no-op
	assert.NoError(t, s.Delete(ctx, id))
}

func TestMemoryStoreUnknownID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, s.BindUser(ctx, "nope", 1), ErrNoSession)
	_, err = s.EnsureCSRF(ctx, "nope")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestEnsureCSRFStable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	id, err := s.Create(ctx)
	require.NoError(t, err)

	first, err := s.EnsureCSRF(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := s.EnsureCSRF(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// a different session gets a different token
	other, err := s.Create(ctx)
	require.NoError(t, err)
	tok, err := s.EnsureCSRF(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, first, tok)
}

func TestFlashesDrainOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	id, err := s.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, s.AddFlash(ctx, id, Flash{Level: "success", Message: "saved"}))
	require.NoError(t, s.AddFlash(ctx, id, Flash{Level: "warning", Message: "careful"}))

	flashes, err := s.PopFlashes(ctx, id)
	require.NoError(t, err)
	require.Len(t, flashes, 2)
	assert.Equal(t, "saved", flashes[0].Message)
	assert.Equal(t, "careful", flashes[1].Message)

	flashes, err = s.PopFlashes(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, flashes)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	base := time.Now()
	s.now = func() time.Time { return base }

	id, err := s.Create(ctx)
	require.NoError(t, err)

	// just inside the window: still alive, and the read slides expiry
	s.now = func() time.Time { return base.Add(59 * time.Minute) }
	_, err = s.Get(ctx, id)
	require.NoError(t, err)

	// another hour from the sliding read is still fine
	s.now = func() time.Time { return base.Add(118 * time.Minute) }
	_, err = s.Get(ctx, id)
	require.NoError(t, err)

	// well past the idle window
	s.now = func() time.Time { return base.Add(4 * time.Hour) }
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNoSession)
}
