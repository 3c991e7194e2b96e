package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetTokenRoundTrip(t *testing.T) {
	tok, err := NewResetToken("secret", 42, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	id, err := ParseResetToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestResetTokenRejections(t *testing.T) {
	good, err := NewResetToken("secret", 42, time.Hour)
	require.NoError(t, err)

	expired, err := NewResetToken("secret", 42, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{name: "empty token", secret: "secret", token: ""},
		{name: "garbage token", secret: "secret", token: "not.a.jwt"},
		{name: "wrong secret", secret: "other", token: good},
		{name: "expired", secret: "secret", token: expired},
		{name: "tampered", secret: "secret", token: good + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResetToken(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrBadResetToken)
		})
	}
}
