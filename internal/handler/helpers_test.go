package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeNext(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "local path", target: "/courses/3", want: "/courses/3"},
		{name: "root", target: "/", want: "/"},
		{name: "empty falls back", target: "", want: "/"},
		{name: "absolute url rejected", target: "https://evil.example", want: "/"},
		{name: "scheme-relative rejected", target: "//evil.example", want: "/"},
		{name: "relative rejected", target: "courses/3", want: "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, safeNext(tt.target, "/"))
		})
	}
}
