package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckOrigin(t *testing.T) {
	cases := []struct {
		origin  string
		allowed bool
	}{
		{"", true},
		{"null", true},
		{"file://", true},
		{"file:///home/user/app/index.html", true},
		{"app://companion", true},
		{"http://localhost:8765", true},
		{"http://127.0.0.1:8765", true},
		{"http://[::1]:8765", true},
		{"https://example.com", false},
		{"http://192.168.1.50:8765", false},
		{"http://evil.com", false},
		{"://bad", false},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		assert.Equal(t, tc.allowed, checkOrigin(r), "origin %q", tc.origin)
	}
}
