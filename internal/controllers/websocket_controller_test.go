package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", []string{"http://localhost:5173"}, "", true},
		{"listed origin", []string{"http://localhost:5173"}, "http://localhost:5173", true},
		{"foreign origin", []string{"http://localhost:5173"}, "http://evil.example", false},
		{"wildcard", []string{"*"}, "http://evil.example", true},
		{"nothing allowed", nil, "http://localhost:5173", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed)(req))
		})
	}
}
