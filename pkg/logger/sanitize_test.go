package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"standard address", "user@school.edu", "u***@******.edu"},
		{"single char user", "u@school.edu", "u@******.edu"},
		{"subdomain", "user@mail.school.edu", "u***@****.******.edu"},
		{"no at sign", "not-an-email", "[invalid-email]"},
		{"two at signs", "a@b@c.com", "[invalid-email]"},
		{"empty", "", "[invalid-email]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizedEmail(tt.email))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     bool
	}{
		{"empty", "", false},
		{"harmless", "page=2&sort=asc", false},
		{"one-time code", "code=123456", true},
		{"token", "token=abc", true},
		{"access token", "ACCESS_TOKEN=abc", true},
		{"api key", "apikey=xyz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeQueryString(tt.rawQuery))
		})
	}
}
