package utils_test

import (
	"errors"
	"testing"

	"github.com/raysh454/pageshot/internal/utils"
)

func TestParseAbsoluteURL_Valid(t *testing.T) {
	t.Parallel()
	valid := []string{
		"https://example.com",
		"http://example.com/path?q=1#frag",
		"HTTPS://Example.COM:8443/x",
		"http://localhost:3001/",
		"http://127.0.0.1:8080/page",
		"http://[::1]/",
		"https://例え.テスト/a",
		"https://sub.domain.example.co.uk",
	}
	for _, raw := range valid {
		if _, err := utils.ParseAbsoluteURL(raw); err != nil {
			t.Errorf("ParseAbsoluteURL(%q) unexpected error: %v", raw, err)
		}
	}
}

func TestParseAbsoluteURL_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want error
	}{
		{in: "", want: utils.ErrEmptyURL},
		{in: "   ", want: utils.ErrEmptyURL},
		{in: "not-a-url", want: utils.ErrNotAbsolute},
		{in: "/relative/path", want: utils.ErrNotAbsolute},
		{in: "ftp://example.com/file", want: utils.ErrUnsupportedScheme},
		{in: "javascript:alert(1)", want: utils.ErrUnsupportedScheme},
		{in: "https://", want: utils.ErrMissingHost},
		{in: "http://example", want: utils.ErrInvalidHost},
		{in: "http://exa_mple.com", want: utils.ErrInvalidHost},
		{in: "http://256.1.1.1", want: utils.ErrInvalidHost},
		{in: "http://example.com:99999", want: utils.ErrInvalidHost},
		{in: "http://example..com", want: utils.ErrInvalidHost},
	}
	for _, tt := range tests {
		_, err := utils.ParseAbsoluteURL(tt.in)
		if err == nil {
			t.Errorf("ParseAbsoluteURL(%q) expected error", tt.in)
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("ParseAbsoluteURL(%q) = %v, want %v", tt.in, err, tt.want)
		}
	}
}

func TestParseAbsoluteURL_Whitespace(t *testing.T) {
	t.Parallel()
	if utils.IsAbsoluteURL("https://exa mple.com") {
		t.Error("expected URL with inner whitespace to be rejected")
	}
}
