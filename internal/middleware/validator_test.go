package middleware

import (
	"strings"
	"testing"
)

// minimal valid PNG header followed by padding, enough for content sniffing
var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 32)...)

func TestValidateSiteID(t *testing.T) {
	valid := []string{"site-a", "Site_01", "a", strings.Repeat("x", 64)}
	for _, s := range valid {
		if err := ValidateSiteID(s); err != nil {
			t.Errorf("ValidateSiteID(%q) = %v, want nil", s, err)
		}
	}

	invalid := []string{"", "site a", "site/../b", strings.Repeat("x", 65), "site!"}
	for _, s := range invalid {
		if err := ValidateSiteID(s); err == nil {
			t.Errorf("ValidateSiteID(%q) = nil, want error", s)
		}
	}
}

func TestValidateImageUpload(t *testing.T) {
	if err := ValidateImageUpload("photo.png", pngBytes); err != nil {
		t.Errorf("png upload: %v", err)
	}
	if err := ValidateImageUpload("", pngBytes); err != nil {
		t.Errorf("png upload without filename: %v", err)
	}
	if err := ValidateImageUpload("photo.png", nil); err == nil {
		t.Error("empty upload must be rejected")
	}
	if err := ValidateImageUpload("notes.txt", []byte("just text, not an image")); err == nil {
		t.Error("text upload must be rejected by content sniffing")
	}
	if err := ValidateImageUpload("photo.exe", pngBytes); err == nil {
		t.Error("image bytes with a bad extension must be rejected")
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b", "ab"},
		{"a\x01\x02b", "ab"},
		{"line1\nline2", "line1\nline2"},
		{"tab\there", "tab\there"},
	}
	for _, tt := range tests {
		if got := SanitizeString(tt.in); got != tt.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateLimitAndDays(t *testing.T) {
	if got := ValidateLimit(0); got != 20 {
		t.Errorf("ValidateLimit(0) = %d, want default 20", got)
	}
	if got := ValidateLimit(500); got != 100 {
		t.Errorf("ValidateLimit(500) = %d, want cap 100", got)
	}
	if got := ValidateLimit(30); got != 30 {
		t.Errorf("ValidateLimit(30) = %d", got)
	}
	if got := ValidateDays(-1); got != 7 {
		t.Errorf("ValidateDays(-1) = %d, want default 7", got)
	}
	if got := ValidateDays(1000); got != 365 {
		t.Errorf("ValidateDays(1000) = %d, want cap 365", got)
	}
}
