package middleware

import (
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
)

// Input validation for uploads and URL parameters

var siteIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// allowedImageTypes are the content types the vision model accepts.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateSiteID validates the site identifier from the URL
func ValidateSiteID(site string) error {
	if site == "" {
		return fmt.Errorf("site ID cannot be empty")
	}
	if !siteIDPattern.MatchString(site) {
		return fmt.Errorf("invalid site ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateImageUpload checks the uploaded bytes look like a supported image.
// Detection uses content sniffing, not the client-supplied extension.
func ValidateImageUpload(filename string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("uploaded file is empty")
	}
	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		return fmt.Errorf("unsupported content type %s (allowed: jpeg, png, gif, webp)", contentType)
	}
	if filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp", "":
		default:
			return fmt.Errorf("unsupported file extension %s", ext)
		}
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
