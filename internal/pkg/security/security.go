// Package security provides input validation, log sanitization, and
// sensitive data masking for the retrieval API surface.
package security

import (
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation limits.
const (
	// Query limits.
	MinQueryLength = 1
	MaxQueryLength = 10000

	// Result limits.
	MinMaxResults = 1
	MaxMaxResults = 100
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field      string
	Value      interface{}
	Constraint string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for %s: %s (got: %v)", e.Field, e.Constraint, e.Value)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Constraint)
}

// ValidateQuery validates a retrieval query string.
// Requirements: required, 1-10000 chars, valid UTF-8.
func ValidateQuery(query string) error {
	if query == "" {
		return &ValidationError{
			Field:      "query",
			Constraint: "required",
		}
	}

	if !utf8.ValidString(query) {
		return &ValidationError{
			Field:      "query",
			Constraint: "must be valid UTF-8",
		}
	}

	length := utf8.RuneCountInString(query)
	if length > MaxQueryLength {
		return &ValidationError{
			Field:      "query",
			Value:      length,
			Constraint: fmt.Sprintf("maximum length is %d characters", MaxQueryLength),
		}
	}

	return nil
}

// SanitizeQuery removes control characters from a query while preserving
// normal whitespace.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, query)

	return strings.TrimSpace(sanitized)
}

// SanitizeForLog sanitizes a string for safe logging.
// It prevents log injection by escaping newlines, removing other control
// characters, and truncating to a maximum length.
func SanitizeForLog(s string) string {
	return SanitizeForLogWithLength(s, 200)
}

// SanitizeForLogWithLength sanitizes a string for logging with a custom max length.
func SanitizeForLogWithLength(s string, maxLen int) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(minInt(len(s), maxLen+10))

	count := 0
	for _, r := range s {
		if count >= maxLen {
			b.WriteString("...")
			break
		}

		switch r {
		case '\n':
			b.WriteString("\\n")
			count += 2
		case '\r':
			b.WriteString("\\r")
			count += 2
		case '\t':
			b.WriteString("\\t")
			count += 2
		default:
			if !unicode.IsControl(r) || r == ' ' {
				b.WriteRune(r)
				count++
			}
		}
	}

	return b.String()
}

// sensitiveHeaders are HTTP header names that contain sensitive data.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"x-api-key":           true,
	"api-key":             true,
	"x-auth-token":        true,
	"cookie":              true,
	"set-cookie":          true,
	"proxy-authorization": true,
}

// sensitiveFieldPatterns are substrings in key names that indicate sensitive data.
var sensitiveFieldPatterns = []string{
	"password",
	"secret",
	"token",
	"key",
	"credential",
	"auth",
}

// MaskSensitiveHeaders creates a copy of headers with sensitive values masked.
// Safe to use for logging.
func MaskSensitiveHeaders(headers http.Header) http.Header {
	if headers == nil {
		return nil
	}

	masked := make(http.Header, len(headers))
	for key, values := range headers {
		if isSensitiveHeader(key) {
			masked[key] = []string{"[REDACTED]"}
		} else {
			masked[key] = append([]string(nil), values...)
		}
	}
	return masked
}

// MaskSensitiveMap masks sensitive values in a string map. Useful for
// logging request context or provider credentials.
func MaskSensitiveMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}

	masked := make(map[string]string, len(m))
	for key, value := range m {
		if isSensitiveKey(key) {
			masked[key] = "[REDACTED]"
		} else {
			masked[key] = value
		}
	}
	return masked
}

func isSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	if sensitiveHeaders[lower] {
		return true
	}
	return isSensitiveKey(lower)
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range sensitiveFieldPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
