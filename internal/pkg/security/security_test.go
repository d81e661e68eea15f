package security

import (
	"net/http"
	"strings"
	"testing"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"valid simple", "go memory model", false},
		{"valid single char", "x", false},
		{"valid with punctuation", "what is raft consensus?", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxQueryLength+1), true},
		{"at limit", strings.Repeat("a", MaxQueryLength), false},
		{"invalid utf8", "abc\xff\xfe", true},
		{"multibyte counted as runes", strings.Repeat("é", MaxQueryLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"trims whitespace", "  hello  ", "hello"},
		{"keeps newlines and tabs", "a\nb\tc", "a\nb\tc"},
		{"strips control chars", "a\x00b\x1bc", "abc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeQuery(tt.query); got != tt.want {
				t.Errorf("SanitizeQuery(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"escapes newline", "line1\nline2", "line1\\nline2"},
		{"escapes carriage return", "a\rb", "a\\rb"},
		{"escapes tab", "a\tb", "a\\tb"},
		{"removes control chars", "a\x00b", "ab"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.input); got != tt.want {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeForLogWithLength_Truncates(t *testing.T) {
	got := SanitizeForLogWithLength(strings.Repeat("a", 50), 10)
	if got != strings.Repeat("a", 10)+"..." {
		t.Errorf("truncation result = %q", got)
	}
}

func TestMaskSensitiveHeaders(t *testing.T) {
	headers := http.Header{
		"Authorization": []string{"Bearer secret"},
		"X-Api-Key":     []string{"abc123"},
		"Content-Type":  []string{"application/json"},
	}

	masked := MaskSensitiveHeaders(headers)

	if masked.Get("Authorization") != "[REDACTED]" {
		t.Errorf("Authorization not masked: %q", masked.Get("Authorization"))
	}
	if masked.Get("X-Api-Key") != "[REDACTED]" {
		t.Errorf("X-Api-Key not masked: %q", masked.Get("X-Api-Key"))
	}
	if masked.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type altered: %q", masked.Get("Content-Type"))
	}

	// Original untouched
	if headers.Get("Authorization") != "Bearer secret" {
		t.Error("original headers were modified")
	}
}

func TestMaskSensitiveHeaders_Nil(t *testing.T) {
	if got := MaskSensitiveHeaders(nil); got != nil {
		t.Errorf("MaskSensitiveHeaders(nil) = %v, want nil", got)
	}
}

func TestMaskSensitiveMap(t *testing.T) {
	m := map[string]string{
		"brave_api_key": "abc",
		"user_password": "hunter2",
		"session":       "s1",
	}

	masked := MaskSensitiveMap(m)

	if masked["brave_api_key"] != "[REDACTED]" {
		t.Errorf("brave_api_key not masked: %q", masked["brave_api_key"])
	}
	if masked["user_password"] != "[REDACTED]" {
		t.Errorf("user_password not masked: %q", masked["user_password"])
	}
	if masked["session"] != "s1" {
		t.Errorf("session altered: %q", masked["session"])
	}
}

func TestMaskSensitiveMap_Nil(t *testing.T) {
	if got := MaskSensitiveMap(nil); got != nil {
		t.Errorf("MaskSensitiveMap(nil) = %v, want nil", got)
	}
}
