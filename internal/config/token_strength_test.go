package config

import (
	"strings"
	"testing"
)

func TestTokenWarning(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		warns    bool
		contains string
	}{
		{name: "empty_token", token: "", warns: true, contains: "disabled"},
		{name: "common_password", token: "password", warns: true, contains: "weak"},
		{name: "all_same", token: "aaaaaaaaaaaa", warns: true, contains: "weak"},
		{name: "simple_sequence", token: "1234567890", warns: true, contains: "weak"},
		{name: "short_mixed", token: "Ab1!", warns: true, contains: "weak"},
		{name: "long_hex", token: "a9f73d18e5249b6a35f7419d11c603e2", warns: false},
		{name: "mixed_strong", token: "Upsrs-2026-Push!Token", warns: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warning, got := TokenWarning(tt.token)
			if got != tt.warns {
				t.Fatalf("TokenWarning(%q) = %v, want %v", tt.token, got, tt.warns)
			}
			if tt.warns && !strings.Contains(warning, tt.contains) {
				t.Fatalf("warning %q does not mention %q", warning, tt.contains)
			}
			if !tt.warns && warning != "" {
				t.Fatalf("expected no warning text, got %q", warning)
			}
		})
	}
}
