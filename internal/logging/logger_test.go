package logging

import "testing"

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"empty", "", ""},
		{"short", "abc", "***"},
		{"boundary", "12345678", "***"},
		{"long", "MTA0ODM1OTg3.secret.tail", "MTA***ail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskToken(tt.in); got != tt.expected {
				t.Errorf("MaskToken(%q) = %q, want %q", tt.in, got, tt.expected)
			}
		})
	}
}
