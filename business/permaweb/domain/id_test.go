package domain

import (
	"strings"
	"testing"
)

func TestValidTransactionID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", strings.Repeat("a", 43), true},
		{"valid_mixed", "abcDEF123-_" + strings.Repeat("x", 32), true},
		{"too_short", strings.Repeat("a", 42), false},
		{"too_long", strings.Repeat("a", 44), false},
		{"empty", "", false},
		{"standard_base64_chars", strings.Repeat("a", 42) + "+", false},
		{"padded", strings.Repeat("a", 42) + "=", false},
		{"whitespace", strings.Repeat("a", 42) + " ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidTransactionID(tt.id); got != tt.want {
				t.Errorf("ValidTransactionID(%q) = %v, want %v", tt.id, got, tt.want)
			}
			if got := ValidAddress(tt.id); got != tt.want {
				t.Errorf("ValidAddress(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
