package analyzer

import "testing"

func TestLemmatizer_Lemma(t *testing.T) {
	l := NewLemmatizer()

	tests := []struct {
		input    string
		expected string
	}{
		{"companies", "company"},
		{"costs", "cost"},
		{"running", "run"},
		{"playing", "play"},
		{"hoped", "hope"},
		{"stopped", "stop"},
		{"models", "model"},
		{"boxes", "box"},
		{"focus", "focus"},
		{"analysis", "analysis"},
		{"grew", "grow"},
		{"was", "be"},
		{"people", "person"},
		{"revenue", "revenue"},
		{"spring", "spring"},
		{"agreed", "agree"},
		{"ai", "ai"},
		{"café", "café"},
	}

	for _, tt := range tests {
		if got := l.Lemma(tt.input); got != tt.expected {
			t.Errorf("Lemma(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
