package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  food  ", "legal aid  ", "  housing"},
			expected: []string{"food", "legal aid", "housing"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"food", "housing", "food", "legal aid", "housing"},
			expected: []string{"food", "housing", "legal aid"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"food", "", "  ", "housing"},
			expected: []string{"food", "housing"},
		},
		{
			name:     "preserves case",
			input:    []string{"Food", "food", "FOOD"},
			expected: []string{"Food", "food", "FOOD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeFold(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "lowercases and dedupes",
			input:    []string{"English", "english", "ENGLISH"},
			expected: []string{"english"},
		},
		{
			name:     "trims, lowercases, and dedupes",
			input:    []string{"  Urdu ", "arabic", "URDU", "Arabic"},
			expected: []string{"urdu", "arabic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeFold(tt.input))
		})
	}
}
