package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type partyID string

func TestDedupeIDs(t *testing.T) {
	tests := []struct {
		name     string
		input    []partyID
		expected []partyID
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []partyID{}, expected: []partyID{}},
		{name: "trims whitespace", input: []partyID{"  P1 ", "P2  "}, expected: []partyID{"P1", "P2"}},
		{name: "removes duplicates preserving order", input: []partyID{"P2", "P1", "P2", "P3", "P1"}, expected: []partyID{"P2", "P1", "P3"}},
		{name: "trimmed duplicates collapse", input: []partyID{"P1", " P1"}, expected: []partyID{"P1"}},
		{name: "removes empty ids", input: []partyID{"P1", "", "  "}, expected: []partyID{"P1"}},
		{name: "preserves case", input: []partyID{"p1", "P1"}, expected: []partyID{"p1", "P1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeIDs(tt.input))
		})
	}
}
