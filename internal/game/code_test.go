package game

import (
	"strings"
	"testing"
)

func TestNewCode_ShapeAndAlphabet(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := NewCode()
		if err != nil {
			t.Fatalf("NewCode: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("want %d chars, got %q", CodeLength, code)
		}
		for _, c := range code {
			if !strings.ContainsRune(CodeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
	}
}

func TestNewCode_RoughlyUniform(t *testing.T) {
	const trials = 20000
	counts := make(map[byte]int, len(CodeAlphabet))
	for i := 0; i < trials; i++ {
		code, err := NewCode()
		if err != nil {
			t.Fatalf("NewCode: %v", err)
		}
		for j := 0; j < len(code); j++ {
			counts[code[j]]++
		}
	}

	total := trials * CodeLength
	expected := float64(total) / float64(len(CodeAlphabet))
	for i := 0; i < len(CodeAlphabet); i++ {
		c := CodeAlphabet[i]
		got := float64(counts[c])
		// Generous band: catches systematic bias (a missing or doubled
		// symbol) without flaking on sampling noise.
		if got < expected*0.7 || got > expected*1.3 {
			t.Fatalf("symbol %q drawn %v times, expected about %v", c, got, expected)
		}
	}
}
