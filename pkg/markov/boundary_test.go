package markov

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestBetaFrequencies(t *testing.T) {
	testCases := []struct {
		name      string
		sequences [][]string
		order     int
		expected  map[State]int
	}{
		{
			name:      "Single sequence contributes one count",
			sequences: [][]string{Tokenize("the cat sat.")},
			order:     2,
			expected:  map[State]int{"the cat": 1},
		},
		{
			name: "Per-sentence accumulation",
			sequences: [][]string{
				Tokenize("the cat sat"),
				Tokenize("the cat ran"),
				Tokenize("a dog barked"),
			},
			order:    2,
			expected: map[State]int{"the cat": 2, "a dog": 1},
		},
		{
			name:      "Short sequence is left-padded with start markers",
			sequences: [][]string{Tokenize("hi")},
			order:     3,
			expected:  map[State]int{NewState([]string{SOCToken, SOCToken, "hi"}): 1},
		},
		{
			name:      "Empty sequence starts at the all-marker state",
			sequences: [][]string{{}},
			order:     2,
			expected:  map[State]int{StartState(2): 1},
		},
		{
			name:      "No sequences",
			sequences: nil,
			expected:  map[State]int{},
			order:     1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BetaFrequencies(tc.sequences, tc.order)
			if err != nil {
				t.Fatalf("BetaFrequencies() error = %v", err)
			}
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("BetaFrequencies() = %v, want %v", got, tc.expected)
			}
		})
	}

	if _, err := BetaFrequencies(nil, 0); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("BetaFrequencies(order=0) error = %v, want ErrInvalidOrder", err)
	}
}

func TestBetaProbabilities(t *testing.T) {
	freqs := map[State]int{"the cat": 3, "a dog": 1}
	probs := BetaProbabilities(freqs)
	if probs["the cat"] != 0.75 || probs["a dog"] != 0.25 {
		t.Errorf("BetaProbabilities() = %v, want the cat=0.75 a dog=0.25", probs)
	}
}

func TestOmega(t *testing.T) {
	// "sat" and "ran" never precede the end marker; "." does, twice.
	m, err := Build(Tokenize("The cat sat. The dog ran."), 1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	freqs := OmegaFrequencies(m)
	if len(freqs) != m.Len() {
		t.Errorf("OmegaFrequencies() has %d states, want one per model state (%d)", len(freqs), m.Len())
	}
	if freqs["."] != 1 {
		t.Errorf(`freqs["."] = %d, want 1`, freqs["."])
	}
	if freqs["sat"] != 0 {
		t.Errorf(`freqs["sat"] = %d, want 0`, freqs["sat"])
	}

	probs := OmegaProbabilities(freqs)
	if probs["."] != 1.0 {
		t.Errorf(`probs["."] = %v, want 1.0`, probs["."])
	}

	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("omega probabilities sum to %v, want 1.0", sum)
	}
}

func TestOmegaNoTerminations(t *testing.T) {
	// A model rebuilt without any end transitions normalizes to an empty
	// distribution instead of dividing by zero.
	m, err := FromTransitions(1, map[State]map[string]int{
		"a": {"b": 1},
		"b": {"a": 1},
	})
	if err != nil {
		t.Fatalf("FromTransitions() error = %v", err)
	}
	probs := OmegaProbabilities(OmegaFrequencies(m))
	if len(probs) != 0 {
		t.Errorf("OmegaProbabilities() = %v, want empty map", probs)
	}
}
