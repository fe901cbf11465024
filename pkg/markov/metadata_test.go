package markov

import "testing"

func TestAverageSentenceLength(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected int
	}{
		{
			name:     "Uniform sentences",
			text:     "The cat sat. The dog ran.",
			expected: 3,
		},
		{
			name:     "Rounded to nearest",
			text:     "one two three. one two three four.",
			expected: 4, // mean 3.5 rounds up
		},
		{
			name:     "Question and exclamation terminate sentences",
			text:     "is it you? yes! maybe not.",
			expected: 2, // fragments of 3, 1, and 2 tokens
		},
		{
			name:     "Empty fragments are discarded",
			text:     "wait... what. ",
			expected: 1,
		},
		{
			name:     "No sentences",
			text:     "",
			expected: 0,
		},
		{
			name:     "Whitespace only",
			text:     "   \n ",
			expected: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AverageSentenceLength(tc.text); got != tc.expected {
				t.Errorf("AverageSentenceLength(%q) = %d, want %d", tc.text, got, tc.expected)
			}
		})
	}
}
