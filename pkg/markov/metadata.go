package markov

import (
	"math"
	"regexp"
	"strings"
)

// sentenceEndRegex splits raw text on sentence-terminal punctuation runs.
var sentenceEndRegex = regexp.MustCompile(`[.!?]+`)

// AverageSentenceLength computes the mean number of tokens per sentence in
// the training text, rounded to the nearest integer. Sentences are fragments
// between terminal punctuation marks; empty and whitespace-only fragments are
// discarded. Text with no sentences yields 0.
func AverageSentenceLength(text string) int {
	tokenizer := NewTokenizer()

	var sentences, tokens int
	for _, fragment := range sentenceEndRegex.Split(text, -1) {
		if strings.TrimSpace(fragment) == "" {
			continue
		}
		count := len(tokenizer.Tokenize(fragment))
		if count == 0 {
			continue
		}
		sentences++
		tokens += count
	}

	if sentences == 0 {
		return 0
	}
	return int(math.Round(float64(tokens) / float64(sentences)))
}
