package markov

import (
	"regexp"
	"strings"
)

// Tokenizer splits raw text into lowercase tokens and knows how to join
// generated tokens back into display text. It uses regular expressions to
// recognize words (including internal hyphens and apostrophes), bare numbers,
// and standalone punctuation marks. Its behavior can be customized with
// functional options.
type Tokenizer struct {
	separator   string
	tokenRegex  *regexp.Regexp
	sepExcRegex *regexp.Regexp
	lowercasing bool
}

// TokenizerOption Is a function that configures a Tokenizer.
type TokenizerOption func(*Tokenizer)

// WithSeparator Sets the string used for joining tokens in display output.
// Default: " "
func WithSeparator(sep string) TokenizerOption {
	return func(t *Tokenizer) {
		t.separator = sep
	}
}

// WithTokenRegex sets the regex string used to extract tokens from input text.
// Default: `[a-zA-Z]+(?:[-'][a-zA-Z]+)*|[0-9]+|["'()\-.,!?;:]`
func WithTokenRegex(tokenRegex string) TokenizerOption {
	return func(t *Tokenizer) {
		t.tokenRegex = regexp.MustCompile(tokenRegex)
	}
}

// WithSeparatorExcRegex sets the regex string used to decide whether a token
// gets a separator placed before it when joining.
func WithSeparatorExcRegex(sepExcRegex string) TokenizerOption {
	return func(t *Tokenizer) {
		t.sepExcRegex = regexp.MustCompile(sepExcRegex)
	}
}

// WithLowercasing controls whether input text is lowercased before token
// extraction. Default: true
func WithLowercasing(lower bool) TokenizerOption {
	return func(t *Tokenizer) {
		t.lowercasing = lower
	}
}

// NewTokenizer creates a tokenizer with default settings, which can be
// overridden by providing one or more TokenizerOption functions.
func NewTokenizer(opts ...TokenizerOption) *Tokenizer {
	t := &Tokenizer{
		separator: " ",
		// This regex finds words (keeping internal hyphens and apostrophes),
		// bare numbers, OR single instances of common punctuation.
		tokenRegex: regexp.MustCompile(`[a-zA-Z]+(?:[-'][a-zA-Z]+)*|[0-9]+|["'()\-.,!?;:]`),
		// This regex checks for tokens that don't get a separator put before them.
		sepExcRegex: regexp.MustCompile(`^[.,!?;:)]`),
		lowercasing: true,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Tokenize converts raw text into an ordered slice of tokens. It is
// deterministic and total: characters that match no token pattern are
// dropped, and empty input yields an empty slice.
func (t *Tokenizer) Tokenize(text string) []string {
	if t.lowercasing {
		text = strings.ToLower(text)
	}
	tokens := t.tokenRegex.FindAllString(text, -1)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// Separator returns the string to place between prev and next when joining.
func (t *Tokenizer) Separator(_, next string) string {
	if t.sepExcRegex.MatchString(next) {
		return ""
	}
	return t.separator
}

// Join builds a display string from generated tokens, suppressing the
// separator before punctuation.
func (t *Tokenizer) Join(tokens []string) string {
	var builder strings.Builder
	var last string
	for i, token := range tokens {
		if i > 0 {
			builder.WriteString(t.Separator(last, token))
		}
		builder.WriteString(token)
		last = token
	}
	return builder.String()
}

// Tokenize converts raw text into tokens using a tokenizer with default
// settings. It is a convenience wrapper for callers that don't need custom
// patterns or join rules.
func Tokenize(text string) []string {
	return NewTokenizer().Tokenize(text)
}
