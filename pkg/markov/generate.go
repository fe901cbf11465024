package markov

import (
	"math"
	"math/rand/v2"
	"sort"
)

// candidate pairs a possible next token with its raw transition count.
type candidate struct {
	token string
	freq  int
}

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	maxLength   int
	canEndEarly bool
	temperature float64
	topK        int
	rng         *rand.Rand
	start       State
	hasStart    bool
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in Generate.
type GenerateOption func(*generateOptions)

// WithMaxLength sets the maximum number of tokens to generate. The generation
// may stop earlier if an EOC token is drawn and early termination is enabled.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithEarlyTermination specifies whether the generation process can stop before
// reaching maxLength when an End-Of-Chain token is drawn. When disabled, an
// EOC draw resets the walk to the start state and generation continues.
func WithEarlyTermination(canEnd bool) GenerateOption {
	return func(o *generateOptions) { o.canEndEarly = canEnd }
}

// WithTemperature adjusts the randomness of the token selection.
// A value of 1.0 is standard weighted random selection.
// Values > 1.0 increase randomness (making less frequent tokens more likely).
// Values < 1.0 decrease randomness (making more frequent tokens even more likely).
// A value of 0 or less results in deterministic selection (always choosing the most frequent token).
func WithTemperature(t float64) GenerateOption {
	return func(o *generateOptions) { o.temperature = t }
}

// WithTopK restricts the token selection pool to the top `k` most frequent
// tokens at each step. A value of 0 disables Top-K sampling.
func WithTopK(k int) GenerateOption {
	return func(o *generateOptions) { o.topK = k }
}

// WithSeed seeds a dedicated pseudo-random stream for this generation call.
// The same seed on the same model with the same options reproduces the output
// sequence exactly. Without a seed, each call draws from a fresh
// randomly-seeded stream.
func WithSeed(seed uint64) GenerateOption {
	return func(o *generateOptions) { o.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithRand supplies a caller-owned random stream. The stream must not be
// shared with a concurrent generation call if per-call reproducibility
// matters.
func WithRand(rng *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = rng }
}

// WithStartState starts the walk from the given state instead of the default
// Start-Of-Chain window. Combine with SampleStart to reproduce beta-weighted
// start selection.
func WithStartState(state State) GenerateOption {
	return func(o *generateOptions) {
		o.start = state
		o.hasStart = true
	}
}

// Generate walks the model's transition table and returns a newly synthesized
// token sequence. The walk starts from `order` Start-Of-Chain markers, draws
// each next token proportionally to its raw transition count, and stops when
// an End-Of-Chain token is drawn or maxLength draws have been made. Both stop
// conditions are success paths; output never includes marker tokens and its
// length never exceeds maxLength.
func Generate(m *Model, opts ...GenerateOption) []string {
	options := &generateOptions{
		maxLength:   100,
		canEndEarly: true,
		temperature: 1.0,
		topK:        0,
	}
	for _, opt := range opts {
		opt(options)
	}

	rng := options.rng
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	state := StartState(m.order)
	if options.hasStart {
		state = options.start
	}

	generated := make([]string, 0, options.maxLength)
	for drawn := 0; drawn < options.maxLength; drawn++ {
		row := m.Next(state)

		var next string
		if len(row) == 0 {
			// Dead end in chain: an unknown state is a terminal condition,
			// identical to drawing EOC.
			next = EOCToken
		} else {
			next = chooseToken(rng, row, options)
		}

		if next == EOCToken {
			if options.canEndEarly {
				break
			}
			state = StartState(m.order)
			continue
		}

		generated = append(generated, next)
		state = state.advance(next)
	}
	return generated
}

// NextToken draws one next token for the given state with probability
// proportional to raw transition counts. A state absent from the model
// deterministically returns EOCToken; that is a defined terminal fallback,
// not an error.
func NextToken(rng *rand.Rand, m *Model, state State) string {
	row := m.Next(state)
	if len(row) == 0 {
		return EOCToken
	}
	return chooseToken(rng, row, &generateOptions{temperature: 1.0})
}

// SampleStart draws one start state from a beta distribution, weighted by its
// probabilities. An empty distribution returns the empty state.
func SampleStart(rng *rand.Rand, beta map[State]float64) State {
	if len(beta) == 0 {
		return ""
	}
	states := make([]State, 0, len(beta))
	for state := range beta {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	r := rng.Float64()
	var cumulative float64
	for _, state := range states {
		cumulative += beta[state]
		if r <= cumulative {
			return state
		}
	}
	// Floating rounding can leave cumulative slightly below 1.
	return states[len(states)-1]
}

// chooseToken abstracts the token selection logic from the generation loop.
// Candidates are visited in ascending token order so that each draw consumes
// the random stream in one fixed order; map iteration order never reaches the
// RNG path, which keeps a fixed seed byte-reproducible.
func chooseToken(rng *rand.Rand, row map[string]int, options *generateOptions) string {
	choices := make([]candidate, 0, len(row))
	totalFreq := 0
	for token, freq := range row {
		choices = append(choices, candidate{token: token, freq: freq})
		totalFreq += freq
	}
	sort.Slice(choices, func(i, j int) bool {
		return choices[i].token < choices[j].token
	})

	// topK filtering
	if options.topK > 0 && options.topK < len(choices) {
		sort.SliceStable(choices, func(i, j int) bool {
			return choices[i].freq > choices[j].freq
		})
		choices = choices[:options.topK]
		sort.Slice(choices, func(i, j int) bool {
			return choices[i].token < choices[j].token
		})
		totalFreq = 0
		for _, choice := range choices {
			totalFreq += choice.freq
		}
	}

	if totalFreq <= 0 {
		return EOCToken
	}

	// temperature selection
	if options.temperature <= 0 { // Deterministic
		best := choices[0]
		for _, choice := range choices[1:] {
			if choice.freq > best.freq {
				best = choice
			}
		}
		return best.token
	}

	if options.temperature == 1.0 { // Standard weighted random
		randChoice := rng.IntN(totalFreq)
		for _, choice := range choices {
			randChoice -= choice.freq
			if randChoice < 0 {
				return choice.token
			}
		}
		return choices[len(choices)-1].token
	}

	// Temperature-based sampling
	logProbabilities := make([]float64, len(choices))
	epsilon := -1e9
	for i, choice := range choices {
		lp := math.Log(float64(choice.freq)) / options.temperature
		logProbabilities[i] = lp
		if lp > epsilon {
			epsilon = lp
		}
	}
	var totalWeight float64
	weights := make([]float64, len(choices))
	for i, lp := range logProbabilities {
		w := math.Exp(lp - epsilon)
		weights[i] = w
		totalWeight += w
	}
	randChoice := rng.Float64() * totalWeight
	for i, choice := range choices {
		randChoice -= weights[i]
		if randChoice < 0 {
			return choice.token
		}
	}
	return choices[len(choices)-1].token
}
