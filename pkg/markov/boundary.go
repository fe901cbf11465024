package markov

// Boundary distributions: beta describes where chains start, omega describes
// where they end. Both are derived from training data and normalized with
// Probabilities, so a zero total yields an empty distribution.

// startState returns the window the generation walk occupies right after the
// Start-Of-Chain padding for one training sequence: the first `order` real
// tokens, left-padded with SOC markers when the sequence is shorter than the
// order.
func startState(tokens []string, order int) State {
	padded := make([]string, 0, len(tokens)+order)
	for i := 0; i < order; i++ {
		padded = append(padded, SOCToken)
	}
	padded = append(padded, tokens...)

	offset := order
	if len(tokens) < order {
		offset = len(tokens)
	}
	return NewState(padded[offset : offset+order])
}

// BetaFrequencies counts start states across training sequences. Each
// sequence contributes exactly one count: callers that partition a corpus
// (per sentence, per document) get multi-sequence accumulation, and a caller
// passing the whole corpus as a single sequence gets a single count.
func BetaFrequencies(sequences [][]string, order int) (map[State]int, error) {
	if order < 1 {
		return nil, ErrInvalidOrder
	}
	starts := make([]State, 0, len(sequences))
	for _, tokens := range sequences {
		starts = append(starts, startState(tokens, order))
	}
	return Frequencies(starts), nil
}

// BetaProbabilities normalizes start-state frequencies into the beta
// distribution: the probability that a chain begins at each observed start
// state.
func BetaProbabilities(betaFreqs map[State]int) map[State]float64 {
	return Probabilities(betaFreqs)
}

// OmegaFrequencies counts, for every state in the model, how often that state
// was immediately followed by the End-Of-Chain marker. States that never end
// a chain are present with a zero count.
func OmegaFrequencies(m *Model) map[State]int {
	freqs := make(map[State]int, m.Len())
	for state := range m.transitions {
		freqs[state] = m.Count(state, EOCToken)
	}
	return freqs
}

// OmegaProbabilities normalizes end counts across all states, yielding for
// each state the probability that a randomly chosen termination event in the
// corpus occurred from that state. This is not the local termination
// probability of the state alone.
func OmegaProbabilities(omegaFreqs map[State]int) map[State]float64 {
	return Probabilities(omegaFreqs)
}
