package markov

import (
	"errors"
	"strings"
	"sync"
)

const (
	// SOCToken is the reserved Start-Of-Chain marker token.
	SOCToken = "<SOC>"
	// EOCToken is the reserved End-Of-Chain marker token.
	EOCToken = "<EOC>"
)

var (
	// ErrInvalidOrder is returned when a model is built with an order below 1.
	ErrInvalidOrder = errors.New("markov: order must be at least 1")
	// ErrOrderMismatch is returned when merging models of different orders.
	ErrOrderMismatch = errors.New("markov: merged models must have the same order")
)

// State is an ordered, fixed-length sequence of exactly `order` tokens,
// encoded as a single space-joined string so it can be used as a map key.
// Two states are equal iff their token sequences are equal element-wise.
type State string

// NewState builds a State key from an ordered token window.
func NewState(tokens []string) State {
	return State(strings.Join(tokens, " "))
}

// StartState returns the initial state for a model of the given order: the
// window filled with `order` Start-Of-Chain markers.
func StartState(order int) State {
	tokens := make([]string, order)
	for i := range tokens {
		tokens[i] = SOCToken
	}
	return NewState(tokens)
}

// Tokens returns the ordered token sequence the state encodes.
func (s State) Tokens() []string {
	return strings.Split(string(s), " ")
}

// advance slides the fixed-width window forward: the oldest token is dropped
// and next is appended.
func (s State) advance(next string) State {
	tokens := s.Tokens()
	return NewState(append(tokens[1:], next))
}

// Model is a trained order-N Markov chain: a transition table from each
// observed state to the frequency of every token seen immediately after it.
// A Model is built once and must be treated as read-only afterwards;
// generation never mutates it, so concurrent reads are safe.
type Model struct {
	order       int
	transitions map[State]map[string]int
}

// Build trains a model over one token sequence. The sequence is padded with
// `order` Start-Of-Chain markers and one End-Of-Chain marker, then a window
// of width `order` slides across it, counting every (state, next token) pair.
// An empty sequence yields a model with exactly one state mapping to
// {EOCToken: 1}.
func Build(tokens []string, order int) (*Model, error) {
	if order < 1 {
		return nil, ErrInvalidOrder
	}

	padded := make([]string, 0, len(tokens)+order+1)
	for i := 0; i < order; i++ {
		padded = append(padded, SOCToken)
	}
	padded = append(padded, tokens...)
	padded = append(padded, EOCToken)

	m := &Model{
		order:       order,
		transitions: make(map[State]map[string]int),
	}
	for i := 0; i+order < len(padded); i++ {
		m.add(NewState(padded[i:i+order]), padded[i+order], 1)
	}
	return m, nil
}

// FromTransitions constructs a model from an existing transition table,
// copying it so the caller's map stays independent. It is used by the store
// package to rehydrate persisted models.
func FromTransitions(order int, transitions map[State]map[string]int) (*Model, error) {
	if order < 1 {
		return nil, ErrInvalidOrder
	}
	m := &Model{
		order:       order,
		transitions: make(map[State]map[string]int, len(transitions)),
	}
	for state, next := range transitions {
		for token, count := range next {
			m.add(state, token, count)
		}
	}
	return m, nil
}

// BuildConcurrent trains one partial model per token sequence in parallel and
// merges the results with element-wise count addition. The merge is
// commutative and associative, so the result does not depend on scheduling.
// Each sequence is an independent training sequence and receives its own
// boundary padding.
func BuildConcurrent(sequences [][]string, order int) (*Model, error) {
	if order < 1 {
		return nil, ErrInvalidOrder
	}

	partials := make([]*Model, len(sequences))
	var wg sync.WaitGroup
	for i, seq := range sequences {
		wg.Add(1)
		go func(i int, seq []string) {
			defer wg.Done()
			// Build can only fail on an invalid order, which was checked above.
			partials[i], _ = Build(seq, order)
		}(i, seq)
	}
	wg.Wait()

	merged := &Model{
		order:       order,
		transitions: make(map[State]map[string]int),
	}
	for _, partial := range partials {
		if err := merged.Merge(partial); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// Merge adds every transition count from other into m. Both models must have
// the same order. Merge is part of model construction; a merged model must
// not be shared with readers until merging is complete.
func (m *Model) Merge(other *Model) error {
	if m.order != other.order {
		return ErrOrderMismatch
	}
	for state, next := range other.transitions {
		for token, count := range next {
			m.add(state, token, count)
		}
	}
	return nil
}

func (m *Model) add(state State, next string, count int) {
	row, ok := m.transitions[state]
	if !ok {
		row = make(map[string]int)
		m.transitions[state] = row
	}
	row[next] += count
}

// Order returns the model's order: the number of preceding tokens that
// determine the next-token distribution.
func (m *Model) Order() int {
	return m.order
}

// Len returns the number of distinct states in the transition table.
func (m *Model) Len() int {
	return len(m.transitions)
}

// Next returns the next-token frequency row for a state, or nil if the state
// was never observed. The returned map is the model's internal row and must
// not be modified.
func (m *Model) Next(state State) map[string]int {
	return m.transitions[state]
}

// Count returns how often state was immediately followed by next during
// training, with an implicit zero for unobserved pairs. The lookup never
// mutates the table.
func (m *Model) Count(state State, next string) int {
	return m.transitions[state][next]
}

// Total returns the number of times state was observed as a window during
// training, which equals the sum of its next-token counts.
func (m *Model) Total(state State) int {
	var total int
	for _, count := range m.transitions[state] {
		total += count
	}
	return total
}

// States returns every state present in the transition table, in map order.
func (m *Model) States() []State {
	states := make([]State, 0, len(m.transitions))
	for state := range m.transitions {
		states = append(states, state)
	}
	return states
}
