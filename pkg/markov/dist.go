package markov

// Frequencies counts how often each distinct item occurs in the given slice.
// It works over any comparable item type, so it serves token, state, and
// n-gram counting alike.
func Frequencies[T comparable](items []T) map[T]int {
	freqs := make(map[T]int, len(items))
	for _, item := range items {
		freqs[item]++
	}
	return freqs
}

// Probabilities converts a frequency table into a probability distribution.
// Each value is count/total. A zero total yields an empty map rather than a
// division fault; callers can rely on the result always being defined.
func Probabilities[K comparable](freqs map[K]int) map[K]float64 {
	var total int
	for _, count := range freqs {
		total += count
	}

	probs := make(map[K]float64, len(freqs))
	if total == 0 {
		return probs
	}
	for item, count := range freqs {
		probs[item] = float64(count) / float64(total)
	}
	return probs
}
