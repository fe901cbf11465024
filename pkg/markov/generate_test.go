package markov

import (
	"math/rand/v2"
	"reflect"
	"testing"
)

func buildTestModel(t *testing.T, text string, order int) *Model {
	t.Helper()
	m, err := Build(Tokenize(text), order)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

func TestGenerateReproducible(t *testing.T) {
	m := buildTestModel(t, "one fish two fish. red fish blue fish. old fish new fish.", 1)

	first := Generate(m, WithSeed(42), WithMaxLength(40))
	second := Generate(m, WithSeed(42), WithMaxLength(40))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same seed produced different sequences:\n%v\n%v", first, second)
	}

	for _, tokens := range [][]string{first, second} {
		for _, token := range tokens {
			if token == SOCToken || token == EOCToken {
				t.Errorf("marker token %q leaked into output %v", token, tokens)
			}
		}
	}
}

func TestGenerateLengthBound(t *testing.T) {
	m := buildTestModel(t, "a b a c a b a d a b a.", 1)

	const maxLength = 5
	for seed := uint64(0); seed < 25; seed++ {
		out := Generate(m, WithSeed(seed), WithMaxLength(maxLength))
		if len(out) > maxLength {
			t.Errorf("seed %d: generated %d tokens, want at most %d", seed, len(out), maxLength)
		}
	}
}

func TestGenerateDeterministicTemperature(t *testing.T) {
	// With temperature 0 every draw is an argmax, so the walk is fully
	// deterministic: ties break toward the lexicographically smaller token.
	m := buildTestModel(t, "The cat sat. The dog ran.", 1)

	out := Generate(m, WithTemperature(0), WithMaxLength(20))
	expected := []string{"the", "cat", "sat", "."}
	if !reflect.DeepEqual(out, expected) {
		t.Errorf("Generate() = %v, want %v", out, expected)
	}
}

func TestGenerateSingleDraw(t *testing.T) {
	// From the start state of this corpus the only trained transition is
	// "the", so a one-token walk must produce it for any seed.
	m := buildTestModel(t, "The cat sat. The dog ran.", 1)

	for seed := uint64(0); seed < 10; seed++ {
		out := Generate(m, WithSeed(seed), WithMaxLength(1))
		if !reflect.DeepEqual(out, []string{"the"}) {
			t.Errorf("seed %d: Generate() = %v, want [the]", seed, out)
		}
	}
}

func TestGenerateEmptyCorpus(t *testing.T) {
	// An empty training sequence models a single immediate termination.
	m, err := Build(nil, 2)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if out := Generate(m, WithSeed(7), WithMaxLength(10)); len(out) != 0 {
		t.Errorf("Generate() = %v, want empty output", out)
	}
}

func TestGenerateFromUnknownStartState(t *testing.T) {
	m := buildTestModel(t, "a b c.", 1)
	out := Generate(m, WithSeed(1), WithStartState("zz"), WithMaxLength(10))
	if len(out) != 0 {
		t.Errorf("Generate() from unknown state = %v, want empty output", out)
	}
}

func TestGenerateWithoutEarlyTermination(t *testing.T) {
	// With early termination disabled, an EOC draw restarts the walk instead
	// of ending it; the maxLength bound still holds and still counts draws.
	m := buildTestModel(t, "a.", 1)

	out := Generate(m, WithSeed(3), WithMaxLength(10), WithEarlyTermination(false))
	if len(out) > 10 {
		t.Errorf("generated %d tokens, want at most 10", len(out))
	}
	for _, token := range out {
		if token != "a" && token != "." {
			t.Errorf("unexpected token %q in %v", token, out)
		}
	}
}

func TestNextTokenUnknownState(t *testing.T) {
	m := buildTestModel(t, "a b c.", 2)
	rng := rand.New(rand.NewPCG(1, 1))

	for i := 0; i < 5; i++ {
		if got := NextToken(rng, m, "never seen"); got != EOCToken {
			t.Errorf("NextToken(unknown state) = %q, want %q", got, EOCToken)
		}
	}
}

func TestNextTokenSingleChoice(t *testing.T) {
	m := buildTestModel(t, "a b.", 1)
	rng := rand.New(rand.NewPCG(1, 1))
	if got := NextToken(rng, m, "a"); got != "b" {
		t.Errorf("NextToken(a) = %q, want b", got)
	}
}

func TestGenerateTopK(t *testing.T) {
	// "a" is followed by "b" three times and each of "c", "d" once; top-1
	// sampling must always take "b".
	m := buildTestModel(t, "a b a b a b a c a d.", 1)

	for seed := uint64(0); seed < 10; seed++ {
		out := Generate(m, WithSeed(seed), WithMaxLength(2), WithTopK(1))
		if len(out) == 2 && out[0] == "a" && out[1] != "b" {
			t.Errorf("seed %d: top-1 chose %q after a, want b", seed, out[1])
		}
	}
}

func TestSampleStart(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))

	if got := SampleStart(rng, nil); got != "" {
		t.Errorf("SampleStart(empty) = %q, want empty state", got)
	}

	beta := map[State]float64{"the cat": 1.0}
	for i := 0; i < 5; i++ {
		if got := SampleStart(rng, beta); got != "the cat" {
			t.Errorf("SampleStart() = %q, want the cat", got)
		}
	}
}

func BenchmarkGenerate(b *testing.B) {
	tokens := Tokenize("one fish two fish. red fish blue fish. black fish blue fish old fish new fish.")
	m, err := Build(tokens, 2)
	if err != nil {
		b.Fatalf("Build() error = %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Generate(m, WithSeed(uint64(i)), WithMaxLength(50))
	}
}
