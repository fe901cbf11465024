package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/CTAG07/mimicry/pkg/markov"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx, s, m := setupTestStoreWithModel(t)

	loaded, err := s.Load(ctx, "test_model")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	requireModelsEqual(t, m, loaded)
}

func TestSaveMergesFrequencies(t *testing.T) {
	ctx, s, m := setupTestStoreWithModel(t)

	// Saving the same model again adds counts instead of overwriting them.
	if err := s.Save(ctx, "test_model", m); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded, err := s.Load(ctx, "test_model")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, state := range m.States() {
		for token, freq := range m.Next(state) {
			if got := loaded.Count(state, token); got != 2*freq {
				t.Errorf("Count(%q, %q) = %d, want %d", state, token, got, 2*freq)
			}
		}
	}
}

func TestSaveOrderMismatch(t *testing.T) {
	ctx, s, _ := setupTestStoreWithModel(t)

	other := buildModel(t, "a b c.", 3)
	if err := s.Save(ctx, "test_model", other); !errors.Is(err, ErrOrderMismatch) {
		t.Errorf("Save() error = %v, want ErrOrderMismatch", err)
	}
}

func TestLoadMissingModel(t *testing.T) {
	_, s := setupTestStore(t)
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Load() error = %v, want ErrModelNotFound", err)
	}
}

func TestInfosAndDelete(t *testing.T) {
	ctx, s, m := setupTestStoreWithModel(t)

	if err := s.Save(ctx, "second_model", m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	infos, err := s.Infos(ctx)
	if err != nil {
		t.Fatalf("Infos() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Infos() returned %d models, want 2", len(infos))
	}
	if infos["test_model"].Order != 2 {
		t.Errorf("test_model order = %d, want 2", infos["test_model"].Order)
	}

	if err := s.Delete(ctx, "second_model"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	infos, err = s.Infos(ctx)
	if err != nil {
		t.Fatalf("Infos() error = %v", err)
	}
	if _, ok := infos["second_model"]; ok {
		t.Error("second_model still listed after Delete()")
	}
	if _, err := s.Load(ctx, "second_model"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Load() after Delete() error = %v, want ErrModelNotFound", err)
	}

	if err := s.Delete(ctx, "never_existed"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Delete() of missing model error = %v, want ErrModelNotFound", err)
	}
}

func TestPrune(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	// "a b" occurs twice, "a c" once; pruning at minFreq 1 must keep only
	// the repeated transition.
	m := buildModel(t, "a b. a b. a c.", 1)
	if err := s.Save(ctx, "prune_model", m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := s.Prune(ctx, "prune_model", 1); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	loaded, err := s.Load(ctx, "prune_model")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.Count("a", "b"); got != 2 {
		t.Errorf(`Count(a, b) after prune = %d, want 2`, got)
	}
	if got := loaded.Count("a", "c"); got != 0 {
		t.Errorf(`Count(a, c) after prune = %d, want 0`, got)
	}
}

func TestStats(t *testing.T) {
	ctx, s, _ := setupTestStoreWithModel(t)

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(stats.Models) != 1 {
		t.Fatalf("Stats() lists %d models, want 1", len(stats.Models))
	}

	info := stats.Models[0]
	modelStats := stats.Stats[info.Id]
	if modelStats.TotalChains == 0 {
		t.Error("TotalChains = 0, want > 0")
	}
	// Every padded window contributes exactly one transition:
	// 10 corpus tokens plus the final EOC link per the padded traversal.
	if modelStats.TotalFrequency != 11 {
		t.Errorf("TotalFrequency = %d, want 11", modelStats.TotalFrequency)
	}
	// Both sentences were trained as one sequence, so exactly one token can
	// follow the all-SOC start prefix.
	if modelStats.StartingTokens != 1 {
		t.Errorf("StartingTokens = %d, want 1", modelStats.StartingTokens)
	}
	// Vocabulary: SOC, EOC, and the 6 distinct corpus tokens.
	if stats.VocabSize != 8 {
		t.Errorf("VocabSize = %d, want 8", stats.VocabSize)
	}
	if stats.PrefixSize == 0 {
		t.Error("PrefixSize = 0, want > 0")
	}
}

func TestLoadedModelGenerates(t *testing.T) {
	ctx, s, _ := setupTestStoreWithModel(t)

	loaded, err := s.Load(ctx, "test_model")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	first := markov.Generate(loaded, markov.WithSeed(42), markov.WithMaxLength(20))
	second := markov.Generate(loaded, markov.WithSeed(42), markov.WithMaxLength(20))
	if len(first) == 0 {
		t.Fatal("loaded model generated nothing")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed diverged on a loaded model: %v vs %v", first, second)
	}
}
