package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/CTAG07/mimicry/pkg/markov"
)

// setupTestStore creates a new SQLite database in a temp dir and a Store for
// testing. It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := New(db)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// buildModel is a convenience wrapper that fails the test on a build error.
func buildModel(t *testing.T, text string, order int) *markov.Model {
	t.Helper()
	m, err := markov.Build(markov.Tokenize(text), order)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

// setupTestStoreWithModel is a convenience helper that also saves a default model.
func setupTestStoreWithModel(t *testing.T) (context.Context, *Store, *markov.Model) {
	t.Helper()
	_, s := setupTestStore(t)
	ctx := context.Background()

	m := buildModel(t, "one fish two fish. red fish blue fish.", 2)
	if err := s.Save(ctx, "test_model", m); err != nil {
		t.Fatalf("setup: Save() failed: %v", err)
	}
	return ctx, s, m
}

// requireModelsEqual compares two models state by state.
func requireModelsEqual(t *testing.T, expected, got *markov.Model) {
	t.Helper()
	if expected.Order() != got.Order() {
		t.Fatalf("order = %d, want %d", got.Order(), expected.Order())
	}
	if expected.Len() != got.Len() {
		t.Fatalf("state count = %d, want %d", got.Len(), expected.Len())
	}
	for _, state := range expected.States() {
		if !reflect.DeepEqual(expected.Next(state), got.Next(state)) {
			t.Errorf("Next(%q) = %v, want %v", state, got.Next(state), expected.Next(state))
		}
	}
}
