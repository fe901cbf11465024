package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/CTAG07/mimicry/pkg/markov"
)

const (
	// SOCTokenID is the reserved vocabulary ID for the Start-Of-Chain token.
	SOCTokenID = 0
	// EOCTokenID is the reserved vocabulary ID for the End-Of-Chain token.
	EOCTokenID = 1
)

var (
	// ErrModelNotFound is returned when a named model does not exist.
	ErrModelNotFound = errors.New("store: model not found")
	// ErrOrderMismatch is returned when saving a model under a name that
	// already holds a model of a different order.
	ErrOrderMismatch = errors.New("store: existing model has a different order")
)

// SetupSchema initializes the necessary tables and the special vocabulary
// entries in the provided database. It should be called once before any other
// operation; it is idempotent and safe to call on an already-initialized
// database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS markov_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
`
		schemaPrefixes = `
CREATE TABLE IF NOT EXISTS markov_prefixes (
	prefix_id INTEGER PRIMARY KEY,
	prefix_text TEXT NOT NULL UNIQUE
);
`
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaChains = `
CREATE TABLE IF NOT EXISTS markov_chains (
    model_id INTEGER NOT NULL,
    prefix_id INTEGER NOT NULL,
    next_token_id INTEGER NOT NULL,
    frequency  INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, prefix_id, next_token_id)
);
`
	)

	startToken := fmt.Sprintf("INSERT OR IGNORE INTO markov_vocabulary (token_id, token_text) VALUES (%d, '%s');", SOCTokenID, markov.SOCToken)
	endToken := fmt.Sprintf("INSERT OR IGNORE INTO markov_vocabulary (token_id, token_text) VALUES (%d, '%s');", EOCTokenID, markov.EOCToken)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaVocab, schemaPrefixes, schemaModels, schemaChains} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if _, err = tx.Exec(startToken); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}
	if _, err = tx.Exec(endToken); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// ModelInfo holds the essential metadata for a persisted model: its unique
// ID, name, and chain order.
type ModelInfo struct {
	Id    int
	Name  string
	Order int
}

// Store persists trained Markov models in a SQLite database. It holds the
// database connection and prepared SQL statements for efficient access.
type Store struct {
	db                    *sql.DB
	stmtGetModel          *sql.Stmt
	stmtGetModels         *sql.Stmt
	stmtAddModel          *sql.Stmt
	stmtPruneModel        *sql.Stmt
	stmtModelChains       *sql.Stmt
	stmtModelStarters     *sql.Stmt
	stmtModelFreq         *sql.Stmt
	stmtGetChains         *sql.Stmt
	stmtGetPrefixID       *sql.Stmt
	stmtGetVocabLen       *sql.Stmt
	stmtGetPrefixLen      *sql.Stmt
	stmtInsertVocab       *sql.Stmt
	stmtGetOrInsertPrefix *sql.Stmt
	logger                *slog.Logger
}

// New creates a Store over an initialized database, pre-compiling all
// necessary SQL statements. It returns an error if any preparation fails.
func New(db *sql.DB) (*Store, error) {
	stmtGetModel, err := db.Prepare(`SELECT model_id, model_order FROM markov_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetModels, err := db.Prepare(`SELECT model_id, model_name, model_order FROM markov_models;`)
	if err != nil {
		return nil, err
	}

	stmtAddModel, err := db.Prepare(`INSERT INTO markov_models (model_name, model_order) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtPruneModel, err := db.Prepare(`DELETE FROM markov_chains WHERE model_id = ? AND frequency <= ?;`)
	if err != nil {
		return nil, err
	}

	stmtModelChains, err := db.Prepare(`SELECT COUNT(*) FROM markov_chains WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtModelStarters, err := db.Prepare(`SELECT COUNT(*) FROM markov_chains WHERE model_id = ? AND prefix_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtModelFreq, err := db.Prepare(`SELECT coalesce(SUM(frequency), 0) FROM markov_chains WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetChains, err := db.Prepare(`SELECT prefix_id, next_token_id, frequency FROM markov_chains WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetPrefixID, err := db.Prepare(`SELECT prefix_id FROM markov_prefixes WHERE prefix_text = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetVocabLen, err := db.Prepare(`SELECT COUNT(*) FROM markov_vocabulary;`)
	if err != nil {
		return nil, err
	}

	stmtGetPrefixLen, err := db.Prepare(`SELECT COUNT(*) FROM markov_prefixes;`)
	if err != nil {
		return nil, err
	}

	stmtInsertVocab, err := db.Prepare(`INSERT INTO markov_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`)
	if err != nil {
		return nil, err
	}

	stmtGetOrInsertPrefix, err := db.Prepare(`INSERT INTO markov_prefixes (prefix_text) VALUES (?) ON CONFLICT(prefix_text) DO UPDATE SET prefix_text=excluded.prefix_text RETURNING prefix_id;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                    db,
		stmtGetModel:          stmtGetModel,
		stmtGetModels:         stmtGetModels,
		stmtAddModel:          stmtAddModel,
		stmtPruneModel:        stmtPruneModel,
		stmtModelChains:       stmtModelChains,
		stmtModelStarters:     stmtModelStarters,
		stmtModelFreq:         stmtModelFreq,
		stmtGetChains:         stmtGetChains,
		stmtGetPrefixID:       stmtGetPrefixID,
		stmtGetVocabLen:       stmtGetVocabLen,
		stmtGetPrefixLen:      stmtGetPrefixLen,
		stmtInsertVocab:       stmtInsertVocab,
		stmtGetOrInsertPrefix: stmtGetOrInsertPrefix,
		logger:                slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store. It should be
// called when the Store is no longer needed.
func (s *Store) Close() {
	_ = s.stmtGetModel.Close()
	_ = s.stmtGetModels.Close()
	_ = s.stmtAddModel.Close()
	_ = s.stmtPruneModel.Close()
	_ = s.stmtModelChains.Close()
	_ = s.stmtModelStarters.Close()
	_ = s.stmtModelFreq.Close()
	_ = s.stmtGetChains.Close()
	_ = s.stmtGetPrefixID.Close()
	_ = s.stmtGetVocabLen.Close()
	_ = s.stmtGetPrefixLen.Close()
	_ = s.stmtInsertVocab.Close()
	_ = s.stmtGetOrInsertPrefix.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Info retrieves the metadata for a single model by name.
func (s *Store) Info(ctx context.Context, name string) (ModelInfo, error) {
	var info ModelInfo
	err := s.stmtGetModel.QueryRowContext(ctx, name).Scan(&info.Id, &info.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelInfo{}, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if err != nil {
		return ModelInfo{}, err
	}
	info.Name = name
	return info, nil
}

// Infos retrieves metadata for all models currently in the database,
// returning them in a map keyed by model name.
func (s *Store) Infos(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	infos := make(map[string]ModelInfo)
	for rows.Next() {
		var info ModelInfo
		if err = rows.Scan(&info.Id, &info.Name, &info.Order); err != nil {
			return nil, err
		}
		infos[info.Name] = info
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Save persists a trained model under the given name within a single
// transaction. If the name already holds a model of the same order, the new
// transition counts are added to the existing ones; a differing order is
// rejected with ErrOrderMismatch.
func (s *Store) Save(ctx context.Context, name string, m *markov.Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID, modelOrder int
	err = tx.StmtContext(ctx, s.stmtGetModel).QueryRowContext(ctx, name).Scan(&modelID, &modelOrder)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.StmtContext(ctx, s.stmtAddModel).ExecContext(ctx, name, m.Order())
		if err != nil {
			return fmt.Errorf("failed to insert model '%s': %w", name, err)
		}
		newID, _ := res.LastInsertId()
		modelID = int(newID)
	case err != nil:
		return fmt.Errorf("failed to query model '%s': %w", name, err)
	case modelOrder != m.Order():
		return fmt.Errorf("%w: '%s' has order %d, model has order %d", ErrOrderMismatch, name, modelOrder, m.Order())
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	stmtGetOrInsertPrefix := tx.StmtContext(ctx, s.stmtGetOrInsertPrefix)
	stmtInsertChain, err := tx.PrepareContext(ctx, `
		INSERT INTO markov_chains (model_id, prefix_id, next_token_id, frequency) VALUES (?, ?, ?, ?)
		ON CONFLICT(model_id, prefix_id, next_token_id) DO UPDATE SET frequency = frequency + excluded.frequency;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare chain insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertChain)

	vocabCache := map[string]int{
		markov.SOCToken: SOCTokenID,
		markov.EOCToken: EOCTokenID,
	}
	resolveToken := func(token string) (int, error) {
		if id, ok := vocabCache[token]; ok {
			return id, nil
		}
		var id int
		if err := stmtInsertVocab.QueryRowContext(ctx, token).Scan(&id); err != nil {
			return 0, fmt.Errorf("sql insert vocabulary error for token '%s': %w", token, err)
		}
		vocabCache[token] = id
		return id, nil
	}

	prefixCache := make(map[string]int)
	var keyBuf []byte
	var chainCount int

	for _, state := range m.States() {
		keyBuf = keyBuf[:0]
		for i, token := range state.Tokens() {
			tokenID, err := resolveToken(token)
			if err != nil {
				return err
			}
			if i > 0 {
				keyBuf = append(keyBuf, ' ')
			}
			keyBuf = strconv.AppendInt(keyBuf, int64(tokenID), 10)
		}
		prefixKey := string(keyBuf)

		prefixID, ok := prefixCache[prefixKey]
		if !ok {
			if err := stmtGetOrInsertPrefix.QueryRowContext(ctx, prefixKey).Scan(&prefixID); err != nil {
				return fmt.Errorf("failed to get or insert prefix '%s': %w", prefixKey, err)
			}
			prefixCache[prefixKey] = prefixID
		}

		for token, freq := range m.Next(state) {
			tokenID, err := resolveToken(token)
			if err != nil {
				return err
			}
			if _, err := stmtInsertChain.ExecContext(ctx, modelID, prefixID, tokenID, freq); err != nil {
				return fmt.Errorf("failed to insert chain link (%d -> %d): %w", prefixID, tokenID, err)
			}
			chainCount++
		}
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("states", m.Len()),
		slog.Int("chains_written", chainCount),
	)

	return tx.Commit()
}

// Load rebuilds the in-memory model persisted under the given name.
func (s *Store) Load(ctx context.Context, name string) (*markov.Model, error) {
	info, err := s.Info(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.stmtGetChains.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query chains for '%s': %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	type chainLink struct {
		prefixID    int
		nextTokenID int
		frequency   int
	}
	var chains []chainLink
	prefixIDs := make(map[int]struct{})
	tokenIDs := make(map[int]struct{})

	for rows.Next() {
		var link chainLink
		if err = rows.Scan(&link.prefixID, &link.nextTokenID, &link.frequency); err != nil {
			return nil, err
		}
		chains = append(chains, link)
		prefixIDs[link.prefixID] = struct{}{}
		tokenIDs[link.nextTokenID] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	prefixTexts, err := s.textsByID(ctx, "markov_prefixes", "prefix_id", "prefix_text", prefixIDs)
	if err != nil {
		return nil, err
	}
	for _, text := range prefixTexts {
		for _, idStr := range strings.Split(text, " ") {
			id, _ := strconv.Atoi(idStr)
			tokenIDs[id] = struct{}{}
		}
	}

	tokenTexts, err := s.textsByID(ctx, "markov_vocabulary", "token_id", "token_text", tokenIDs)
	if err != nil {
		return nil, err
	}

	transitions := make(map[markov.State]map[string]int, len(prefixIDs))
	for _, link := range chains {
		prefixText, ok := prefixTexts[link.prefixID]
		if !ok {
			return nil, fmt.Errorf("consistency error: prefix id %d not found", link.prefixID)
		}
		idStrs := strings.Split(prefixText, " ")
		tokens := make([]string, len(idStrs))
		for i, idStr := range idStrs {
			id, _ := strconv.Atoi(idStr)
			text, ok := tokenTexts[id]
			if !ok {
				return nil, fmt.Errorf("consistency error: token id %d in prefix not found", id)
			}
			tokens[i] = text
		}
		state := markov.NewState(tokens)

		next, ok := tokenTexts[link.nextTokenID]
		if !ok {
			return nil, fmt.Errorf("consistency error: token id %d not found", link.nextTokenID)
		}

		row, ok := transitions[state]
		if !ok {
			row = make(map[string]int)
			transitions[state] = row
		}
		row[next] += link.frequency
	}

	s.logger.DebugContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.Int("model_id", info.Id),
		slog.Int("chains_loaded", len(chains)),
	)

	return markov.FromTransitions(info.Order, transitions)
}

// Delete removes a model and all of its associated chain data from the
// database. The operation is performed within a transaction.
func (s *Store) Delete(ctx context.Context, name string) error {
	info, err := s.Info(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_chains WHERE model_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove chains for model %d: %w", info.Id, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_models WHERE model_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", info.Id, err)
	}

	s.logger.InfoContext(ctx, "Model removed",
		slog.String("model_name", info.Name),
		slog.Int("model_id", info.Id),
	)

	return tx.Commit()
}

// Prune removes all chain links of a model with a frequency less than or
// equal to minFreq. This is useful for shrinking a model by discarding rare,
// and often noisy, transitions.
func (s *Store) Prune(ctx context.Context, name string, minFreq int) error {
	info, err := s.Info(ctx, name)
	if err != nil {
		return err
	}

	res, err := s.stmtPruneModel.ExecContext(ctx, info.Id, minFreq)
	if err != nil {
		return fmt.Errorf("could not prune model %d: %w", info.Id, err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Model pruned",
		slog.String("model_name", info.Name),
		slog.Int("model_id", info.Id),
		slog.Int("min_frequency", minFreq),
		slog.Int64("chains_removed", rowsAffected),
	)
	return nil
}

// textsByID fetches id->text rows from a table for a set of IDs, batching the
// IN clauses to stay under SQLite's variable limit.
func (s *Store) textsByID(ctx context.Context, table, idCol, textCol string, ids map[int]struct{}) (map[int]string, error) {
	texts := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return texts, nil
	}

	// SQLite's default variable limit is 999, so around half that is good
	const batchSize = 500

	args := make([]interface{}, 0, len(ids))
	for id := range ids {
		args = append(args, id)
	}

	for i := 0; i < len(args); i += batchSize {
		end := i + batchSize
		if end > len(args) {
			end = len(args)
		}
		batch := args[i:end]

		query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (?%s)",
			idCol, textCol, table, idCol, strings.Repeat(",?", len(batch)-1))
		rows, err := s.db.QueryContext(ctx, query, batch...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id int
			var text string
			if err = rows.Scan(&id, &text); err != nil {
				_ = rows.Close()
				return nil, err
			}
			texts[id] = text
		}
		_ = rows.Close()
		if err = rows.Err(); err != nil {
			return nil, err
		}
	}
	return texts, nil
}
