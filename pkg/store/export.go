package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/CTAG07/mimicry/pkg/markov"
)

// ExportedModel is the serializable representation of a persisted model,
// used for JSON-based import and export.
type ExportedModel struct {
	Name       string          `json:"name"`
	Order      int             `json:"order"`
	Vocabulary map[string]int  `json:"vocabulary"` // token_text -> token_id
	Prefixes   map[string]int  `json:"prefixes"`   // prefix_text -> prefix_id
	Chains     []ExportedChain `json:"chains"`
}

// ExportedChain is the serializable representation of a single link in a
// Markov chain, used within an ExportedModel.
type ExportedChain struct {
	PrefixID    int `json:"prefix_id"`
	NextTokenID int `json:"next_token_id"`
	Frequency   int `json:"frequency"`
}

// Export serializes a named model into JSON and writes it to the provided
// io.Writer. This is useful for backups or for transferring models between
// databases.
func (s *Store) Export(ctx context.Context, name string, w io.Writer) error {
	info, err := s.Info(ctx, name)
	if err != nil {
		return err
	}

	rows, err := s.stmtGetChains.QueryContext(ctx, info.Id)
	if err != nil {
		return fmt.Errorf("could not query chains for export: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var exportedChains []ExportedChain
	prefixIDs := make(map[int]struct{})
	tokenIDs := make(map[int]struct{})

	for rows.Next() {
		var chain ExportedChain
		if err := rows.Scan(&chain.PrefixID, &chain.NextTokenID, &chain.Frequency); err != nil {
			return err
		}
		exportedChains = append(exportedChains, chain)
		prefixIDs[chain.PrefixID] = struct{}{}
		tokenIDs[chain.NextTokenID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prefixTexts, err := s.textsByID(ctx, "markov_prefixes", "prefix_id", "prefix_text", prefixIDs)
	if err != nil {
		return err
	}
	prefixTextToID := make(map[string]int, len(prefixTexts))
	for id, text := range prefixTexts {
		prefixTextToID[text] = id
		for _, idStr := range strings.Split(text, " ") {
			tokenID, _ := strconv.Atoi(idStr)
			tokenIDs[tokenID] = struct{}{}
		}
	}

	tokenTexts, err := s.textsByID(ctx, "markov_vocabulary", "token_id", "token_text", tokenIDs)
	if err != nil {
		return err
	}
	tokenTextToID := make(map[string]int, len(tokenTexts))
	for id, text := range tokenTexts {
		tokenTextToID[text] = id
	}

	exported := ExportedModel{
		Name:       info.Name,
		Order:      info.Order,
		Vocabulary: tokenTextToID,
		Prefixes:   prefixTextToID,
		Chains:     exportedChains,
	}

	s.logger.InfoContext(ctx, "Model exported",
		slog.String("model_name", info.Name),
		slog.Int("model_id", info.Id),
		slog.Int("vocab_items_exported", len(tokenTextToID)),
		slog.Int("prefixes_exported", len(prefixTextToID)),
		slog.Int("chains_exported", len(exportedChains)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// Import reads a JSON representation of a model from an io.Reader and merges
// its data into the database. If the model name already exists, the new chain
// data is merged with the existing data (frequencies are added); otherwise
// the model is created. The entire operation is transactional and handles
// re-mapping of vocabulary and prefix IDs.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	var imported ExportedModel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return fmt.Errorf("failed to decode json model: %w", err)
	}
	if imported.Order < 1 {
		return fmt.Errorf("imported model '%s' has invalid order %d: %w", imported.Name, imported.Order, markov.ErrInvalidOrder)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	err = tx.StmtContext(ctx, s.stmtGetModel).QueryRowContext(ctx, imported.Name).Scan(&modelID, new(int))
	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.StmtContext(ctx, s.stmtAddModel).ExecContext(ctx, imported.Name, imported.Order)
		if err != nil {
			return fmt.Errorf("failed to insert new model '%s': %w", imported.Name, err)
		}
		newID, _ := res.LastInsertId()
		modelID = int(newID)
	} else if err != nil {
		return fmt.Errorf("failed to query for model '%s': %w", imported.Name, err)
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	stmtGetOrInsertPrefix := tx.StmtContext(ctx, s.stmtGetOrInsertPrefix)

	vocabIDMap := make(map[int]int) // old_id -> new_id
	vocabIDMap[SOCTokenID] = SOCTokenID
	vocabIDMap[EOCTokenID] = EOCTokenID

	for text, oldID := range imported.Vocabulary {
		if text == markov.SOCToken || text == markov.EOCToken {
			continue
		}
		var newID int
		if err := stmtInsertVocab.QueryRowContext(ctx, text).Scan(&newID); err != nil {
			return fmt.Errorf("failed to get/insert vocab '%s': %w", text, err)
		}
		vocabIDMap[oldID] = newID
	}

	// Prefixes need to be re-made with the new vocabulary IDs
	prefixIDMap := make(map[int]int) // old_id -> new_id
	newPrefixParts := make([]string, 0, imported.Order)

	for oldPrefixText, oldPrefixID := range imported.Prefixes {
		oldTokenIDs := strings.Split(oldPrefixText, " ")
		newPrefixParts = newPrefixParts[:0]

		for _, oldTokenIDStr := range oldTokenIDs {
			oldTokenID, _ := strconv.Atoi(oldTokenIDStr)
			newTokenID, ok := vocabIDMap[oldTokenID]
			if !ok {
				return fmt.Errorf("consistency error: old token id %d in prefix not found in vocab map", oldTokenID)
			}
			newPrefixParts = append(newPrefixParts, strconv.Itoa(newTokenID))
		}

		newPrefixText := strings.Join(newPrefixParts, " ")

		var newPrefixID int
		if err := stmtGetOrInsertPrefix.QueryRowContext(ctx, newPrefixText).Scan(&newPrefixID); err != nil {
			return fmt.Errorf("failed to get/insert rebuilt prefix '%s': %w", newPrefixText, err)
		}
		prefixIDMap[oldPrefixID] = newPrefixID
	}

	// If we're updating instead of inserting, add to the frequency value instead of overwriting it
	stmtInsertChain, err := tx.PrepareContext(ctx, `
		INSERT INTO markov_chains (model_id, prefix_id, next_token_id, frequency) VALUES (?, ?, ?, ?)
		ON CONFLICT(model_id, prefix_id, next_token_id) DO UPDATE SET frequency = frequency + excluded.frequency;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare chain insert statement: %w", err)
	}
	defer func(stmtInsertChain *sql.Stmt) {
		_ = stmtInsertChain.Close()
	}(stmtInsertChain)

	for _, chain := range imported.Chains {
		newPrefixID, ok := prefixIDMap[chain.PrefixID]
		if !ok {
			return fmt.Errorf("import consistency error: old prefix id %d not found in prefix map", chain.PrefixID)
		}
		newNextTokenID, ok := vocabIDMap[chain.NextTokenID]
		if !ok {
			return fmt.Errorf("import consistency error: old token id %d not found in vocab map", chain.NextTokenID)
		}

		if _, err = stmtInsertChain.ExecContext(ctx, modelID, newPrefixID, newNextTokenID, chain.Frequency); err != nil {
			return fmt.Errorf("failed to insert chain link (%d -> %d): %w", newPrefixID, newNextTokenID, err)
		}
	}

	s.logger.InfoContext(ctx, "Model imported",
		slog.String("model_name", imported.Name),
		slog.Int("target_model_id", modelID),
		slog.Int("vocab_items_merged", len(imported.Vocabulary)),
		slog.Int("prefixes_merged", len(imported.Prefixes)),
		slog.Int("chains_merged", len(imported.Chains)),
	)

	return tx.Commit()
}
