package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

// DBStats holds aggregated statistics for the entire database, including a
// list of all models and their individual stats.
type DBStats struct {
	Models     []ModelInfo        // A list of models in the database
	Stats      map[int]ModelStats // A mapping of model ids to their stats
	VocabSize  int                // The number of unique tokens in all models' vocabularies
	PrefixSize int                // The number of unique prefixes in all models' chains
}

// ModelStats holds aggregated statistics for a single persisted model.
type ModelStats struct {
	TotalChains    int // The number of unique prefix->next_token links.
	TotalFrequency int // The sum of frequencies of all links; the total number of trained transitions.
	StartingTokens int // The number of unique tokens that can start a chain.
}

// Stats returns a snapshot of statistics for the entire database, including
// global counts and per-model stats.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	infos, err := s.Infos(ctx)
	if err != nil {
		return nil, err
	}

	var vocabLen int
	if err = s.stmtGetVocabLen.QueryRowContext(ctx).Scan(&vocabLen); err != nil {
		return nil, err
	}

	var prefixLen int
	if err = s.stmtGetPrefixLen.QueryRowContext(ctx).Scan(&prefixLen); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(infos))
	modelStats := make(map[int]ModelStats)
	for _, info := range infos {
		models = append(models, info)

		var totalChains, totalFrequency, startingTokens int
		if err = s.stmtModelChains.QueryRowContext(ctx, info.Id).Scan(&totalChains); err != nil {
			return nil, err
		}
		if err = s.stmtModelFreq.QueryRowContext(ctx, info.Id).Scan(&totalFrequency); err != nil {
			return nil, err
		}

		// The starting prefix is the all-SOC window for this model's order.
		socParts := make([]string, info.Order)
		socStr := strconv.Itoa(SOCTokenID)
		for i := range socParts {
			socParts[i] = socStr
		}
		var socPrefixID int
		err = s.stmtGetPrefixID.QueryRowContext(ctx, strings.Join(socParts, " ")).Scan(&socPrefixID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
			startingTokens = 0
		} else {
			if err = s.stmtModelStarters.QueryRowContext(ctx, info.Id, socPrefixID).Scan(&startingTokens); err != nil {
				return nil, err
			}
		}

		modelStats[info.Id] = ModelStats{
			TotalChains:    totalChains,
			TotalFrequency: totalFrequency,
			StartingTokens: startingTokens,
		}
	}

	return &DBStats{
		Models:     models,
		Stats:      modelStats,
		VocabSize:  vocabLen,
		PrefixSize: prefixLen,
	}, nil
}
