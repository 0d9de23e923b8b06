// internal/conversation/store.go
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agribot/internal/common/database"
	"agribot/internal/common/errors"
	"agribot/internal/common/logger"
	"agribot/internal/models"

	"github.com/google/uuid"
)

// Store is the append-only conversation log. Appends are fire-and-forget
// from the pipeline's point of view; history reads serve the UI.
type Store struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func New(es *database.ElasticsearchClient, index string, log logger.Logger) *Store {
	return &Store{
		es:    es,
		index: index,
		logger: log.With(map[string]interface{}{
			"component": "conversation",
		}),
	}
}

// Append indexes one conversation turn. Missing IDs and timestamps are
// filled in.
func (s *Store) Append(ctx context.Context, turn models.ConversationTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(turn)
	if err != nil {
		return errors.NewConversationSaveFailedError(err)
	}

	if err := s.es.Index(ctx, s.index, turn.ID, body); err != nil {
		return errors.NewConversationSaveFailedError(err)
	}

	s.logger.Debug("conversation turn saved", map[string]interface{}{
		"user_id": turn.UserID,
		"turn_id": turn.ID,
	})
	return nil
}

type searchHits struct {
	Hits struct {
		Hits []struct {
			Source models.ConversationTurn `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// History returns the user's most recent turns, newest first.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]models.ConversationTurn, error) {
	if limit <= 0 {
		limit = 20
	}

	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"user_id": userID,
			},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
	body, _ := json.Marshal(query)

	raw, err := s.es.Search(ctx, s.index, body)
	if err != nil {
		return nil, fmt.Errorf("conversation history query: %w", err)
	}

	var parsed searchHits
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode conversation history: %w", err)
	}

	turns := make([]models.ConversationTurn, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		turns = append(turns, hit.Source)
	}
	return turns, nil
}
