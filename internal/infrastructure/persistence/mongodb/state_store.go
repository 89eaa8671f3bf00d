package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kartal788/dftest/internal/domain/media"
)

const stateDocumentID = "db_index"

// StateStore keeps the active shard pointer in the tracking database.
type StateStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewStateStore wraps the state collection.
func NewStateStore(coll *mongo.Collection, timeout time.Duration) *StateStore {
	return &StateStore{coll: coll, timeout: timeout}
}

var _ media.StateStore = (*StateStore)(nil)

func (s *StateStore) Get(ctx context.Context) (int, bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var state media.ShardState
	err := s.coll.FindOne(ctx, bson.M{"_id": stateDocumentID}).Decode(&state)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read shard state: %w", err)
	}
	return state.CurrentShardIndex, true, nil
}

func (s *StateStore) Set(ctx context.Context, index int) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": stateDocumentID},
		bson.M{"$set": bson.M{"current_index": index}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write shard state: %w", err)
	}
	return nil
}
