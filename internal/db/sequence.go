package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const countersCollection = "counters"

// Sequence allocates increasing int64 identities per collection.
type Sequence interface {
	NextID(ctx context.Context, name string) (int64, error)
}

type mongoSequence struct {
	db *mongo.Database
}

// NewSequence returns a Sequence stored in the counters collection.
func NewSequence(db *mongo.Database) Sequence {
	return &mongoSequence{db: db}
}

// NextID atomically increments and returns the counter for name, creating it on first use.
func (s *mongoSequence) NextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := s.db.Collection(countersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).
		Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id for %s: %w", name, err)
	}
	return counter.Seq, nil
}
