package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/freight/internal/utils"
)

// Index names referenced when classifying duplicate key errors.
const (
	IndexUserEmail             = "user_email_unique"
	IndexAssignmentAuctionPart = "auction_participant_unique"
)

// EnsureIndexes creates the indexes every collection relies on. It is idempotent.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(IndexUserEmail)},
		},
		"password_resets": {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "token", Value: 1}, {Key: "token_expires_at", Value: -1}}},
		},
		"participants": {
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "name", Value: 1}}},
		},
		"participant_requests": {
			{Keys: bson.D{{Key: "participant_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
		"auctions": {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		"auction_participants": {
			{
				Keys:    bson.D{{Key: "auction_id", Value: 1}, {Key: "participant_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(IndexAssignmentAuctionPart),
			},
			{Keys: bson.D{{Key: "participant_id", Value: 1}}},
		},
		"email_templates": {
			{Keys: bson.D{{Key: "template_id", Value: 1}, {Key: "locale", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for collection, models := range specs {
		if _, err := database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	utils.Info("indexes ensured", map[string]any{"collections": len(specs)})
	return nil
}
