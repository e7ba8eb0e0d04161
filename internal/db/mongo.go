package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"greendrake/freight/internal/config"
	"greendrake/freight/internal/utils"
)

// ConnectDB connects to cfg.MongoURI and returns the client and the
// application database. Assignment replacement runs in multi-document
// transactions, so a standalone server is reported at startup.
func ConnectDB(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetAppName(cfg.AppName).
		SetRetryWrites(true)
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.MongoDbName)
	replicaSet, err := replicaSetName(connectCtx, database)
	if err != nil {
		utils.Warn("could not determine MongoDB topology", map[string]any{"error": err.Error()})
	} else if replicaSet == "" {
		utils.Warn("MongoDB is not a replica set; participant assignment will fail", nil)
	}
	utils.Info("connected to MongoDB", map[string]any{"database": cfg.MongoDbName, "replica_set": replicaSet})

	return client, database, nil
}

func replicaSetName(ctx context.Context, database *mongo.Database) (string, error) {
	var hello struct {
		SetName string `bson:"setName"`
	}
	if err := database.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return "", err
	}
	return hello.SetName, nil
}

func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	return nil
}
