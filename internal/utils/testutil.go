package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	testMongoURI  string
	testRedisAddr string
	loadEnvOnce   sync.Once
)

// loadTestEnv loads .env from the project root, falling back to the working directory.
func loadTestEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		_ = godotenv.Load()
	}
	testMongoURI = os.Getenv("MONGO_URI_TEST")
	testRedisAddr = os.Getenv("REDIS_ADDR_TEST")
}

// SetupTestDB connects to MONGO_URI_TEST and drops the given collections.
// Tests are skipped when no test database is configured. Transactions need
// the server to run as a replica set.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	uri := GetTestMongoURI()
	if uri == "" {
		t.Skip("MONGO_URI_TEST not set; skipping MongoDB test")
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	db := client.Database(dbName)

	for _, collection := range collections {
		_ = db.Collection(collection).Drop(context.Background())
	}

	return db
}

// GetTestMongoURI returns the test MongoDB URI, or "" when unset.
func GetTestMongoURI() string {
	loadEnvOnce.Do(loadTestEnv)
	return testMongoURI
}

// SetupTestRedis connects to REDIS_ADDR_TEST and flushes the selected database.
// Tests are skipped when no test Redis is configured.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	loadEnvOnce.Do(loadTestEnv)
	if testRedisAddr == "" {
		t.Skip("REDIS_ADDR_TEST not set; skipping Redis test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: testRedisAddr, DB: 15})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err(), "Failed to connect to Redis")
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	return rdb
}
