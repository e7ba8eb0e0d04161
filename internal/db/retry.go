package db

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"greendrake/freight/internal/utils"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsRetryable decides whether a failed Operation should be attempted again.
type IsRetryable func(err error) bool

const DefaultMaxRetries = 3

// Try runs an insert that allocates its own _id, retrying when the allocated
// _id collides with an existing document (a counter that lags behind imported data).
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsMongoDuplicateIDError)
}

// WithRetries attempts op up to maxRetries+1 times, retrying only errors
// accepted by retryable, with a small incremental backoff.
func WithRetries(op Operation, maxRetries int, retryable IsRetryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			break
		}
		utils.Debug("retrying operation after duplicate key", map[string]any{"attempt": attempt + 1, "error": err.Error()})
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	return duplicateKeyMessage(err) != ""
}

// IsMongoDuplicateIDError is IsMongoDuplicateKeyError restricted to the _id index,
// so that violations of business unique indexes (such as users.email) are not retried.
func IsMongoDuplicateIDError(err error) bool {
	msg := duplicateKeyMessage(err)
	return msg != "" && strings.Contains(msg, "index: _id_")
}

// IsDuplicateOnIndex reports a duplicate key violation of the named index.
func IsDuplicateOnIndex(err error, index string) bool {
	msg := duplicateKeyMessage(err)
	return msg != "" && strings.Contains(msg, "index: "+index)
}

func duplicateKeyMessage(err error) string {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return e.Message
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 {
				return e.Message
			}
		}
	}
	return ""
}
