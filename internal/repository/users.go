package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/db"
	"greendrake/freight/internal/models"
)

type mongoUserRepository struct {
	db  *mongo.Database
	seq db.Sequence
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	err := insertWithID(ctx, r.db.Collection(usersCollection), r.seq, user)
	if db.IsDuplicateOnIndex(err, db.IndexUserEmail) {
		return ErrEmailExists
	}
	return auctionerrors.NewPersistence("create user", err)
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, notFound("find user by email", "user", 0, err)
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, notFound("find user", "user", id, err)
	}
	return &user, nil
}

func (r *mongoUserRepository) SetVerificationToken(ctx context.Context, id int64, token string, expires time.Time) error {
	return r.update(ctx, "set verification token", id, bson.M{
		"verification_token":         token,
		"verification_token_expires": expires,
		"updated_at":                 time.Now().UTC(),
	}, nil)
}

// MarkVerified activates the account and clears the verification token.
func (r *mongoUserRepository) MarkVerified(ctx context.Context, id int64, at time.Time) error {
	return r.update(ctx, "mark user verified", id, bson.M{
		"is_verified":    true,
		"is_active":      true,
		"verified_since": at,
		"updated_at":     at,
	}, bson.M{"verification_token": "", "verification_token_expires": ""})
}

func (r *mongoUserRepository) UpdatePassword(ctx context.Context, id int64, hash string, at time.Time) error {
	return r.update(ctx, "update password", id, bson.M{"password": hash, "updated_at": at}, nil)
}

func (r *mongoUserRepository) update(ctx context.Context, op string, id int64, set, unset bson.M) error {
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := r.db.Collection(usersCollection).UpdateByID(ctx, id, update)
	if err != nil {
		return auctionerrors.NewPersistence(op, err)
	}
	if res.MatchedCount == 0 {
		return auctionerrors.NewNotFound("user", id)
	}
	return nil
}

type mongoPasswordResetRepository struct {
	db  *mongo.Database
	seq db.Sequence
}

func (r *mongoPasswordResetRepository) Create(ctx context.Context, reset *models.PasswordReset) error {
	return auctionerrors.NewPersistence("create password reset",
		insertWithID(ctx, r.db.Collection(passwordResetsCollection), r.seq, reset))
}

func (r *mongoPasswordResetRepository) FindValid(ctx context.Context, userID int64, token int, now time.Time) (*models.PasswordReset, error) {
	filter := bson.M{
		"user_id":           userID,
		"token":             token,
		"token_expires_at":  bson.M{"$gt": now},
		"token_valid_until": bson.M{"$exists": false},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "token_expires_at", Value: -1}})

	var reset models.PasswordReset
	if err := r.db.Collection(passwordResetsCollection).FindOne(ctx, filter, opts).Decode(&reset); err != nil {
		return nil, notFound("find password reset", "password reset", 0, err)
	}
	return &reset, nil
}

// Invalidate consumes the reset so it cannot be redeemed again. A reset that
// is already consumed or expired is reported as not found.
func (r *mongoPasswordResetRepository) Invalidate(ctx context.Context, id int64, at, lockedUntil time.Time) error {
	filter := bson.M{
		"_id":               id,
		"token_expires_at":  bson.M{"$gt": at},
		"token_valid_until": bson.M{"$exists": false},
	}
	res, err := r.db.Collection(passwordResetsCollection).UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"token_valid_until":  at,
		"token_locked_until": lockedUntil,
	}})
	if err != nil {
		return auctionerrors.NewPersistence("invalidate password reset", err)
	}
	if res.MatchedCount == 0 {
		return auctionerrors.NewNotFound("password reset", id)
	}
	return nil
}
