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

type mongoAuctionRepository struct {
	db  *mongo.Database
	seq db.Sequence
}

func ownedFilter(userID, id int64) bson.M {
	return bson.M{"_id": id, "user_id": userID, "is_active": true}
}

func (r *mongoAuctionRepository) Create(ctx context.Context, a *models.Auction) error {
	return auctionerrors.NewPersistence("create auction",
		insertWithID(ctx, r.db.Collection(auctionsCollection), r.seq, a))
}

func (r *mongoAuctionRepository) FindOwned(ctx context.Context, userID, id int64) (*models.Auction, error) {
	var a models.Auction
	if err := r.db.Collection(auctionsCollection).FindOne(ctx, ownedFilter(userID, id)).Decode(&a); err != nil {
		return nil, notFound("find auction", "auction", id, err)
	}
	return &a, nil
}

func (r *mongoAuctionRepository) ListByUser(ctx context.Context, userID int64) ([]models.Auction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.db.Collection(auctionsCollection).Find(ctx, bson.M{"user_id": userID, "is_active": true}, opts)
	if err != nil {
		return nil, auctionerrors.NewPersistence("list auctions", err)
	}
	defer cursor.Close(ctx)

	auctions := []models.Auction{}
	if err = cursor.All(ctx, &auctions); err != nil {
		return nil, auctionerrors.NewPersistence("decode auctions", err)
	}
	return auctions, nil
}

func (r *mongoAuctionRepository) UpdateDetail(ctx context.Context, userID, id int64, detail models.AuctionDetail, at time.Time) (*models.Auction, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var a models.Auction
	err := r.db.Collection(auctionsCollection).FindOneAndUpdate(ctx, ownedFilter(userID, id),
		bson.M{"$set": bson.M{"detail": detail, "updated_at": at}}, opts).Decode(&a)
	if err != nil {
		return nil, notFound("update auction", "auction", id, err)
	}
	return &a, nil
}

func (r *mongoAuctionRepository) Deactivate(ctx context.Context, userID, id int64, at time.Time) error {
	res, err := r.db.Collection(auctionsCollection).UpdateOne(ctx, ownedFilter(userID, id),
		bson.M{"$set": bson.M{"is_active": false, "updated_at": at}})
	if err != nil {
		return auctionerrors.NewPersistence("deactivate auction", err)
	}
	if res.MatchedCount == 0 {
		return auctionerrors.NewNotFound("auction", id)
	}
	return nil
}

type mongoAssignmentRepository struct {
	db  *mongo.Database
	seq db.Sequence
}

func (r *mongoAssignmentRepository) ReplaceForAuction(ctx context.Context, auctionID int64, rows []models.AuctionParticipant) error {
	coll := r.db.Collection(assignmentsCollection)
	if _, err := coll.DeleteMany(ctx, bson.M{"auction_id": auctionID}); err != nil {
		return auctionerrors.NewPersistence("clear auction participants", err)
	}
	if len(rows) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(rows))
	for i := range rows {
		id, err := r.seq.NextID(ctx, assignmentsCollection)
		if err != nil {
			return auctionerrors.NewPersistence("allocate auction participant id", err)
		}
		rows[i].ID = id
		rows[i].AuctionID = auctionID
		docs = append(docs, rows[i])
	}
	_, err := coll.InsertMany(ctx, docs)
	if db.IsDuplicateOnIndex(err, db.IndexAssignmentAuctionPart) {
		return auctionerrors.NewValidationError("Duplicate participant in assignment")
	}
	return auctionerrors.NewPersistence("insert auction participants", err)
}

func (r *mongoAssignmentRepository) ListByAuction(ctx context.Context, auctionID int64) ([]models.AuctionParticipant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(assignmentsCollection).Find(ctx, bson.M{"auction_id": auctionID}, opts)
	if err != nil {
		return nil, auctionerrors.NewPersistence("list auction participants", err)
	}
	defer cursor.Close(ctx)

	rows := []models.AuctionParticipant{}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, auctionerrors.NewPersistence("decode auction participants", err)
	}
	return rows, nil
}

func (r *mongoAssignmentRepository) AuctionIDsByParticipant(ctx context.Context, participantID int64) ([]int64, error) {
	raw, err := r.db.Collection(assignmentsCollection).Distinct(ctx, "auction_id", bson.M{"participant_id": participantID})
	if err != nil {
		return nil, auctionerrors.NewPersistence("list participant auctions", err)
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		switch id := v.(type) {
		case int64:
			ids = append(ids, id)
		case int32:
			ids = append(ids, int64(id))
		}
	}
	return ids, nil
}
