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

type mongoParticipantRepository struct {
	db  *mongo.Database
	seq db.Sequence
}

func (r *mongoParticipantRepository) ListActive(ctx context.Context) ([]models.Participant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(participantsCollection).Find(ctx, bson.M{"is_active": true}, opts)
	if err != nil {
		return nil, auctionerrors.NewPersistence("list participants", err)
	}
	defer cursor.Close(ctx)

	participants := []models.Participant{}
	if err = cursor.All(ctx, &participants); err != nil {
		return nil, auctionerrors.NewPersistence("decode participants", err)
	}
	return participants, nil
}

// Create inserts without the id-collision retry: a failed write aborts the
// enclosing transaction anyway.
func (r *mongoParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	id, err := r.seq.NextID(ctx, participantsCollection)
	if err != nil {
		return auctionerrors.NewPersistence("allocate participant id", err)
	}
	p.ID = id
	_, err = r.db.Collection(participantsCollection).InsertOne(ctx, p)
	return auctionerrors.NewPersistence("create participant", err)
}

func (r *mongoParticipantRepository) FindByID(ctx context.Context, id int64) (*models.Participant, error) {
	var p models.Participant
	if err := r.db.Collection(participantsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound("find participant", "participant", id, err)
	}
	return &p, nil
}

func (r *mongoParticipantRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.Participant, error) {
	if len(ids) == 0 {
		return []models.Participant{}, nil
	}
	cursor, err := r.db.Collection(participantsCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, auctionerrors.NewPersistence("find participants", err)
	}
	defer cursor.Close(ctx)

	participants := []models.Participant{}
	if err = cursor.All(ctx, &participants); err != nil {
		return nil, auctionerrors.NewPersistence("decode participants", err)
	}
	return participants, nil
}

func (r *mongoParticipantRepository) Update(ctx context.Context, id int64, patch ParticipantPatch, at time.Time) error {
	set := bson.M{"updated_at": at}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.ContactName != nil {
		set["contact_name"] = *patch.ContactName
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	return r.set(ctx, "update participant", id, set)
}

// SetActive flips the participant row. ActiveSince moves only on activation.
func (r *mongoParticipantRepository) SetActive(ctx context.Context, id int64, active bool, at time.Time) error {
	set := bson.M{"is_active": active, "updated_at": at}
	if active {
		set["active_since"] = at
	}
	return r.set(ctx, "set participant active", id, set)
}

func (r *mongoParticipantRepository) set(ctx context.Context, op string, id int64, set bson.M) error {
	res, err := r.db.Collection(participantsCollection).UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return auctionerrors.NewPersistence(op, err)
	}
	if res.MatchedCount == 0 {
		return auctionerrors.NewNotFound("participant", id)
	}
	return nil
}

func (r *mongoParticipantRepository) AppendRequest(ctx context.Context, req *models.ParticipantRequest) error {
	id, err := r.seq.NextID(ctx, participantRequestsCollection)
	if err != nil {
		return auctionerrors.NewPersistence("allocate participant request id", err)
	}
	req.ID = id
	_, err = r.db.Collection(participantRequestsCollection).InsertOne(ctx, req)
	return auctionerrors.NewPersistence("append participant request", err)
}

// LatestRequests picks the newest request per participant on the server,
// ordering by created_at and then _id, both descending.
func (r *mongoParticipantRepository) LatestRequests(ctx context.Context, ids []int64) (map[int64]models.ParticipantRequest, error) {
	latest := make(map[int64]models.ParticipantRequest, len(ids))
	if len(ids) == 0 {
		return latest, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"participant_id": bson.M{"$in": ids}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "participant_id", Value: 1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}}},
		{{Key: "$group", Value: bson.M{"_id": "$participant_id", "latest": bson.M{"$first": "$$ROOT"}}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$latest"}}},
	}
	cursor, err := r.db.Collection(participantRequestsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, auctionerrors.NewPersistence("load latest participant requests", err)
	}
	defer cursor.Close(ctx)

	var requests []models.ParticipantRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, auctionerrors.NewPersistence("decode participant requests", err)
	}
	for _, req := range requests {
		latest[req.ParticipantID] = req
	}
	return latest, nil
}
