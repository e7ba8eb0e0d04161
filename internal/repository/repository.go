// Package repository persists the auction domain in MongoDB. Every method
// takes the caller's context, so calls made inside db.Transactor.WithTransaction
// join the surrounding transaction.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/db"
	"greendrake/freight/internal/models"
)

const (
	usersCollection               = "users"
	passwordResetsCollection      = "password_resets"
	participantsCollection        = "participants"
	participantRequestsCollection = "participant_requests"
	auctionsCollection            = "auctions"
	assignmentsCollection         = "auction_participants"
	emailTemplatesCollection      = "email_templates"
)

// ErrEmailExists is returned when a user with the same email already exists.
var ErrEmailExists = errors.New("email already in use by another account")

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	SetVerificationToken(ctx context.Context, id int64, token string, expires time.Time) error
	MarkVerified(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, hash string, at time.Time) error
}

type PasswordResetRepository interface {
	Create(ctx context.Context, reset *models.PasswordReset) error
	// FindValid returns the newest unconsumed, unexpired reset matching the token.
	FindValid(ctx context.Context, userID int64, token int, now time.Time) (*models.PasswordReset, error)
	Invalidate(ctx context.Context, id int64, at, lockedUntil time.Time) error
}

// ParticipantPatch holds the fields of a partial participant update.
type ParticipantPatch struct {
	Name        *string
	Email       *string
	ContactName *string
	Phone       *int64
}

type ParticipantRepository interface {
	ListActive(ctx context.Context) ([]models.Participant, error)
	Create(ctx context.Context, p *models.Participant) error
	FindByID(ctx context.Context, id int64) (*models.Participant, error)
	FindByIDs(ctx context.Context, ids []int64) ([]models.Participant, error)
	Update(ctx context.Context, id int64, patch ParticipantPatch, at time.Time) error
	SetActive(ctx context.Context, id int64, active bool, at time.Time) error
	AppendRequest(ctx context.Context, req *models.ParticipantRequest) error
	// LatestRequests maps each participant that has any request to its newest one.
	LatestRequests(ctx context.Context, ids []int64) (map[int64]models.ParticipantRequest, error)
}

type AuctionRepository interface {
	Create(ctx context.Context, a *models.Auction) error
	// FindOwned returns the active auction id owned by userID, or a NotFoundError.
	FindOwned(ctx context.Context, userID, id int64) (*models.Auction, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Auction, error)
	UpdateDetail(ctx context.Context, userID, id int64, detail models.AuctionDetail, at time.Time) (*models.Auction, error)
	Deactivate(ctx context.Context, userID, id int64, at time.Time) error
}

type AssignmentRepository interface {
	// ReplaceForAuction deletes every assignment of the auction and inserts rows.
	// It must run inside a transaction to be atomic.
	ReplaceForAuction(ctx context.Context, auctionID int64, rows []models.AuctionParticipant) error
	ListByAuction(ctx context.Context, auctionID int64) ([]models.AuctionParticipant, error)
	// AuctionIDsByParticipant lists the auctions the participant is assigned to.
	AuctionIDsByParticipant(ctx context.Context, participantID int64) ([]int64, error)
}

type EmailTemplateRepository interface {
	Find(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	Save(ctx context.Context, tpl *models.EmailTemplate) error
	Delete(ctx context.Context, templateID, locale string) error
}

// Store bundles every repository over one database.
type Store struct {
	Users          UserRepository
	PasswordResets PasswordResetRepository
	Participants   ParticipantRepository
	Auctions       AuctionRepository
	Assignments    AssignmentRepository
	EmailTemplates EmailTemplateRepository
}

// NewStore builds the MongoDB repositories. IDs are allocated from the counters collection.
func NewStore(database *mongo.Database) *Store {
	seq := db.NewSequence(database)
	return &Store{
		Users:          &mongoUserRepository{db: database, seq: seq},
		PasswordResets: &mongoPasswordResetRepository{db: database, seq: seq},
		Participants:   &mongoParticipantRepository{db: database, seq: seq},
		Auctions:       &mongoAuctionRepository{db: database, seq: seq},
		Assignments:    &mongoAssignmentRepository{db: database, seq: seq},
		EmailTemplates: &mongoEmailTemplateRepository{db: database},
	}
}

// insertWithID allocates an id for doc and inserts it, allocating a fresh id
// if the previous one collides.
func insertWithID(ctx context.Context, coll *mongo.Collection, seq db.Sequence, doc models.IBase) error {
	return db.Try(func() error {
		id, err := seq.NextID(ctx, coll.Name())
		if err != nil {
			return err
		}
		doc.SetID(id)
		_, err = coll.InsertOne(ctx, doc)
		return err
	})
}

// notFound converts mongo.ErrNoDocuments to a NotFoundError and wraps anything else.
func notFound(op, resource string, id int64, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return auctionerrors.NewNotFound(resource, id)
	}
	return auctionerrors.NewPersistence(op, err)
}
