package services

import (
	"context"
	"errors"
	"time"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/db"
	"greendrake/freight/internal/models"
	"greendrake/freight/internal/repository"
	"greendrake/freight/internal/utils"
)

// IAssignmentService replaces the participant set of an auction.
type IAssignmentService interface {
	AssignParticipants(ctx context.Context, userID, auctionID int64, participantIDs []int64) ([]models.AuctionParticipant, error)
}

type assignmentService struct {
	auctions     repository.AuctionRepository
	participants repository.ParticipantRepository
	assignments  repository.AssignmentRepository
	tx           db.Transactor
	cache        IAuctionViewCache
	now          func() time.Time
}

// NewAssignmentService creates an IAssignmentService. cache may be nil.
func NewAssignmentService(store *repository.Store, tx db.Transactor, cache IAuctionViewCache) IAssignmentService {
	return &assignmentService{
		auctions:     store.Auctions,
		participants: store.Participants,
		assignments:  store.Assignments,
		tx:           tx,
		cache:        cache,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// AssignParticipants makes the auction's assignment set exactly the distinct
// participantIDs, or leaves it untouched on any failure.
func (s *assignmentService) AssignParticipants(ctx context.Context, userID, auctionID int64, participantIDs []int64) ([]models.AuctionParticipant, error) {
	if _, err := s.auctions.FindOwned(ctx, userID, auctionID); err != nil {
		return nil, err
	}

	eligible, err := FilterEligible(ctx, s.participants, auctionID, participantIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rows := make([]models.AuctionParticipant, 0, len(eligible))
	for _, e := range eligible {
		rows = append(rows, models.AuctionParticipant{
			AuctionID:            auctionID,
			ParticipantID:        e.Participant.ID,
			ParticipantRequestID: e.Request.ID,
			Status:               models.AssignmentPending,
			CreatedAt:            now,
		})
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.assignments.ReplaceForAuction(txCtx, auctionID, rows)
	})
	if err != nil {
		utils.Error("assignment transaction failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		if errors.Is(err, auctionerrors.ErrValidation) {
			return nil, err
		}
		return nil, &auctionerrors.PersistenceError{Op: "assignment", Err: err}
	}

	invalidateView(ctx, s.cache, auctionID)
	utils.Info("participants assigned", map[string]any{"auction_id": auctionID, "user_id": userID, "count": len(rows)})
	return rows, nil
}

func invalidateView(ctx context.Context, cache IAuctionViewCache, auctionIDs ...int64) {
	if cache == nil || len(auctionIDs) == 0 {
		return
	}
	if err := cache.InvalidateAuctionView(ctx, auctionIDs...); err != nil {
		utils.Warn("failed to invalidate auction views", map[string]any{"auction_ids": auctionIDs, "error": err.Error()})
	}
}
