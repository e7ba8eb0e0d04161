package services

import (
	"context"
	"time"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/models"
	"greendrake/freight/internal/repository"
	"greendrake/freight/internal/schema"
	"greendrake/freight/internal/utils"
)

// IAuctionService manages the session user's auctions. Auctions owned by
// other users, or deleted ones, are reported as not found.
type IAuctionService interface {
	List(ctx context.Context, userID int64) ([]models.AuctionSummary, error)
	Create(ctx context.Context, userID int64, detail models.AuctionDetail) (*models.AuctionRecord, error)
	Get(ctx context.Context, userID, auctionID int64) (*models.AuctionView, error)
	Update(ctx context.Context, userID, auctionID int64, detail models.AuctionDetail) (*models.AuctionRecord, error)
	Delete(ctx context.Context, userID, auctionID int64) error
	ListAssignments(ctx context.Context, userID, auctionID int64) ([]models.AssignmentView, error)
}

type auctionService struct {
	auctions     repository.AuctionRepository
	participants repository.ParticipantRepository
	assignments  repository.AssignmentRepository
	cache        IAuctionViewCache
	now          func() time.Time
}

// NewAuctionService creates an IAuctionService. cache may be nil.
func NewAuctionService(store *repository.Store, cache IAuctionViewCache) IAuctionService {
	return &auctionService{
		auctions:     store.Auctions,
		participants: store.Participants,
		assignments:  store.Assignments,
		cache:        cache,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// normalizeDetail trims and upper-cases detail before validating it.
func normalizeDetail(detail models.AuctionDetail) (models.AuctionDetail, error) {
	detail = detail.Normalized()
	if err := schema.Validate(detail); err != nil {
		return detail, err
	}
	return detail, nil
}

func (s *auctionService) List(ctx context.Context, userID int64) ([]models.AuctionSummary, error) {
	auctions, err := s.auctions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.AuctionSummary, 0, len(auctions))
	for i := range auctions {
		out = append(out, auctions[i].Summary())
	}
	return out, nil
}

func (s *auctionService) Create(ctx context.Context, userID int64, detail models.AuctionDetail) (*models.AuctionRecord, error) {
	detail, err := normalizeDetail(detail)
	if err != nil {
		return nil, err
	}
	now := s.now()
	auction := &models.Auction{
		UserID:    userID,
		IsActive:  true,
		Detail:    detail,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.auctions.Create(ctx, auction); err != nil {
		return nil, err
	}
	utils.Info("auction created", map[string]any{"auction_id": auction.ID, "user_id": userID})
	rec := auction.Record()
	return &rec, nil
}

// Get serves from the view cache when the cached entry belongs to userID.
// A rebuilt view is cached only if no invalidation raced with the rebuild.
func (s *auctionService) Get(ctx context.Context, userID, auctionID int64) (*models.AuctionView, error) {
	cacheable := false
	var version int64
	if s.cache != nil {
		entry, v, err := s.cache.GetAuctionView(ctx, auctionID)
		if err != nil {
			utils.Warn("auction view cache read failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		} else if entry != nil && entry.OwnerID == userID {
			return &entry.View, nil
		} else {
			cacheable, version = true, v
		}
	}

	auction, err := s.auctions.FindOwned(ctx, userID, auctionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.assignments.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ParticipantID)
	}
	byID, err := s.participantsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := models.AuctionView{AuctionRecord: auction.Record(), Participants: []models.ParticipantSummary{}}
	for _, r := range rows {
		// Rows pointing at a vanished participant are skipped.
		if p, ok := byID[r.ParticipantID]; ok {
			view.Participants = append(view.Participants, p.Summary())
		}
	}

	if cacheable {
		stored, err := s.cache.SetAuctionView(ctx, auctionID, version, &models.CachedAuctionView{OwnerID: userID, View: view})
		if err != nil {
			utils.Warn("auction view cache write failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		} else if !stored {
			utils.Debug("auction view changed while loading, not cached", map[string]any{"auction_id": auctionID})
		}
	}
	return &view, nil
}

func (s *auctionService) Update(ctx context.Context, userID, auctionID int64, detail models.AuctionDetail) (*models.AuctionRecord, error) {
	detail, err := normalizeDetail(detail)
	if err != nil {
		return nil, err
	}
	auction, err := s.auctions.UpdateDetail(ctx, userID, auctionID, detail, s.now())
	if err != nil {
		return nil, err
	}
	invalidateView(ctx, s.cache, auctionID)
	rec := auction.Record()
	return &rec, nil
}

func (s *auctionService) Delete(ctx context.Context, userID, auctionID int64) error {
	if err := s.auctions.Deactivate(ctx, userID, auctionID, s.now()); err != nil {
		return err
	}
	invalidateView(ctx, s.cache, auctionID)
	utils.Info("auction deleted", map[string]any{"auction_id": auctionID, "user_id": userID})
	return nil
}

func (s *auctionService) ListAssignments(ctx context.Context, userID, auctionID int64) ([]models.AssignmentView, error) {
	if _, err := s.auctions.FindOwned(ctx, userID, auctionID); err != nil {
		return nil, err
	}
	rows, err := s.assignments.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ParticipantID)
	}
	byID, err := s.participantsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.AssignmentView, 0, len(rows))
	for _, r := range rows {
		v := models.AssignmentView{AuctionParticipant: r}
		if p, ok := byID[r.ParticipantID]; ok {
			summary := p.Summary()
			v.Participant = &summary
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *auctionService) participantsByID(ctx context.Context, ids []int64) (map[int64]*models.Participant, error) {
	rows, err := s.participants.FindByIDs(ctx, ids)
	if err != nil {
		return nil, auctionerrors.NewPersistence("load participants", err)
	}
	byID := make(map[int64]*models.Participant, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	return byID, nil
}
