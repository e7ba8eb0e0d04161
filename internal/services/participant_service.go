package services

import (
	"context"
	"strings"
	"time"

	"greendrake/freight/internal/db"
	"greendrake/freight/internal/models"
	"greendrake/freight/internal/repository"
	"greendrake/freight/internal/schema"
	"greendrake/freight/internal/utils"
)

// IParticipantService manages carriers. Every change to a participant's
// activity appends to its request log in the same transaction.
type IParticipantService interface {
	List(ctx context.Context) ([]models.Participant, error)
	Create(ctx context.Context, in schema.ParticipantCreate) (*models.Participant, error)
	Get(ctx context.Context, id int64) (*models.Participant, error)
	Update(ctx context.Context, id int64, in schema.ParticipantUpdate) (*models.Participant, error)
	Delete(ctx context.Context, id int64) error
}

type participantService struct {
	participants repository.ParticipantRepository
	assignments  repository.AssignmentRepository
	tx           db.Transactor
	cache        IAuctionViewCache
	now          func() time.Time
}

// NewParticipantService creates an IParticipantService. cache may be nil;
// when set, auction views embedding a changed participant are invalidated.
func NewParticipantService(store *repository.Store, tx db.Transactor, cache IAuctionViewCache) IParticipantService {
	return &participantService{
		participants: store.Participants,
		assignments:  store.Assignments,
		tx:           tx,
		cache:        cache,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *participantService) List(ctx context.Context) ([]models.Participant, error) {
	return s.participants.ListActive(ctx)
}

func (s *participantService) Create(ctx context.Context, in schema.ParticipantCreate) (*models.Participant, error) {
	if err := schema.Validate(in); err != nil {
		return nil, err
	}
	phone, err := schema.ParsePhone(in.Phone)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.Participant{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		ContactName: strings.TrimSpace(in.ContactName),
		Phone:       phone,
		IsActive:    true,
		ActiveSince: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.participants.Create(txCtx, p); err != nil {
			return err
		}
		return s.participants.AppendRequest(txCtx, &models.ParticipantRequest{
			ParticipantID: p.ID,
			IsActive:      true,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}
	utils.Info("participant created", map[string]any{"participant_id": p.ID})
	return p, nil
}

// Get reports IsActive from the latest request, falling back to the row
// for participants without any request.
func (s *participantService) Get(ctx context.Context, id int64) (*models.Participant, error) {
	p, err := s.participants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	latest, err := s.participants.LatestRequests(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if req, ok := latest[id]; ok {
		p.IsActive = req.IsActive
	}
	return p, nil
}

func (s *participantService) Update(ctx context.Context, id int64, in schema.ParticipantUpdate) (*models.Participant, error) {
	if err := schema.Validate(in); err != nil {
		return nil, err
	}
	patch := repository.ParticipantPatch{Name: in.Name, Email: in.Email, ContactName: in.ContactName}
	if in.Phone != nil {
		phone, err := schema.ParsePhone(*in.Phone)
		if err != nil {
			return nil, err
		}
		patch.Phone = &phone
	}

	now := s.now()
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.participants.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		active := current.IsActive
		if in.IsActive != nil {
			active = *in.IsActive
			if err := s.participants.SetActive(txCtx, id, active, now); err != nil {
				return err
			}
		}
		if err := s.participants.Update(txCtx, id, patch, now); err != nil {
			return err
		}
		return s.participants.AppendRequest(txCtx, &models.ParticipantRequest{
			ParticipantID: id,
			IsActive:      active,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidateAuctions(ctx, id)
	return s.Get(ctx, id)
}

// Delete deactivates the participant; rows are never removed.
func (s *participantService) Delete(ctx context.Context, id int64) error {
	now := s.now()
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.participants.SetActive(txCtx, id, false, now); err != nil {
			return err
		}
		return s.participants.AppendRequest(txCtx, &models.ParticipantRequest{
			ParticipantID: id,
			IsActive:      false,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return err
	}
	s.invalidateAuctions(ctx, id)
	utils.Info("participant deleted", map[string]any{"participant_id": id})
	return nil
}

// invalidateAuctions drops the cached views of every auction the participant
// is assigned to.
func (s *participantService) invalidateAuctions(ctx context.Context, participantID int64) {
	if s.cache == nil {
		return
	}
	auctionIDs, err := s.assignments.AuctionIDsByParticipant(ctx, participantID)
	if err != nil {
		utils.Warn("failed to list auctions of participant", map[string]any{"participant_id": participantID, "error": err.Error()})
		return
	}
	invalidateView(ctx, s.cache, auctionIDs...)
}
