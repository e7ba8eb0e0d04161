package services

import (
	"context"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/models"
	"greendrake/freight/internal/repository"
)

// DistinctIDs removes duplicates from ids, keeping first-seen order.
func DistinctIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// EligibleParticipant is a participant cleared for assignment together with
// the request that made it eligible.
type EligibleParticipant struct {
	Participant models.Participant
	Request     models.ParticipantRequest
}

// FilterEligible returns the eligible participants among ids, in input order.
// A participant is eligible when it exists, is active, and its latest request
// is active. Unless every distinct id is eligible (and there is at least one),
// it fails with a PartialEligibilityError.
func FilterEligible(ctx context.Context, participants repository.ParticipantRepository, auctionID int64, ids []int64) ([]EligibleParticipant, error) {
	requested := DistinctIDs(ids)
	if len(requested) == 0 {
		return nil, &auctionerrors.PartialEligibilityError{
			AuctionID: auctionID,
			Requested: requested,
			Found:     []int64{},
			Missing:   []int64{},
		}
	}

	rows, err := participants.FindByIDs(ctx, requested)
	if err != nil {
		return nil, auctionerrors.NewPersistence("load participants", err)
	}
	latest, err := participants.LatestRequests(ctx, requested)
	if err != nil {
		return nil, auctionerrors.NewPersistence("load participant requests", err)
	}

	byID := make(map[int64]models.Participant, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}

	eligible := make([]EligibleParticipant, 0, len(requested))
	found := make([]int64, 0, len(requested))
	missing := []int64{}
	for _, id := range requested {
		p, ok := byID[id]
		req, hasReq := latest[id]
		if !ok || !p.IsActive || !hasReq || !req.IsActive {
			missing = append(missing, id)
			continue
		}
		eligible = append(eligible, EligibleParticipant{Participant: p, Request: req})
		found = append(found, id)
	}

	if len(found) != len(requested) {
		return nil, &auctionerrors.PartialEligibilityError{
			AuctionID: auctionID,
			Requested: requested,
			Found:     found,
			Missing:   missing,
		}
	}
	return eligible, nil
}
