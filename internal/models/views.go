package models

import "time"

// ParticipantSummary is the participant shape embedded in auction responses.
type ParticipantSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	ContactName string `json:"contactName"`
	Phone       int64  `json:"phone,string"`
}

func (p *Participant) Summary() ParticipantSummary {
	return ParticipantSummary{ID: p.ID, Name: p.Name, Email: p.Email, ContactName: p.ContactName, Phone: p.Phone}
}

// AuctionSummary is one row of the auction listing.
type AuctionSummary struct {
	ID          int64     `json:"id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	IsActive    bool      `json:"isActive"`
	Description string    `json:"description"`
	Freight     string    `json:"freight"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (a *Auction) Summary() AuctionSummary {
	return AuctionSummary{
		ID:          a.ID,
		From:        a.Detail.From,
		To:          a.Detail.To,
		IsActive:    a.IsActive,
		Description: a.Detail.Description,
		Freight:     a.Detail.Freight,
		CreatedAt:   a.CreatedAt,
	}
}

// AuctionRecord is an auction with its detail flattened into the top level.
type AuctionRecord struct {
	ID        int64     `json:"id"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	AuctionDetail
}

func (a *Auction) Record() AuctionRecord {
	return AuctionRecord{ID: a.ID, IsActive: a.IsActive, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt, AuctionDetail: a.Detail}
}

// AuctionView is an auction with the participants currently assigned to it.
type AuctionView struct {
	AuctionRecord
	Participants []ParticipantSummary `json:"participants"`
}

// CachedAuctionView is the cache entry for an AuctionView; OwnerID lets
// readers enforce ownership without a database round trip.
type CachedAuctionView struct {
	OwnerID int64       `json:"ownerId"`
	View    AuctionView `json:"view"`
}

// AssignmentView is an assignment row with the participant it points at.
type AssignmentView struct {
	AuctionParticipant
	Participant *ParticipantSummary `json:"participant,omitempty"`
}
