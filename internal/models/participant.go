package models

import "time"

// Participant is a carrier company that can be invited to auctions.
type Participant struct {
	Base        `bson:",inline"`
	Name        string     `bson:"name" json:"name"`
	Email       string     `bson:"email" json:"email"`
	ContactName string     `bson:"contact_name" json:"contactName"`
	Phone       int64      `bson:"phone" json:"phone,string"`
	IsActive    bool       `bson:"is_active" json:"isActive"`
	ActiveSince *time.Time `bson:"active_since,omitempty" json:"activeSince,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
}

// ParticipantRequest is one entry of a participant's append-only activation log.
type ParticipantRequest struct {
	Base          `bson:",inline"`
	ParticipantID int64     `bson:"participant_id" json:"participantId"`
	IsActive      bool      `bson:"is_active" json:"isActive"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
}

// Supersedes reports whether r is more recent than other: later CreatedAt
// wins, and equal timestamps fall back to the larger ID.
func (r ParticipantRequest) Supersedes(other ParticipantRequest) bool {
	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.After(other.CreatedAt)
	}
	return r.ID > other.ID
}

// LatestRequests reduces a request log to the newest entry per participant.
func LatestRequests(requests []ParticipantRequest) map[int64]ParticipantRequest {
	latest := make(map[int64]ParticipantRequest, len(requests))
	for _, r := range requests {
		cur, ok := latest[r.ParticipantID]
		if !ok || r.Supersedes(cur) {
			latest[r.ParticipantID] = r
		}
	}
	return latest
}
