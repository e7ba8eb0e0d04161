package models

import (
	"strings"
	"time"
)

type VehicleClass string

const (
	VehicleUrbanCargo VehicleClass = "URBAN_CARGO"
	VehicleRuralCargo VehicleClass = "RURAL_CARGO"
	VehicleTruck      VehicleClass = "TRUCK"
	VehicleHeavyTruck VehicleClass = "HEAVY_TRUCK"
)

type ServiceType string

const (
	ServiceFleet     ServiceType = "FLEET"
	ServiceThirdPart ServiceType = "THIRD_PART"
)

type TrackingOption string

const (
	TrackingRealTime TrackingOption = "REAL_TIME"
	TrackingNo       TrackingOption = "NO"
)

type InsuranceOption string

const (
	InsuranceYes InsuranceOption = "YES"
	InsuranceNo  InsuranceOption = "NO"
)

// AuctionDetail is the freight request described by an auction.
type AuctionDetail struct {
	Description string          `bson:"description" json:"description" validate:"required"`
	Freight     string          `bson:"freight" json:"freight" validate:"required"`
	From        string          `bson:"from" json:"from" validate:"required"`
	To          string          `bson:"to" json:"to" validate:"required"`
	Vehicle     VehicleClass    `bson:"vehicle" json:"vehicle" validate:"required,oneof=URBAN_CARGO RURAL_CARGO TRUCK HEAVY_TRUCK"`
	Type        ServiceType     `bson:"type" json:"type" validate:"required,oneof=FLEET THIRD_PART"`
	Tracking    TrackingOption  `bson:"tracking" json:"tracking" validate:"required,oneof=REAL_TIME NO"`
	Insurance   InsuranceOption `bson:"insurance" json:"insurance" validate:"required,oneof=YES NO"`
}

// Normalized trims every field and upper-cases the enumerated ones.
func (d AuctionDetail) Normalized() AuctionDetail {
	return AuctionDetail{
		Description: strings.TrimSpace(d.Description),
		Freight:     strings.TrimSpace(d.Freight),
		From:        strings.TrimSpace(d.From),
		To:          strings.TrimSpace(d.To),
		Vehicle:     VehicleClass(strings.ToUpper(strings.TrimSpace(string(d.Vehicle)))),
		Type:        ServiceType(strings.ToUpper(strings.TrimSpace(string(d.Type)))),
		Tracking:    TrackingOption(strings.ToUpper(strings.TrimSpace(string(d.Tracking)))),
		Insurance:   InsuranceOption(strings.ToUpper(strings.TrimSpace(string(d.Insurance)))),
	}
}

// Auction is a freight auction owned by a user. Deletion only clears IsActive.
type Auction struct {
	Base      `bson:",inline"`
	UserID    int64         `bson:"user_id" json:"userId"`
	IsActive  bool          `bson:"is_active" json:"isActive"`
	Detail    AuctionDetail `bson:"detail" json:"detail"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updatedAt"`
}

type AssignmentStatus string

const (
	AssignmentPending AssignmentStatus = "PENDING"
)

// AuctionParticipant invites one participant to one auction.
// Rows are only ever replaced as a whole set per auction.
type AuctionParticipant struct {
	Base                 `bson:",inline"`
	AuctionID            int64            `bson:"auction_id" json:"auctionId"`
	ParticipantID        int64            `bson:"participant_id" json:"participantId"`
	ParticipantRequestID int64            `bson:"participant_request_id" json:"participantRequestId"`
	Status               AssignmentStatus `bson:"status" json:"status"`
	CreatedAt            time.Time        `bson:"created_at" json:"createdAt"`
}
