package services

import (
	"context"

	"greendrake/freight/internal/models"
)

// IMailer queues a templated email for delivery. data is rendered into the
// template identified by templateID.
type IMailer interface {
	Send(ctx context.Context, to, templateID string, data map[string]any) error
}

// IAuctionViewCache stores rendered auction views. GetAuctionView returns a
// nil entry on a miss, along with the version SetAuctionView must be given;
// the write is dropped if an invalidation happened in between.
type IAuctionViewCache interface {
	GetAuctionView(ctx context.Context, auctionID int64) (*models.CachedAuctionView, int64, error)
	SetAuctionView(ctx context.Context, auctionID, version int64, entry *models.CachedAuctionView) (bool, error)
	InvalidateAuctionView(ctx context.Context, auctionIDs ...int64) error
}
