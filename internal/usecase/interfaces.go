package usecase

import (
	"context"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/infra/integration/listings"
)

// ClientRepository is the slice of the client store the use cases need.
type ClientRepository interface {
	GetOrCreate(ctx context.Context, phone string) (*entity.Client, error)
	Get(ctx context.Context, phone string) (*entity.Client, error)
	Mutate(ctx context.Context, phone string, fn func(c *entity.Client) error) (*entity.Client, error)
	Upsert(ctx context.Context, phone string, fn func(c *entity.Client) error) (*entity.Client, error)
	Delete(ctx context.Context, phone string) (bool, error)
	ListAll(ctx context.Context) ([]*entity.Client, error)
	ListActiveRequests(ctx context.Context) ([]entity.ActiveRequest, error)
}

type ListingSearcher interface {
	Search(ctx context.Context, input listings.SearchInput) ([]entity.Listing, int, error)
}

// MessageSender delivers a rendered notification to a phone number.
type MessageSender interface {
	SendText(ctx context.Context, to, body string) error
}

type OfferPublisher interface {
	PublishOffer(ctx context.Context, offer entity.Offer) error
}

// DispatchScheduler defers a notification and drops it if it goes stale.
type DispatchScheduler interface {
	Schedule(name string, fn func(ctx context.Context) error) string
}

type AlertSender interface {
	SendAlert(subject, body string) error
}
