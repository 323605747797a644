package domain

import "context"

// MediaKind is the listing field an uploaded file is attached to.
type MediaKind string

const (
	MediaImages    MediaKind = "images"
	MediaDocuments MediaKind = "documents"
	MediaVideos    MediaKind = "videos"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) error
	GetByID(ctx context.Context, id string) (*Listing, error)
	Update(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, filter Filter) ([]*Listing, int64, error)
	IncrementViews(ctx context.Context, id string) error
	// AppendMedia attaches media of several kinds in one atomic write.
	AppendMedia(ctx context.Context, id string, media map[MediaKind][]Media) error
	// Stats counts listings, restricted to one broker when brokerID is set.
	Stats(ctx context.Context, brokerID string) (*Stats, error)
}

// ListingCache stores listings and dashboard stats in front of the repository.
// A miss returns (nil, nil).
type ListingCache interface {
	GetListing(ctx context.Context, id string) (*Listing, error)
	SetListing(ctx context.Context, listing *Listing) error
	DeleteListing(ctx context.Context, id string) error
	GetStats(ctx context.Context, scope string) (*Stats, error)
	SetStats(ctx context.Context, scope string, stats *Stats) error
	InvalidateStats(ctx context.Context) error
}
