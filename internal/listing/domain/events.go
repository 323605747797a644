package domain

const (
	SubjectListingCreated = "listing.created"
	SubjectListingUpdated = "listing.updated"
	SubjectListingDeleted = "listing.deleted"
)

// ListingEvent is the payload of listing subjects.
type ListingEvent struct {
	ListingID string        `json:"listing_id"`
	BrokerID  string        `json:"broker_id"`
	Title     string        `json:"title,omitempty"`
	Status    ListingStatus `json:"status,omitempty"`
	Price     float64       `json:"price_amount,omitempty"`
	Currency  Currency      `json:"price_currency,omitempty"`
	ActorID   string        `json:"actor_id,omitempty"`
}

func NewListingEvent(l *Listing, actorID string) ListingEvent {
	return ListingEvent{
		ListingID: l.ID,
		BrokerID:  l.BrokerID,
		Title:     l.Title,
		Status:    l.Status,
		Price:     l.PriceAmount,
		Currency:  l.PriceCurrency,
		ActorID:   actorID,
	}
}
