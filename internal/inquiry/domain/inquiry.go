package domain

import "time"

type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusResponded Status = "responded"
	StatusConverted Status = "converted"
	StatusClosed    Status = "closed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusResponded, StatusConverted, StatusClosed:
		return true
	}
	return false
}

type Type string

const (
	TypeGeneralInterest      Type = "general_interest"
	TypeSiteVisit            Type = "site_visit"
	TypePriceNegotiation     Type = "price_negotiation"
	TypeDocumentVerification Type = "document_verification"
	TypePurchaseIntent       Type = "purchase_intent"
	TypeReservation          Type = "reservation"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeGeneralInterest, TypeSiteVisit, TypePriceNegotiation,
		TypeDocumentVerification, TypePurchaseIntent, TypeReservation:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Inquiry is a prospective buyer's message, usually about one listing.
type Inquiry struct {
	ID              string     `json:"id"`
	ListingID       string     `json:"listing_id,omitempty"`
	ListingTitle    string     `json:"listing_title,omitempty"`
	BrokerID        string     `json:"broker_id,omitempty"` // owner of the listing at submission time
	InquirerName    string     `json:"inquirer_name"`
	InquirerEmail   string     `json:"inquirer_email"`
	InquirerPhone   string     `json:"inquirer_phone,omitempty"`
	InquiryType     Type       `json:"inquiry_type"`
	Message         string     `json:"message"`
	Status          Status     `json:"status"`
	Priority        Priority   `json:"priority"`
	AssignedTo      string     `json:"assigned_to,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	ConversionValue *float64   `json:"conversion_value,omitempty"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	ConvertedAt     *time.Time `json:"converted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Filter selects inquiries. Zero values are ignored.
type Filter struct {
	Status      Status
	Priority    Priority
	ListingID   string
	InquiryType Type
	Search      string // name, email or message substring
	// VisibleTo restricts results to inquiries on the user's listings or assigned to them.
	VisibleTo string
	Page      int
	Limit     int
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize clamps pagination.
func (f *Filter) Normalize() {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// Stats are inquiry counts by status.
type Stats struct {
	Total     int64 `json:"total"`
	New       int64 `json:"new"`
	Contacted int64 `json:"contacted"`
	Responded int64 `json:"responded"`
	Converted int64 `json:"converted"`
	Closed    int64 `json:"closed"`
}

// NewStats folds per-status counts into Stats.
func NewStats(byStatus map[Status]int64) *Stats {
	s := &Stats{
		New:       byStatus[StatusNew],
		Contacted: byStatus[StatusContacted],
		Responded: byStatus[StatusResponded],
		Converted: byStatus[StatusConverted],
		Closed:    byStatus[StatusClosed],
	}
	for _, n := range byStatus {
		s.Total += n
	}
	return s
}
