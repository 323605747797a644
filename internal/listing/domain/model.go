package domain

import "time"

type ListingStatus string

const (
	StatusAvailable ListingStatus = "available"
	StatusReserved  ListingStatus = "reserved"
	StatusSold      ListingStatus = "sold"
)

func (s ListingStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSold:
		return true
	}
	return false
}

type LandType string

const (
	LandResidential  LandType = "residential"
	LandCommercial   LandType = "commercial"
	LandAgricultural LandType = "agricultural"
	LandIndustrial   LandType = "industrial"
	LandMixed        LandType = "mixed"
)

func (t LandType) IsValid() bool {
	switch t {
	case LandResidential, LandCommercial, LandAgricultural, LandIndustrial, LandMixed:
		return true
	}
	return false
}

type SizeUnit string

const (
	UnitSqm      SizeUnit = "sqm"
	UnitHectares SizeUnit = "hectares"
	UnitAcres    SizeUnit = "acres"
)

func (u SizeUnit) IsValid() bool {
	return u == UnitSqm || u == UnitHectares || u == UnitAcres
}

type Currency string

const (
	CurrencyRWF Currency = "RWF"
	CurrencyUSD Currency = "USD"
)

func (c Currency) IsValid() bool {
	return c == CurrencyRWF || c == CurrencyUSD
}

const DefaultDistrict = "Bugesera"

// Media is a stored file attached to a listing.
type Media struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Listing is a land plot offered for sale or lease.
type Listing struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	District   string `json:"district"`
	Sector     string `json:"sector"`
	Cell       string `json:"cell"`
	Village    string `json:"village"`
	PlotNumber string `json:"plot_number,omitempty"`

	PriceAmount     float64  `json:"price_amount"`
	PriceCurrency   Currency `json:"price_currency"`
	PriceNegotiable bool     `json:"price_negotiable"`

	LandSizeValue float64  `json:"land_size_value"`
	LandSizeUnit  SizeUnit `json:"land_size_unit"`
	LandType      LandType `json:"land_type"`

	LandownerName     string `json:"landowner_name"`
	LandownerPhone    string `json:"landowner_phone"`
	LandownerIDNumber string `json:"landowner_id_number"`
	LandownerEmail    string `json:"landowner_email,omitempty"`

	LandTitleAvailable bool     `json:"land_title_available"`
	Amenities          []string `json:"amenities,omitempty"`
	Infrastructure     []string `json:"infrastructure,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`

	Images    []Media `json:"images"`
	Documents []Media `json:"documents"`
	Videos    []Media `json:"videos"`

	Status            ListingStatus `json:"status"`
	Verified          bool          `json:"verified"`
	VerificationNotes string        `json:"verification_notes,omitempty"`
	VerifiedAt        *time.Time    `json:"verified_at,omitempty"`
	VerifiedBy        string        `json:"verified_by,omitempty"`
	Featured          bool          `json:"featured"`
	Views             int64         `json:"views"`

	BrokerID  string    `json:"broker_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllMedia returns every stored file of the listing.
func (l *Listing) AllMedia() []Media {
	out := make([]Media, 0, len(l.Images)+len(l.Documents)+len(l.Videos))
	out = append(out, l.Images...)
	out = append(out, l.Documents...)
	return append(out, l.Videos...)
}

// Filter selects listings. Zero values are ignored.
type Filter struct {
	Search    string
	LandType  LandType
	Statuses  []ListingStatus
	District  string
	Sector    string
	BrokerID  string
	MinPrice  *float64
	MaxPrice  *float64
	MinSize   *float64
	MaxSize   *float64
	Verified  *bool
	Featured  *bool
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50
)

var sortableFields = map[string]bool{
	"created_at":      true,
	"price_amount":    true,
	"land_size_value": true,
	"views":           true,
	"title":           true,
}

// IsSortable reports whether field can be used in SortBy.
func IsSortable(field string) bool {
	return sortableFields[field]
}

// Stats are listing counts for a dashboard.
type Stats struct {
	Total      int64 `json:"total"`
	Available  int64 `json:"available"`
	Reserved   int64 `json:"reserved"`
	Sold       int64 `json:"sold"`
	Verified   int64 `json:"verified"`
	Featured   int64 `json:"featured"`
	TotalViews int64 `json:"total_views"`
}
