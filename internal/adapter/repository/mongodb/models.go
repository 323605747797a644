package mongodb

import (
	"fmt"
	"time"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	inquirydomain "github.com/EMe-U/plotsure/internal/inquiry/domain"
	listingdomain "github.com/EMe-U/plotsure/internal/listing/domain"
	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// objectID converts a hex id. An empty id yields NilObjectID so that the
// insert path can assign a fresh one.
func objectID(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NilObjectID, nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q: %w", id, err)
	}
	return oid, nil
}

// --- users ---

type userDocument struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Name             string             `bson:"name"`
	Email            string             `bson:"email"`
	Phone            string             `bson:"phone,omitempty"`
	PasswordHash     string             `bson:"password_hash"`
	Role             string             `bson:"role"`
	IsActive         bool               `bson:"is_active"`
	IsVerified       bool               `bson:"is_verified"`
	TwoFactorEnabled bool               `bson:"two_factor_enabled"`
	TwoFactorSecret  string             `bson:"two_factor_secret,omitempty"`
	BackupCodes      []string           `bson:"backup_codes,omitempty"`
	LastLogin        *time.Time         `bson:"last_login,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

func fromDomainUser(u *userdomain.User) (*userDocument, error) {
	oid, err := objectID(u.ID)
	if err != nil {
		return nil, err
	}
	return &userDocument{
		ID:               oid,
		Name:             u.Name,
		Email:            u.Email,
		Phone:            u.Phone,
		PasswordHash:     u.PasswordHash,
		Role:             string(u.Role),
		IsActive:         u.IsActive,
		IsVerified:       u.IsVerified,
		TwoFactorEnabled: u.TwoFactorEnabled,
		TwoFactorSecret:  u.TwoFactorSecret,
		BackupCodes:      u.BackupCodes,
		LastLogin:        u.LastLogin,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}, nil
}

func (d *userDocument) toDomain() *userdomain.User {
	return &userdomain.User{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		Email:            d.Email,
		Phone:            d.Phone,
		PasswordHash:     d.PasswordHash,
		Role:             userdomain.Role(d.Role),
		IsActive:         d.IsActive,
		IsVerified:       d.IsVerified,
		TwoFactorEnabled: d.TwoFactorEnabled,
		TwoFactorSecret:  d.TwoFactorSecret,
		BackupCodes:      d.BackupCodes,
		LastLogin:        d.LastLogin,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// --- listings ---

type mediaDocument struct {
	URL         string    `bson:"url"`
	Key         string    `bson:"key"`
	FileName    string    `bson:"file_name"`
	ContentType string    `bson:"content_type"`
	Size        int64     `bson:"size"`
	UploadedAt  time.Time `bson:"uploaded_at"`
}

type listingDocument struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Title              string             `bson:"title"`
	Description        string             `bson:"description"`
	District           string             `bson:"district"`
	Sector             string             `bson:"sector"`
	Cell               string             `bson:"cell"`
	Village            string             `bson:"village"`
	PlotNumber         string             `bson:"plot_number,omitempty"`
	PriceAmount        float64            `bson:"price_amount"`
	PriceCurrency      string             `bson:"price_currency"`
	PriceNegotiable    bool               `bson:"price_negotiable"`
	LandSizeValue      float64            `bson:"land_size_value"`
	LandSizeUnit       string             `bson:"land_size_unit"`
	LandType           string             `bson:"land_type"`
	LandownerName      string             `bson:"landowner_name"`
	LandownerPhone     string             `bson:"landowner_phone"`
	LandownerIDNumber  string             `bson:"landowner_id_number"`
	LandownerEmail     string             `bson:"landowner_email,omitempty"`
	LandTitleAvailable bool               `bson:"land_title_available"`
	Amenities          []string           `bson:"amenities,omitempty"`
	Infrastructure     []string           `bson:"infrastructure,omitempty"`
	Latitude           *float64           `bson:"latitude,omitempty"`
	Longitude          *float64           `bson:"longitude,omitempty"`
	Images             []mediaDocument    `bson:"images"`
	Documents          []mediaDocument    `bson:"documents"`
	Videos             []mediaDocument    `bson:"videos"`
	Status             string             `bson:"status"`
	Verified           bool               `bson:"verified"`
	VerificationNotes  string             `bson:"verification_notes,omitempty"`
	VerifiedAt         *time.Time         `bson:"verified_at,omitempty"`
	VerifiedBy         string             `bson:"verified_by,omitempty"`
	Featured           bool               `bson:"featured"`
	Views              int64              `bson:"views"`
	BrokerID           string             `bson:"broker_id"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

func fromDomainMedia(in []listingdomain.Media) []mediaDocument {
	out := make([]mediaDocument, 0, len(in))
	for _, m := range in {
		out = append(out, mediaDocument(m))
	}
	return out
}

func toDomainMedia(in []mediaDocument) []listingdomain.Media {
	out := make([]listingdomain.Media, 0, len(in))
	for _, m := range in {
		out = append(out, listingdomain.Media(m))
	}
	return out
}

func fromDomainListing(l *listingdomain.Listing) (*listingDocument, error) {
	oid, err := objectID(l.ID)
	if err != nil {
		return nil, err
	}
	return &listingDocument{
		ID:                 oid,
		Title:              l.Title,
		Description:        l.Description,
		District:           l.District,
		Sector:             l.Sector,
		Cell:               l.Cell,
		Village:            l.Village,
		PlotNumber:         l.PlotNumber,
		PriceAmount:        l.PriceAmount,
		PriceCurrency:      string(l.PriceCurrency),
		PriceNegotiable:    l.PriceNegotiable,
		LandSizeValue:      l.LandSizeValue,
		LandSizeUnit:       string(l.LandSizeUnit),
		LandType:           string(l.LandType),
		LandownerName:      l.LandownerName,
		LandownerPhone:     l.LandownerPhone,
		LandownerIDNumber:  l.LandownerIDNumber,
		LandownerEmail:     l.LandownerEmail,
		LandTitleAvailable: l.LandTitleAvailable,
		Amenities:          l.Amenities,
		Infrastructure:     l.Infrastructure,
		Latitude:           l.Latitude,
		Longitude:          l.Longitude,
		Images:             fromDomainMedia(l.Images),
		Documents:          fromDomainMedia(l.Documents),
		Videos:             fromDomainMedia(l.Videos),
		Status:             string(l.Status),
		Verified:           l.Verified,
		VerificationNotes:  l.VerificationNotes,
		VerifiedAt:         l.VerifiedAt,
		VerifiedBy:         l.VerifiedBy,
		Featured:           l.Featured,
		Views:              l.Views,
		BrokerID:           l.BrokerID,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}, nil
}

func (d *listingDocument) toDomain() *listingdomain.Listing {
	return &listingdomain.Listing{
		ID:                 d.ID.Hex(),
		Title:              d.Title,
		Description:        d.Description,
		District:           d.District,
		Sector:             d.Sector,
		Cell:               d.Cell,
		Village:            d.Village,
		PlotNumber:         d.PlotNumber,
		PriceAmount:        d.PriceAmount,
		PriceCurrency:      listingdomain.Currency(d.PriceCurrency),
		PriceNegotiable:    d.PriceNegotiable,
		LandSizeValue:      d.LandSizeValue,
		LandSizeUnit:       listingdomain.SizeUnit(d.LandSizeUnit),
		LandType:           listingdomain.LandType(d.LandType),
		LandownerName:      d.LandownerName,
		LandownerPhone:     d.LandownerPhone,
		LandownerIDNumber:  d.LandownerIDNumber,
		LandownerEmail:     d.LandownerEmail,
		LandTitleAvailable: d.LandTitleAvailable,
		Amenities:          d.Amenities,
		Infrastructure:     d.Infrastructure,
		Latitude:           d.Latitude,
		Longitude:          d.Longitude,
		Images:             toDomainMedia(d.Images),
		Documents:          toDomainMedia(d.Documents),
		Videos:             toDomainMedia(d.Videos),
		Status:             listingdomain.ListingStatus(d.Status),
		Verified:           d.Verified,
		VerificationNotes:  d.VerificationNotes,
		VerifiedAt:         d.VerifiedAt,
		VerifiedBy:         d.VerifiedBy,
		Featured:           d.Featured,
		Views:              d.Views,
		BrokerID:           d.BrokerID,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// --- inquiries and contacts ---

type inquiryDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	ListingID       string             `bson:"listing_id,omitempty"`
	ListingTitle    string             `bson:"listing_title,omitempty"`
	BrokerID        string             `bson:"broker_id,omitempty"`
	InquirerName    string             `bson:"inquirer_name"`
	InquirerEmail   string             `bson:"inquirer_email"`
	InquirerPhone   string             `bson:"inquirer_phone,omitempty"`
	InquiryType     string             `bson:"inquiry_type"`
	Message         string             `bson:"message"`
	Status          string             `bson:"status"`
	Priority        string             `bson:"priority"`
	AssignedTo      string             `bson:"assigned_to,omitempty"`
	Notes           string             `bson:"notes,omitempty"`
	ConversionValue *float64           `bson:"conversion_value,omitempty"`
	RespondedAt     *time.Time         `bson:"responded_at,omitempty"`
	ConvertedAt     *time.Time         `bson:"converted_at,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

func fromDomainInquiry(i *inquirydomain.Inquiry) (*inquiryDocument, error) {
	oid, err := objectID(i.ID)
	if err != nil {
		return nil, err
	}
	return &inquiryDocument{
		ID:              oid,
		ListingID:       i.ListingID,
		ListingTitle:    i.ListingTitle,
		BrokerID:        i.BrokerID,
		InquirerName:    i.InquirerName,
		InquirerEmail:   i.InquirerEmail,
		InquirerPhone:   i.InquirerPhone,
		InquiryType:     string(i.InquiryType),
		Message:         i.Message,
		Status:          string(i.Status),
		Priority:        string(i.Priority),
		AssignedTo:      i.AssignedTo,
		Notes:           i.Notes,
		ConversionValue: i.ConversionValue,
		RespondedAt:     i.RespondedAt,
		ConvertedAt:     i.ConvertedAt,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}, nil
}

func (d *inquiryDocument) toDomain() *inquirydomain.Inquiry {
	return &inquirydomain.Inquiry{
		ID:              d.ID.Hex(),
		ListingID:       d.ListingID,
		ListingTitle:    d.ListingTitle,
		BrokerID:        d.BrokerID,
		InquirerName:    d.InquirerName,
		InquirerEmail:   d.InquirerEmail,
		InquirerPhone:   d.InquirerPhone,
		InquiryType:     inquirydomain.Type(d.InquiryType),
		Message:         d.Message,
		Status:          inquirydomain.Status(d.Status),
		Priority:        inquirydomain.Priority(d.Priority),
		AssignedTo:      d.AssignedTo,
		Notes:           d.Notes,
		ConversionValue: d.ConversionValue,
		RespondedAt:     d.RespondedAt,
		ConvertedAt:     d.ConvertedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type contactDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone,omitempty"`
	Subject   string             `bson:"subject"`
	Message   string             `bson:"message"`
	Status    string             `bson:"status"`
	Priority  string             `bson:"priority"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func fromDomainContact(c *inquirydomain.Contact) (*contactDocument, error) {
	oid, err := objectID(c.ID)
	if err != nil {
		return nil, err
	}
	return &contactDocument{
		ID:        oid,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Subject:   string(c.Subject),
		Message:   c.Message,
		Status:    string(c.Status),
		Priority:  string(c.Priority),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

func (d *contactDocument) toDomain() *inquirydomain.Contact {
	return &inquirydomain.Contact{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Subject:   inquirydomain.Subject(d.Subject),
		Message:   d.Message,
		Status:    inquirydomain.ContactStatus(d.Status),
		Priority:  inquirydomain.Priority(d.Priority),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// --- activity logs ---

type activityDocument struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty"`
	UserID    string                 `bson:"user_id,omitempty"`
	UserName  string                 `bson:"user_name,omitempty"`
	UserEmail string                 `bson:"user_email,omitempty"`
	UserRole  string                 `bson:"user_role,omitempty"`
	Action    string                 `bson:"action"`
	Entity    string                 `bson:"entity"`
	EntityID  string                 `bson:"entity_id,omitempty"`
	Details   map[string]interface{} `bson:"details,omitempty"`
	IPAddress string                 `bson:"ip_address,omitempty"`
	UserAgent string                 `bson:"user_agent,omitempty"`
	CreatedAt time.Time              `bson:"created_at"`
}

func fromDomainActivity(l *activitydomain.Log) *activityDocument {
	return &activityDocument{
		UserID:    l.UserID,
		UserName:  l.UserName,
		UserEmail: l.UserEmail,
		UserRole:  l.UserRole,
		Action:    string(l.Action),
		Entity:    string(l.Entity),
		EntityID:  l.EntityID,
		Details:   l.Details,
		IPAddress: l.IPAddress,
		UserAgent: l.UserAgent,
		CreatedAt: l.CreatedAt,
	}
}

func (d *activityDocument) toDomain() *activitydomain.Log {
	return &activitydomain.Log{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		UserName:  d.UserName,
		UserEmail: d.UserEmail,
		UserRole:  d.UserRole,
		Action:    activitydomain.Action(d.Action),
		Entity:    activitydomain.Entity(d.Entity),
		EntityID:  d.EntityID,
		Details:   d.Details,
		IPAddress: d.IPAddress,
		UserAgent: d.UserAgent,
		CreatedAt: d.CreatedAt,
	}
}
