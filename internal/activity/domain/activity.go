package domain

import (
	"context"
	"errors"
	"time"

	"github.com/EMe-U/plotsure/internal/auth"
)

// Action names what happened in an activity log entry.
type Action string

const (
	ActionCreateListing      Action = "create_listing"
	ActionUpdateListing      Action = "update_listing"
	ActionDeleteListing      Action = "delete_listing"
	ActionViewListing        Action = "view_listing"
	ActionSearchListings     Action = "search_listings"
	ActionVerifyListing      Action = "verify_listing"
	ActionToggleFeatured     Action = "toggle_featured"
	ActionCreateInquiry      Action = "create_inquiry"
	ActionUpdateInquiry      Action = "update_inquiry"
	ActionAssignInquiry      Action = "assign_inquiry"
	ActionConvertInquiry     Action = "convert_inquiry"
	ActionDeleteInquiry      Action = "delete_inquiry"
	ActionSubmitContact      Action = "submit_contact"
	ActionUpdateContact      Action = "update_contact"
	ActionRegister           Action = "register"
	ActionLogin              Action = "login"
	ActionLoginFailed        Action = "login_failed"
	ActionLogout             Action = "logout"
	ActionUpdateProfile      Action = "update_profile"
	ActionChangePassword     Action = "change_password"
	ActionActivateUser       Action = "activate_user"
	ActionDeactivateUser     Action = "deactivate_user"
	ActionSetup2FA           Action = "setup_2fa"
	ActionVerify2FA          Action = "verify_2fa"
	ActionDisable2FA         Action = "disable_2fa"
	ActionUploadFiles        Action = "upload_files"
	ActionExportActivityLogs Action = "export_activity_logs"
)

// Entity names the kind of record an action touched.
type Entity string

const (
	EntityListing Entity = "listing"
	EntityInquiry Entity = "inquiry"
	EntityContact Entity = "contact"
	EntityUser    Entity = "user"
	EntitySystem  Entity = "system"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("admin access required")
)

// Log is one persisted activity record.
type Log struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id,omitempty"`
	UserName  string                 `json:"user_name,omitempty"`
	UserEmail string                 `json:"user_email,omitempty"`
	UserRole  string                 `json:"user_role,omitempty"`
	Action    Action                 `json:"action"`
	Entity    Entity                 `json:"entity"`
	EntityID  string                 `json:"entity_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Filter selects activity logs. Zero values are ignored.
type Filter struct {
	Action    Action
	Entity    Entity
	UserID    string
	StartDate *time.Time
	EndDate   *time.Time
	Search    string
	Page      int
	Limit     int
}

// ActionCount is the number of logs for one action.
type ActionCount struct {
	Action Action `json:"action"`
	Count  int64  `json:"count"`
}

// DayCount is the number of logs on one UTC day (YYYY-MM-DD).
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Repository persists activity logs.
type Repository interface {
	Create(ctx context.Context, log *Log) error
	Find(ctx context.Context, filter Filter) ([]*Log, int64, error)
	// FindAll returns every log matching filter, ignoring pagination. Used by exports.
	FindAll(ctx context.Context, filter Filter) ([]*Log, error)
	Count(ctx context.Context, since *time.Time) (int64, error)
	CountByAction(ctx context.Context, userID string, since time.Time) ([]ActionCount, error)
	CountByDay(ctx context.Context, since time.Time) ([]DayCount, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Entry is what a usecase hands to the recorder. The recorder fills in
// the actor snapshot and the request metadata.
type Entry struct {
	Actor    *auth.Identity
	Action   Action
	Entity   Entity
	EntityID string
	Details  map[string]interface{}
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// Normalize clamps pagination.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}
