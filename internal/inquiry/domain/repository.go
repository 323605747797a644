package domain

import "context"

type InquiryRepository interface {
	Create(ctx context.Context, inquiry *Inquiry) error
	GetByID(ctx context.Context, id string) (*Inquiry, error)
	Update(ctx context.Context, inquiry *Inquiry) error
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, filter Filter) ([]*Inquiry, int64, error)
	// CountByStatus counts inquiries per status, restricted like Filter.VisibleTo when visibleTo is set.
	CountByStatus(ctx context.Context, visibleTo string) (map[Status]int64, error)
}

type ContactRepository interface {
	Create(ctx context.Context, contact *Contact) error
	GetByID(ctx context.Context, id string) (*Contact, error)
	UpdateStatus(ctx context.Context, id string, status ContactStatus) (*Contact, error)
	Find(ctx context.Context, filter ContactFilter) ([]*Contact, int64, error)
	CountByStatus(ctx context.Context) (map[ContactStatus]int64, error)
}
