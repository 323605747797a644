package domain

import "time"

type ContactStatus string

const (
	ContactNew        ContactStatus = "new"
	ContactInProgress ContactStatus = "in_progress"
	ContactResolved   ContactStatus = "resolved"
	ContactClosed     ContactStatus = "closed"
)

func (s ContactStatus) IsValid() bool {
	switch s {
	case ContactNew, ContactInProgress, ContactResolved, ContactClosed:
		return true
	}
	return false
}

type Subject string

const (
	SubjectGeneralInquiry   Subject = "general-inquiry"
	SubjectPlotInterest     Subject = "plot-interest"
	SubjectBrokerServices   Subject = "broker-services"
	SubjectTechnicalSupport Subject = "technical-support"
	SubjectPartnership      Subject = "partnership"
)

func (s Subject) IsValid() bool {
	switch s {
	case SubjectGeneralInquiry, SubjectPlotInterest, SubjectBrokerServices, SubjectTechnicalSupport, SubjectPartnership:
		return true
	}
	return false
}

// Contact is a general message sent through the site's contact form.
type Contact struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone,omitempty"`
	Subject   Subject       `json:"subject"`
	Message   string        `json:"message"`
	Status    ContactStatus `json:"status"`
	Priority  Priority      `json:"priority"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type ContactFilter struct {
	Status  ContactStatus
	Subject Subject
	Search  string
	Page    int
	Limit   int
}

func (f *ContactFilter) Normalize() {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
}

type ContactStats struct {
	Total      int64 `json:"total"`
	New        int64 `json:"new"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
}

func NewContactStats(byStatus map[ContactStatus]int64) *ContactStats {
	s := &ContactStats{
		New:        byStatus[ContactNew],
		InProgress: byStatus[ContactInProgress],
		Resolved:   byStatus[ContactResolved],
		Closed:     byStatus[ContactClosed],
	}
	for _, n := range byStatus {
		s.Total += n
	}
	return s
}
