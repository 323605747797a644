package domain

const (
	SubjectInquiryCreated       = "inquiry.created"
	SubjectInquiryStatusChanged = "inquiry.status_changed"
	SubjectContactCreated       = "contact.created"
)

type InquiryEvent struct {
	InquiryID   string `json:"inquiry_id"`
	ListingID   string `json:"listing_id,omitempty"`
	BrokerID    string `json:"broker_id,omitempty"`
	InquiryType Type   `json:"inquiry_type"`
	Status      Status `json:"status"`
	OldStatus   Status `json:"old_status,omitempty"`
	ActorID     string `json:"actor_id,omitempty"`
}

type ContactEvent struct {
	ContactID string  `json:"contact_id"`
	Subject   Subject `json:"subject"`
	Email     string  `json:"email"`
}
