package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ApplyDefaults trims input and fills defaulted fields.
func (i *Inquiry) ApplyDefaults() {
	i.InquirerName = strings.TrimSpace(i.InquirerName)
	i.InquirerEmail = strings.ToLower(strings.TrimSpace(i.InquirerEmail))
	i.InquirerPhone = strings.TrimSpace(i.InquirerPhone)
	i.Message = strings.TrimSpace(i.Message)
	i.ListingID = strings.TrimSpace(i.ListingID)
	if i.InquiryType == "" {
		i.InquiryType = TypeGeneralInterest
	}
	if i.Status == "" {
		i.Status = StatusNew
	}
	if i.Priority == "" {
		i.Priority = PriorityMedium
	}
}

func (i *Inquiry) Validate() error {
	fields := map[string]string{}
	checkLen(fields, "inquirer_name", i.InquirerName, 2, 100)
	checkEmail(fields, "inquirer_email", i.InquirerEmail)
	checkLen(fields, "message", i.Message, 10, 2000)
	if !i.InquiryType.IsValid() {
		fields["inquiry_type"] = "unknown inquiry type"
	}
	if !i.Status.IsValid() {
		fields["status"] = "must be new, contacted, responded, converted or closed"
	}
	if !i.Priority.IsValid() {
		fields["priority"] = "must be low, medium or high"
	}
	return asError(fields)
}

func (c *Contact) ApplyDefaults() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Message = strings.TrimSpace(c.Message)
	if c.Subject == "" {
		c.Subject = SubjectGeneralInquiry
	}
	if c.Status == "" {
		c.Status = ContactNew
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}
}

func (c *Contact) Validate() error {
	fields := map[string]string{}
	checkLen(fields, "name", c.Name, 2, 100)
	checkEmail(fields, "email", c.Email)
	checkLen(fields, "message", c.Message, 10, 2000)
	if !c.Subject.IsValid() {
		fields["subject"] = "unknown subject"
	}
	if !c.Status.IsValid() {
		fields["status"] = "must be new, in_progress, resolved or closed"
	}
	if !c.Priority.IsValid() {
		fields["priority"] = "must be low, medium or high"
	}
	return asError(fields)
}

func checkLen(fields map[string]string, name, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		fields[name] = fmt.Sprintf("must be between %d and %d characters", min, max)
	}
}

func checkEmail(fields map[string]string, name, value string) {
	if err := validate.Var(value, "required,email"); err != nil {
		fields[name] = "must be a valid email address"
	}
}

func asError(fields map[string]string) error {
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
