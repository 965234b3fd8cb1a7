// Package tidyhq is a client for the membership database plus a
// time-boxed on-disk snapshot of it. Every reconciliation rule reads
// from the snapshot; the live API is only hit on refresh.
package tidyhq

import (
	"encoding/json"
	"time"
)

// Contact is a membership database record, trimmed to the fields the
// reconciler needs.
type Contact struct {
	ID                     int           `json:"id"`
	FirstName              string        `json:"first_name"`
	LastName               string        `json:"last_name"`
	NickName               string        `json:"nick_name"`
	Status                 string        `json:"status"`
	EmailAddress           string        `json:"email_address"`
	PhoneNumber            string        `json:"phone_number"`
	EmergencyContactPerson string        `json:"emergency_contact_person"`
	EmergencyContactNumber string        `json:"emergency_contact_number"`
	CustomFields           []CustomField `json:"custom_fields"`
	Groups                 []Group       `json:"groups"`
}

// CustomField is a contact-level custom field. Values arrive as either
// a plain string or a list of selected options, so the raw form is kept
// and interpreted on access.
type CustomField struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Value json.RawMessage `json:"value"`
}

// StringValue returns the field value as a string, or "" when the value
// is empty, null or not a string.
func (f *CustomField) StringValue() string {
	var s string
	if err := json.Unmarshal(f.Value, &s); err != nil {
		return ""
	}

	return s
}

// Options returns the selected options of a multiple-choice field.
func (f *CustomField) Options() []FieldOption {
	var options []FieldOption
	if err := json.Unmarshal(f.Value, &options); err != nil {
		return nil
	}

	return options
}

// Set reports whether the field holds any non-empty value.
func (f *CustomField) Set() bool {
	return f.StringValue() != "" || len(f.Options()) > 0
}

// FieldOption is one selected choice of a multiple-choice field.
type FieldOption struct {
	Title string `json:"title"`
}

// Group is a membership database group.
type Group struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Membership is one membership period held by a contact.
type Membership struct {
	ID              int             `json:"id"`
	ContactID       int             `json:"contact_id"`
	State           string          `json:"state"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	MembershipLevel MembershipLevel `json:"membership_level"`
}

// MembershipLevel names the tier a membership belongs to.
type MembershipLevel struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Invoice is a billing record for a contact.
type Invoice struct {
	ID        string    `json:"id"`
	ContactID int       `json:"contact_id"`
	Amount    float64   `json:"amount"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"created_at"`
	Payments  []Payment `json:"payments"`
}

// Payment records how (part of) an invoice was settled.
type Payment struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// Organization identifies the membership database tenancy.
type Organization struct {
	Name         string `json:"name"`
	DomainPrefix string `json:"domain_prefix"`
}

// ContactURL returns the public contact page for a record.
func (o Organization) ContactURL(contactID string) string {
	return "https://" + o.DomainPrefix + ".tidyhq.com/contacts/" + contactID
}
