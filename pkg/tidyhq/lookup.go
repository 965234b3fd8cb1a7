package tidyhq

import (
	"strconv"
	"strings"
)

// Contact finds a contact by id. Accepts the string form used in
// tracker custom fields.
func (c *Cache) Contact(contactID string) *Contact {
	id, err := strconv.Atoi(contactID)
	if err != nil {
		return nil
	}

	for i := range c.Contacts {
		if c.Contacts[i].ID == id {
			return &c.Contacts[i]
		}
	}

	return nil
}

// ContactByEmail finds a contact by exact email match.
func (c *Cache) ContactByEmail(email string) *Contact {
	if email == "" {
		return nil
	}

	for i := range c.Contacts {
		if c.Contacts[i].EmailAddress == email {
			return &c.Contacts[i]
		}
	}

	return nil
}

// MembershipsFor returns all memberships held by a contact.
func (c *Cache) MembershipsFor(contactID string) []Membership {
	return c.Memberships[contactID]
}

// MostRecentMembership returns the membership with the latest start
// date, or nil when the contact has none.
func (c *Cache) MostRecentMembership(contactID string) *Membership {
	memberships := c.MembershipsFor(contactID)
	if len(memberships) == 0 {
		return nil
	}

	recent := &memberships[0]
	for i := range memberships {
		if memberships[i].StartDate.After(recent.StartDate) {
			recent = &memberships[i]
		}
	}

	return recent
}

// MembershipType maps the contact's most recent membership onto one of
// the short level codes: Full, Concession, Sponsor or Visitor. Returns
// "" when the contact has no memberships.
func (c *Cache) MembershipType(contactID string) string {
	recent := c.MostRecentMembership(contactID)
	if recent == nil {
		return ""
	}

	name := recent.MembershipLevel.Name

	switch {
	case strings.Contains(name, "Concession"):
		return "Concession"
	case strings.Contains(name, "Sponsor"):
		return "Sponsor"
	case name == "Visitor":
		return "Visitor"
	case strings.Contains(name, "Membership") || strings.Contains(name, "Full"):
		return "Full"
	default:
		return name
	}
}

// UsefulContactIDs returns the ids of contacts with a membership that
// has not lapsed. These are the records that should be represented on
// the board.
func (c *Cache) UsefulContactIDs() []string {
	var ids []string

	for i := range c.Contacts {
		contactID := strconv.Itoa(c.Contacts[i].ID)

		for _, membership := range c.MembershipsFor(contactID) {
			if membership.State == "expired" || membership.State == "cancelled" {
				continue
			}

			ids = append(ids, contactID)

			break
		}
	}

	return ids
}

// CustomField returns a contact's custom field by id, or nil when the
// contact or field is missing.
func (c *Cache) CustomField(contactID, fieldID string) *CustomField {
	contact := c.Contact(contactID)
	if contact == nil {
		return nil
	}

	for i := range contact.CustomFields {
		if contact.CustomFields[i].ID == fieldID {
			return &contact.CustomFields[i]
		}
	}

	return nil
}

// InGroupContaining reports whether the contact belongs to any group
// whose label contains the given substring.
func (c *Cache) InGroupContaining(contactID, substring string) bool {
	contact := c.Contact(contactID)
	if contact == nil {
		return false
	}

	for _, group := range contact.Groups {
		if strings.Contains(group.Label, substring) {
			return true
		}
	}

	return false
}

// Inductions returns the training sign-offs recorded for a contact as
// group labels with the training prefix stripped.
func (c *Cache) Inductions(contactID, trainingPrefix string) []string {
	contact := c.Contact(contactID)
	if contact == nil {
		return nil
	}

	var inductions []string

	for _, group := range contact.Groups {
		if strings.Contains(group.Label, trainingPrefix) {
			inductions = append(inductions, strings.Replace(group.Label, trainingPrefix, "", 1))
		}
	}

	return inductions
}

// InvoicesFor returns a contact's invoices, newest first.
func (c *Cache) InvoicesFor(contactID string) []Invoice {
	return c.Invoices[contactID]
}

// FormatContactName renders a contact the way card subjects are titled.
func FormatContactName(contact *Contact) string {
	name := strings.TrimSpace(contact.FirstName + " " + contact.LastName)
	if contact.NickName != "" {
		if name == "" {
			return contact.NickName
		}

		return name + " (" + contact.NickName + ")"
	}

	if name == "" {
		return contact.EmailAddress
	}

	return name
}
