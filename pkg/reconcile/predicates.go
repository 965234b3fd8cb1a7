package reconcile

import (
	"strings"
	"time"

	"github.com/makerhaus/attendant/pkg/config"
	"github.com/makerhaus/attendant/pkg/tidyhq"
	"github.com/nyaruka/phonenumbers"
)

// checker evaluates real-world conditions behind checklist tasks. Every
// predicate is pure with respect to the snapshot: no network, no
// writes, just lookups against the cached membership data.
type checker struct {
	cfg   *config.Config
	cache *tidyhq.Cache
	now   time.Time
}

// predicate answers whether a task's condition already holds for the
// linked membership record. An empty contact id is always false.
type predicate func(c *checker, contactID string) bool

// taskPredicates maps checklist subjects to their completion checks.
var taskPredicates = map[string]predicate{
	"Join Slack":                           (*checker).joinedSlack,
	"Signed up as a visitor":               (*checker).visitorSignup,
	"Signed up as a member":                (*checker).memberSignup,
	"Discussed moving to membership":       (*checker).memberSignup,
	"Completed new member induction":       (*checker).memberInduction,
	"Completed new visitor induction":      (*checker).visitorInduction,
	"Completed keyholder induction":        (*checker).keyholderInduction,
	"Confirmed photo on tidyhq":            (*checker).idPhoto,
	"Confirmed paying via bank":            (*checker).paymentByBank,
	"Send bond invoice":                    (*checker).bondInvoiceSent,
	"Confirmed bond invoice paid":          (*checker).bondInvoicePaid,
	"Added to billing groups":              (*checker).billingGroups,
	"Received at least one tool induction": (*checker).atLeastOneTool,
	"Proof of concession sighted":          (*checker).concessionSighted,

	"Held membership for at least two weeks": (*checker).memberTwoWeeks,
	"Has valid emergency contact details":    (*checker).validEmergency,
	"Planned first project":                  (*checker).memberSixMonths,
	"No history of invoice deliquency":       (*checker).memberEighteenMonths,

	// The keyholder checklist is a judgement call made by a human; once
	// the key is actually enabled it has evidently been made.
	"Keyholder motion put to committee":                         (*checker).hasKey,
	"Keyholder motion successful":                               (*checker).hasKey,
	"Send keyholder documentation":                              (*checker).hasKey,
	"No indications of Code of Conduct violations":              (*checker).hasKey,
	"Competent to decide who can come in outside of events":     (*checker).hasKey,
	"Works well unsupervised":                                   (*checker).hasKey,
	"Undertakes tasks safely":                                   (*checker).hasKey,
	"Cleans own work area":                                      (*checker).hasKey,
	"Communicates issues to Management Committee if they arise": (*checker).hasKey,
	"Offered backing for key":                                   (*checker).hasKey,
}

// joinedSlack checks whether the contact's chat account field is set.
func (c *checker) joinedSlack(contactID string) bool {
	if contactID == "" {
		return false
	}

	field := c.cache.CustomField(contactID, c.cfg.TidyHQ.IDs["slack"])

	return field != nil && field.Set()
}

// visitorSignup checks whether the contact ever signed up as a visitor
// or member.
func (c *checker) visitorSignup(contactID string) bool {
	if contactID == "" {
		return false
	}

	for _, membership := range c.cache.MembershipsFor(contactID) {
		name := membership.MembershipLevel.Name
		if name == "Visitor" || strings.Contains(name, "Membership") {
			return true
		}
	}

	return false
}

// memberSignup checks whether the contact ever held an actual
// membership (not just a visitor registration).
func (c *checker) memberSignup(contactID string) bool {
	if contactID == "" {
		return false
	}

	for _, membership := range c.cache.MembershipsFor(contactID) {
		if strings.Contains(membership.MembershipLevel.Name, "Membership") {
			return true
		}
	}

	return false
}

func (c *checker) memberInduction(contactID string) bool {
	return c.hasInduction(contactID, "Induction (Member)")
}

// visitorInduction passes on either the visitor induction or the member
// induction, which supersedes it.
func (c *checker) visitorInduction(contactID string) bool {
	return c.hasInduction(contactID, "Induction (Visitor)") || c.hasInduction(contactID, "Induction (Member)")
}

func (c *checker) keyholderInduction(contactID string) bool {
	return c.hasInduction(contactID, "Induction (Keyholder)")
}

func (c *checker) hasInduction(contactID, name string) bool {
	if contactID == "" {
		return false
	}

	for _, induction := range c.cache.Inductions(contactID, c.cfg.TidyHQ.TrainingPrefix) {
		if induction == name {
			return true
		}
	}

	return false
}

// atLeastOneTool checks for any tool sign-off. Orientation sign-offs
// all carry the word "Induction"; tool sign-offs do not.
func (c *checker) atLeastOneTool(contactID string) bool {
	if contactID == "" {
		return false
	}

	for _, induction := range c.cache.Inductions(contactID, c.cfg.TidyHQ.TrainingPrefix) {
		if !strings.Contains(induction, "Induction") {
			return true
		}
	}

	return false
}

// idPhoto checks whether the contact uploaded an ID photo.
func (c *checker) idPhoto(contactID string) bool {
	if contactID == "" {
		return false
	}

	field := c.cache.CustomField(contactID, c.cfg.TidyHQ.IDs["photo_id"])

	return field != nil && field.Set()
}

// paymentByBank checks whether the most recent settled invoice was paid
// by bank transfer.
func (c *checker) paymentByBank(contactID string) bool {
	if contactID == "" {
		return false
	}

	for _, invoice := range c.cache.InvoicesFor(contactID) {
		if !invoice.Paid {
			continue
		}

		return len(invoice.Payments) > 0 && invoice.Payments[0].Type == "bank"
	}

	return false
}

// bondInvoiceSent checks whether any invoice matches the bond amounts.
// A best guess without retrieving full invoice details.
func (c *checker) bondInvoiceSent(contactID string) bool {
	if contactID == "" {
		return false
	}

	for _, invoice := range c.cache.InvoicesFor(contactID) {
		if c.isBondAmount(invoice.Amount) {
			return true
		}
	}

	return false
}

// bondInvoicePaid checks whether the most recent bond-sized invoice has
// been settled.
func (c *checker) bondInvoicePaid(contactID string) bool {
	if contactID == "" {
		return false
	}

	for _, invoice := range c.cache.InvoicesFor(contactID) {
		if c.isBondAmount(invoice.Amount) {
			return invoice.Paid
		}
	}

	return false
}

func (c *checker) isBondAmount(amount float64) bool {
	for _, bond := range c.cfg.TidyHQ.BondInvoiceAmounts {
		if amount == bond {
			return true
		}
	}

	return false
}

// billingGroups checks whether the contact is in any billing group.
func (c *checker) billingGroups(contactID string) bool {
	if contactID == "" {
		return false
	}

	return c.cache.InGroupContaining(contactID, "Billing")
}

// concessionSighted checks whether proof of concession has been
// recorded. Does not return true merely because no proof is needed;
// see concessionNotNeeded.
func (c *checker) concessionSighted(contactID string) bool {
	if contactID == "" {
		return false
	}

	field := c.cache.CustomField(contactID, c.cfg.TidyHQ.IDs["concession"])

	return field != nil && field.Set()
}

// concessionNotNeeded reports whether the contact's membership level
// makes proof of concession irrelevant.
func (c *checker) concessionNotNeeded(contactID string) bool {
	if contactID == "" {
		return false
	}

	memberType := c.cache.MembershipType(contactID)

	return memberType == "Full" || memberType == "Sponsor"
}

func (c *checker) memberTwoWeeks(contactID string) bool {
	return c.membershipHeldFor(contactID, 14)
}

func (c *checker) memberSixMonths(contactID string) bool {
	return c.membershipHeldFor(contactID, 180)
}

func (c *checker) memberEighteenMonths(contactID string) bool {
	return c.membershipHeldFor(contactID, 540)
}

func (c *checker) membershipHeldFor(contactID string, days int) bool {
	if contactID == "" {
		return false
	}

	recent := c.cache.MostRecentMembership(contactID)
	if recent == nil {
		return false
	}

	return c.now.Sub(recent.StartDate) >= time.Duration(days)*24*time.Hour
}

// validEmergency checks that the contact's emergency details are filled
// out, parse as a real phone number and differ from the contact's own.
func (c *checker) validEmergency(contactID string) bool {
	if contactID == "" {
		return false
	}

	contact := c.cache.Contact(contactID)
	if contact == nil {
		return false
	}

	own := contact.PhoneNumber
	name := contact.EmergencyContactPerson
	number := contact.EmergencyContactNumber

	if own == "" || name == "" || number == "" {
		return false
	}

	if !validPhoneNumber(number) {
		return false
	}

	if own == number {
		return false
	}

	// Same number written with and without an area prefix.
	if len(own) >= 9 && len(number) >= 9 && own[len(own)-9:] == number[len(number)-9:] {
		return false
	}

	return true
}

// validPhoneNumber accepts numbers that parse for the local region,
// with or without the landline area prefix.
func validPhoneNumber(number string) bool {
	parsed, err := phonenumbers.Parse(number, "AU")
	if err == nil && phonenumbers.IsValidNumber(parsed) {
		return true
	}

	parsed, err = phonenumbers.Parse("08"+number, "AU")

	return err == nil && phonenumbers.IsValidNumber(parsed)
}

// hasKey checks whether the contact's site key is enabled.
func (c *checker) hasKey(contactID string) bool {
	if contactID == "" {
		return false
	}

	field := c.cache.CustomField(contactID, c.cfg.TidyHQ.IDs["key_status"])
	if field == nil {
		return false
	}

	for _, option := range field.Options() {
		if option.Title == "Enabled" {
			return true
		}
	}

	return false
}
