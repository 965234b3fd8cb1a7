package tidyhq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// DefaultBaseURL is the hosted membership database endpoint.
const DefaultBaseURL = "https://api.tidyhq.com/v1"

const defaultTimeout = 30 * time.Second

// Client performs token-authenticated reads against the membership
// database.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient returns a client for the given endpoint.
func NewClient(logger *slog.Logger, baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	query := url.Values{"access_token": {c.token}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	return nil
}

// SetCustomField writes one custom field value on a contact. This is
// the only write the client performs; everything else reads from the
// snapshot.
func (c *Client) SetCustomField(ctx context.Context, contactID int, fieldID, value string) error {
	const op = "SetCustomField"

	payload, err := json.Marshal(map[string]any{
		"custom_fields": map[string]string{fieldID: value},
	})
	if err != nil {
		return fmt.Errorf("%s: failed to encode payload: %w", op, err)
	}

	query := url.Values{"access_token": {c.token}}
	endpoint := c.baseURL + "/contacts/" + strconv.Itoa(contactID) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	return nil
}

// Contacts lists every contact in the database.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var contacts []Contact
	if err := c.get(ctx, "Contacts", "/contacts", &contacts); err != nil {
		return nil, err
	}

	return contacts, nil
}

// Groups lists all groups, indexed by id.
func (c *Client) Groups(ctx context.Context) (map[string]Group, error) {
	var groups []Group
	if err := c.get(ctx, "Groups", "/groups", &groups); err != nil {
		return nil, err
	}

	indexed := make(map[string]Group, len(groups))
	for _, group := range groups {
		indexed[strconv.Itoa(group.ID)] = group
	}

	return indexed, nil
}

// Memberships lists all memberships, indexed by contact id.
func (c *Client) Memberships(ctx context.Context) (map[string][]Membership, error) {
	var memberships []Membership
	if err := c.get(ctx, "Memberships", "/memberships", &memberships); err != nil {
		return nil, err
	}

	indexed := make(map[string][]Membership)
	for _, membership := range memberships {
		key := strconv.Itoa(membership.ContactID)
		indexed[key] = append(indexed[key], membership)
	}

	return indexed, nil
}

// Invoices lists all invoices indexed by contact id, newest first.
func (c *Client) Invoices(ctx context.Context) (map[string][]Invoice, error) {
	var invoices []Invoice
	if err := c.get(ctx, "Invoices", "/invoices", &invoices); err != nil {
		return nil, err
	}

	indexed := make(map[string][]Invoice)
	for _, invoice := range invoices {
		key := strconv.Itoa(invoice.ContactID)
		indexed[key] = append(indexed[key], invoice)
	}

	for key := range indexed {
		sort.Slice(indexed[key], func(i, j int) bool {
			return indexed[key][i].CreatedAt.After(indexed[key][j].CreatedAt)
		})
	}

	return indexed, nil
}

// Organization fetches the tenancy details.
func (c *Client) Organization(ctx context.Context) (*Organization, error) {
	var org Organization
	if err := c.get(ctx, "Organization", "/organization", &org); err != nil {
		return nil, err
	}

	return &org, nil
}
