package taiga

import (
	"context"
	"net/http"
	"strconv"
)

// CustomValues holds a story's custom attribute values keyed by
// attribute id, plus the version required to update them.
type CustomValues struct {
	Values  map[string]string
	Version int
}

// Get returns the value for an attribute id, or "" when unset.
func (v *CustomValues) Get(field string) string {
	if v == nil {
		return ""
	}

	return v.Values[field]
}

// StoryCustomValues fetches the custom attribute values of a story.
// Numeric values are normalized to their decimal string form so callers
// can compare them regardless of how the attribute was written.
func (c *Client) StoryCustomValues(ctx context.Context, storyID int) (*CustomValues, error) {
	var body struct {
		AttributesValues map[string]any `json:"attributes_values"`
		Version          int            `json:"version"`
	}

	path := "/api/v1/userstories/custom-attributes-values/" + strconv.Itoa(storyID)
	if err := c.do(ctx, "StoryCustomValues", http.MethodGet, path, nil, nil, &body); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(body.AttributesValues))
	for field, value := range body.AttributesValues {
		values[field] = normalizeValue(value)
	}

	return &CustomValues{Values: values, Version: body.Version}, nil
}

// PatchStoryCustomValues replaces a story's custom attribute values via
// a versioned update. The payload must carry the full value map since
// the endpoint replaces rather than merges.
func (c *Client) PatchStoryCustomValues(ctx context.Context, storyID int, values map[string]string, version int) error {
	payload := map[string]any{
		"attributes_values": values,
		"version":           version,
	}

	path := "/api/v1/userstories/custom-attributes-values/" + strconv.Itoa(storyID)

	return c.do(ctx, "PatchStoryCustomValues", http.MethodPatch, path, nil, payload, nil)
}

// SetStoryCustomValue fetches a story's current attribute values, sets
// one field and writes the result back under the fetched version.
func (c *Client) SetStoryCustomValue(ctx context.Context, storyID int, field, value string) error {
	current, err := c.StoryCustomValues(ctx, storyID)
	if err != nil {
		return err
	}

	if current.Values == nil {
		current.Values = make(map[string]string, 1)
	}

	current.Values[field] = value

	return c.PatchStoryCustomValues(ctx, storyID, current.Values, current.Version)
}

func normalizeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
