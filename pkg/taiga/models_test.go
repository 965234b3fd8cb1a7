package taiga

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagUnmarshal(t *testing.T) {
	var story UserStory

	raw := `{
		"id": 10,
		"subject": "Jane Doe",
		"status": 2,
		"version": 7,
		"tags": [["bot-managed", null], ["priority", "#ff0000"]]
	}`

	require.NoError(t, json.Unmarshal([]byte(raw), &story))

	require.Len(t, story.Tags, 2)
	assert.Equal(t, "bot-managed", story.Tags[0].Name)
	assert.Empty(t, story.Tags[0].Color)
	assert.Equal(t, "priority", story.Tags[1].Name)
	assert.Equal(t, "#ff0000", story.Tags[1].Color)

	assert.True(t, story.HasTag("bot-managed"))
	assert.False(t, story.HasTag("template"))
}

func TestTagMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(Tag{Name: "bot-managed"})
	require.NoError(t, err)
	assert.JSONEq(t, `["bot-managed", null]`, string(data))

	var tag Tag

	require.NoError(t, json.Unmarshal(data, &tag))
	assert.Equal(t, "bot-managed", tag.Name)
}

func TestTagUnmarshalNullTags(t *testing.T) {
	var story UserStory

	// Taiga serializes stories without tags as "tags": null.
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "tags": null}`), &story))
	assert.Empty(t, story.Tags)
	assert.False(t, story.HasTag("bot-managed"))
}
