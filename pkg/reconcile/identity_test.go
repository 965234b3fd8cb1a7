package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkIdentities(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addStory(10, 1, "Jane Doe", "bot-managed")
	tracker.setValue(10, "2", "jane@example.com")

	runner := newTestRunner(t, tracker, testSnapshot(), Options{})

	changes, err := runner.linkIdentities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changes)

	values := tracker.values[10]
	assert.Equal(t, "100", values.Values["1"])
	assert.Equal(t, "See TidyHQ", values.Values["2"])
}

func TestLinkIdentitiesAlreadyLinked(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addStory(10, 1, "Jane Doe", "bot-managed")
	tracker.setValue(10, "1", "100")
	tracker.setValue(10, "2", "jane@example.com")

	runner := newTestRunner(t, tracker, testSnapshot(), Options{})

	changes, err := runner.linkIdentities(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changes)
	assert.Zero(t, tracker.writes)

	// The email is left alone on an already-linked card.
	assert.Equal(t, "jane@example.com", tracker.values[10].Values["2"])
}

func TestLinkIdentitiesUnknownEmail(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addStory(10, 1, "Nobody", "bot-managed")
	tracker.setValue(10, "2", "nobody@example.com")

	runner := newTestRunner(t, tracker, testSnapshot(), Options{})

	changes, err := runner.linkIdentities(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changes)
	assert.Equal(t, "nobody@example.com", tracker.values[10].Values["2"])
}

func TestLinkIdentitiesSkipsUntagged(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addStory(10, 1, "Manual card")
	tracker.setValue(10, "2", "jane@example.com")

	runner := newTestRunner(t, tracker, testSnapshot(), Options{})

	changes, err := runner.linkIdentities(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changes)
}
