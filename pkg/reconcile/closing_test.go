package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseByOrder(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addStory(10, 4, "Jane Doe", "bot-managed")
	tracker.addTask(100, 10, 1, "Encourage to visit")
	tracker.addTask(101, 10, 1, "Signed up as a member")
	tracker.addTask(102, 10, 1, "Keyholder motion successful")
	tracker.addTask(103, 10, 4, "Visit")

	runner := newTestRunner(t, tracker, testSnapshot(), Options{})

	changes, err := runner.closeByOrder(context.Background())
	require.NoError(t, err)

	// Thresholds 2 and 3 have passed, threshold 6 has not; the task
	// closed by hand is left alone.
	assert.Equal(t, 2, changes)
	assert.True(t, tracker.tasks[100].IsClosed)
	assert.True(t, tracker.tasks[101].IsClosed)
	assert.False(t, tracker.tasks[102].IsClosed)
	assert.Equal(t, 2, tracker.writes)
}

func TestCloseByOrderBelowAllThresholds(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addStory(10, 1, "Jane Doe", "bot-managed")
	tracker.addTask(100, 10, 1, "Encourage to visit")

	runner := newTestRunner(t, tracker, testSnapshot(), Options{})

	changes, err := runner.closeByOrder(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changes)
	assert.False(t, tracker.tasks[100].IsClosed)
}

func TestCloseByOrderCustomTable(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addStory(10, 2, "Jane Doe", "bot-managed")
	tracker.addTask(100, 10, 1, "Say hello")

	runner := newTestRunner(t, tracker, testSnapshot(), Options{
		Closures: map[int][]string{2: {"Say hello"}},
	})

	changes, err := runner.closeByOrder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changes)
	assert.True(t, tracker.tasks[100].IsClosed)
}
