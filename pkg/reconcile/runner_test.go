package reconcile

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/makerhaus/attendant/pkg/tidyhq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunConverges walks a freshly linked card through the board: the
// identity link, the template copy, predicate auto-completion and stage
// progression all land in a single Run, stopping at the first stage
// whose checklist cannot be satisfied from the membership snapshot.
func TestRunConverges(t *testing.T) {
	snapshot := testSnapshot()
	snapshot.Contacts[0].CustomFields = []tidyhq.CustomField{
		{ID: "f-slack", Value: json.RawMessage(`"@jane"`)},
	}

	tracker := newFakeTracker()
	tracker.addStory(1, 1, "Template")
	tracker.addTask(100, 1, 1, "Join Slack")
	tracker.addTask(101, 1, 1, "Signed up as a visitor")
	tracker.addStory(2, 4, "Template")
	tracker.addTask(102, 2, 1, "Has valid emergency contact details")
	tracker.addStory(10, 1, "Jane Doe", "bot-managed")
	tracker.setValue(10, "2", "jane@example.com")

	runner := newTestRunner(t, tracker, snapshot, Options{})

	require.NoError(t, runner.Run(context.Background()))

	story := tracker.stories[10]
	assert.Equal(t, 4, story.Status, "expected the card to stop at Member")
	assert.False(t, story.IsClosed)

	tasks, err := tracker.Tasks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	bySubject := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		bySubject[task.Subject] = task.IsClosed
	}

	assert.True(t, bySubject["Join Slack"])
	assert.True(t, bySubject["Signed up as a visitor"])
	assert.False(t, bySubject["Has valid emergency contact details"])

	values := tracker.values[10].Values
	assert.Equal(t, "100", values["1"])
	assert.Equal(t, "See TidyHQ", values["2"])
	assert.Equal(t, "https://makerhaus.tidyhq.com/contacts/100", values["3"])
	assert.Equal(t, "Full", values["4"])
}

// TestRunIdempotent re-runs a stabilized board and expects zero writes.
func TestRunIdempotent(t *testing.T) {
	snapshot := testSnapshot()
	snapshot.Contacts[0].CustomFields = []tidyhq.CustomField{
		{ID: "f-slack", Value: json.RawMessage(`"@jane"`)},
	}

	tracker := newFakeTracker()
	tracker.addStory(1, 1, "Template")
	tracker.addTask(100, 1, 1, "Join Slack")
	tracker.addStory(2, 4, "Template")
	tracker.addTask(102, 2, 1, "Has valid emergency contact details")
	tracker.addStory(10, 1, "Jane Doe", "bot-managed")
	tracker.setValue(10, "2", "jane@example.com")

	runner := newTestRunner(t, tracker, snapshot, Options{})

	require.NoError(t, runner.Run(context.Background()))

	writes := tracker.writes
	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, writes, tracker.writes)
}

func TestConvergeCapExceeded(t *testing.T) {
	tracker := newFakeTracker()
	runner := newTestRunner(t, tracker, testSnapshot(), Options{MaxPasses: 3})

	passes := 0
	restless := rule{name: "restless", run: func(context.Context) (int, error) {
		passes++

		return 1, nil
	}}

	err := runner.converge(context.Background(), []rule{restless})
	require.ErrorIs(t, err, ErrNoConvergence)
	assert.Equal(t, 3, passes)
}

func TestRunRuleErrorIsFatal(t *testing.T) {
	tracker := newFakeTracker()
	tracker.addStory(1, 3, "Template")
	tracker.addTask(100, 1, 1, "Join Slack")
	tracker.addTask(101, 1, 1, "Join Slack")
	tracker.addStory(10, 3, "Jane Doe", "bot-managed")

	runner := newTestRunner(t, tracker, testSnapshot(), Options{})

	err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrDuplicateTemplateTask)
	assert.Zero(t, tracker.writes)
}
