package reconcile

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/makerhaus/attendant/pkg/config"
	"github.com/makerhaus/attendant/pkg/ledger"
	"github.com/makerhaus/attendant/pkg/log"
	"github.com/makerhaus/attendant/pkg/taiga"
	"github.com/makerhaus/attendant/pkg/tidyhq"
	"github.com/stretchr/testify/require"
)

// fakeTracker is an in-memory Tracker with the same optimistic
// concurrency rules as the real API: every mutation must carry the
// object's current version and bumps it on success.
type fakeTracker struct {
	stories map[int]*taiga.UserStory
	tasks   map[int]*taiga.Task
	values  map[int]*taiga.CustomValues

	closedStatuses     map[int]bool
	closedTaskStatuses map[int]bool

	nextID int
	writes int

	// storyConflicts[id] > 0 makes the next status updates of that
	// story fail with a version conflict.
	storyConflicts map[int]int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		stories:            make(map[int]*taiga.UserStory),
		tasks:              make(map[int]*taiga.Task),
		values:             make(map[int]*taiga.CustomValues),
		closedStatuses:     map[int]bool{6: true},
		closedTaskStatuses: map[int]bool{4: true},
		nextID:             1000,
		storyConflicts:     make(map[int]int),
	}
}

func conflict(op string) error {
	return &taiga.APIError{Op: op, StatusCode: 409}
}

func (f *fakeTracker) addStory(id, status int, subject string, tags ...string) *taiga.UserStory {
	story := &taiga.UserStory{
		ID:       id,
		Ref:      id,
		Subject:  subject,
		Project:  1,
		Status:   status,
		Version:  1,
		IsClosed: f.closedStatuses[status],
	}

	for _, tag := range tags {
		story.Tags = append(story.Tags, taiga.Tag{Name: tag})
	}

	f.stories[id] = story
	f.values[id] = &taiga.CustomValues{Values: map[string]string{}, Version: 1}

	return story
}

func (f *fakeTracker) addTask(id, storyID, status int, subject string) *taiga.Task {
	task := &taiga.Task{
		ID:        id,
		Subject:   subject,
		Project:   1,
		UserStory: storyID,
		Status:    status,
		Version:   1,
		IsClosed:  f.closedTaskStatuses[status],
	}

	f.tasks[id] = task

	return task
}

func (f *fakeTracker) setValue(storyID int, field, value string) {
	f.values[storyID].Values[field] = value
}

func (f *fakeTracker) UserStories(_ context.Context, projectID int, tag string) ([]taiga.UserStory, error) {
	var out []taiga.UserStory

	for _, story := range f.stories {
		if story.Project != projectID {
			continue
		}

		if tag != "" && !story.HasTag(tag) {
			continue
		}

		out = append(out, *story)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (f *fakeTracker) CreateUserStory(_ context.Context, req taiga.CreateUserStoryRequest) (*taiga.UserStory, error) {
	f.nextID++
	f.writes++

	story := f.addStory(f.nextID, req.Status, req.Subject, req.Tags...)
	story.Project = req.Project

	copied := *story

	return &copied, nil
}

func (f *fakeTracker) UpdateStoryStatus(_ context.Context, storyID, status, version int) error {
	if f.storyConflicts[storyID] > 0 {
		f.storyConflicts[storyID]--

		return conflict("update story")
	}

	story, ok := f.stories[storyID]
	if !ok {
		return &taiga.APIError{Op: "update story", StatusCode: 404}
	}

	if story.Version != version {
		return conflict("update story")
	}

	story.Status = status
	story.IsClosed = f.closedStatuses[status]
	story.Version++
	f.writes++

	return nil
}

func (f *fakeTracker) Tasks(_ context.Context, storyID int) ([]taiga.Task, error) {
	var out []taiga.Task

	for _, task := range f.tasks {
		if task.UserStory == storyID {
			out = append(out, *task)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (f *fakeTracker) CreateTask(_ context.Context, req taiga.CreateTaskRequest) (*taiga.Task, error) {
	f.nextID++
	f.writes++

	task := f.addTask(f.nextID, req.UserStory, req.Status, req.Subject)
	copied := *task

	return &copied, nil
}

func (f *fakeTracker) UpdateTaskStatus(_ context.Context, taskID, status, version int) error {
	task, ok := f.tasks[taskID]
	if !ok {
		return &taiga.APIError{Op: "update task", StatusCode: 404}
	}

	if task.Version != version {
		return conflict("update task")
	}

	task.Status = status
	task.IsClosed = f.closedTaskStatuses[status]
	task.Version++
	f.writes++

	return nil
}

func (f *fakeTracker) StoryCustomValues(_ context.Context, storyID int) (*taiga.CustomValues, error) {
	values, ok := f.values[storyID]
	if !ok {
		return &taiga.CustomValues{Values: map[string]string{}, Version: 1}, nil
	}

	return &taiga.CustomValues{Values: maps.Clone(values.Values), Version: values.Version}, nil
}

func (f *fakeTracker) PatchStoryCustomValues(_ context.Context, storyID int, updated map[string]string, version int) error {
	values, ok := f.values[storyID]
	if !ok {
		return &taiga.APIError{Op: "patch custom values", StatusCode: 404}
	}

	if values.Version != version {
		return conflict("patch custom values")
	}

	values.Values = maps.Clone(updated)
	values.Version++
	f.writes++

	return nil
}

func (f *fakeTracker) SetStoryCustomValue(ctx context.Context, storyID int, field, value string) error {
	values, err := f.StoryCustomValues(ctx, storyID)
	if err != nil {
		return err
	}

	values.Values[field] = value

	return f.PatchStoryCustomValues(ctx, storyID, values.Values, values.Version)
}

// fakeNotifier records posted messages.
type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) PostMessage(_ context.Context, channel, text string) error {
	n.messages = append(n.messages, channel+": "+text)

	return nil
}

func testBoard() Board {
	return Board{
		ProjectID: 1,
		StoryStatuses: map[int]taiga.StoryStatus{
			1: {ID: 1, Name: "Prospective", Order: 1},
			2: {ID: 2, Name: "Intake", Order: 2},
			3: {ID: 3, Name: "Attendee", Order: 3},
			4: {ID: 4, Name: "Member", Order: 4},
			5: {ID: 5, Name: "Keyholder", Order: 5},
			6: {ID: 6, Name: "Alumni", Order: 6, IsClosed: true},
		},
		TaskStatuses: map[int]string{
			1:  "New",
			4:  "Complete",
			23: "Not applicable",
			24: "Optional",
		},
	}
}

func testRunnerConfig() *config.Config {
	return &config.Config{
		Taiga: config.TaigaConfig{
			URL:                     "https://tracker.example.com",
			Project:                 "Attendee",
			Tag:                     "bot-managed",
			TemplateSubject:         "Template",
			ContactField:            "1",
			EmailField:              "2",
			ContactURLField:         "3",
			MemberTypeField:         "4",
			EmailTombstone:          "See TidyHQ",
			ClosedTaskStatus:        4,
			NotApplicableTaskStatus: 23,
			ExemptTaskStatuses:      []string{"Optional", "Not applicable"},
			InitialStage:            1,
			IntakeStages:            []string{"Prospective", "Intake"},
			MemberStage:             "Attendee",
		},
		TidyHQ: config.TidyHQConfig{
			IDs: map[string]string{
				"slack":      "f-slack",
				"photo_id":   "f-photo",
				"concession": "f-concession",
				"key_status": "f-key",
			},
			TrainingPrefix:        "Training: ",
			QualifyingMemberships: []string{"Full", "Concession", "Sponsor"},
			BondInvoiceAmounts:    []float64{135, 225},
		},
		Chat: config.ChatConfig{NotifyChannel: "#onboarding"},
	}
}

// testSnapshot returns a membership snapshot with one active full
// member (100, Jane) and one expired concession member (200, Sam).
func testSnapshot() *tidyhq.Cache {
	return &tidyhq.Cache{
		Time: time.Now(),
		Org:  tidyhq.Organization{Name: "Makerhaus", DomainPrefix: "makerhaus"},
		Contacts: []tidyhq.Contact{
			{
				ID:           100,
				FirstName:    "Jane",
				LastName:     "Doe",
				EmailAddress: "jane@example.com",
				PhoneNumber:  "0412345678",
				Groups: []tidyhq.Group{
					{ID: 1, Label: "Training: Induction (Member)"},
					{ID: 2, Label: "Direct Debit Billing"},
				},
			},
			{
				ID:           200,
				FirstName:    "Sam",
				LastName:     "Lee",
				EmailAddress: "sam@example.com",
			},
		},
		Memberships: map[string][]tidyhq.Membership{
			"100": {{
				ID:              1,
				ContactID:       100,
				State:           "activated",
				StartDate:       time.Now().Add(-30 * 24 * time.Hour),
				EndDate:         time.Now().Add(335 * 24 * time.Hour),
				MembershipLevel: tidyhq.MembershipLevel{ID: 1, Name: "Full Membership"},
			}},
			"200": {{
				ID:              2,
				ContactID:       200,
				State:           "expired",
				StartDate:       time.Now().Add(-400 * 24 * time.Hour),
				EndDate:         time.Now().Add(-35 * 24 * time.Hour),
				MembershipLevel: tidyhq.MembershipLevel{ID: 2, Name: "Concession Membership"},
			}},
		},
	}
}

func newTestRunner(t *testing.T, tracker Tracker, cache *tidyhq.Cache, opts Options) *Runner {
	t.Helper()

	store, err := ledger.NewStore(context.Background(), testLogger(), filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	return NewRunner(testRunnerConfig(), testBoard(), tracker, cache, store, testLogger(), opts)
}

func testLogger() *slog.Logger {
	return log.WithModule("reconcile-test")
}
