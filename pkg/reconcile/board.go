// Package reconcile implements the reconciliation loop that keeps the
// onboarding board consistent with the membership database: a fixed
// ordered list of idempotent rules is re-run until a full pass makes no
// further changes.
package reconcile

import (
	"context"
	"fmt"

	"github.com/makerhaus/attendant/pkg/taiga"
)

// Tracker is the subset of the tracker client the rules drive. The
// production implementation is *taiga.Client.
type Tracker interface {
	UserStories(ctx context.Context, projectID int, tag string) ([]taiga.UserStory, error)
	CreateUserStory(ctx context.Context, req taiga.CreateUserStoryRequest) (*taiga.UserStory, error)
	UpdateStoryStatus(ctx context.Context, storyID, status, version int) error
	Tasks(ctx context.Context, storyID int) ([]taiga.Task, error)
	CreateTask(ctx context.Context, req taiga.CreateTaskRequest) (*taiga.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID, status, version int) error
	StoryCustomValues(ctx context.Context, storyID int) (*taiga.CustomValues, error)
	PatchStoryCustomValues(ctx context.Context, storyID int, values map[string]string, version int) error
	SetStoryCustomValue(ctx context.Context, storyID int, field, value string) error
}

// Notifier delivers out-of-band notifications about board changes.
type Notifier interface {
	PostMessage(ctx context.Context, channel, text string) error
}

// Board is the static shape of the tracker project: its id and the
// story/task statuses looked up once at startup.
type Board struct {
	ProjectID     int
	StoryStatuses map[int]taiga.StoryStatus
	TaskStatuses  map[int]string
}

// NewBoard resolves the named project and loads its statuses.
func NewBoard(ctx context.Context, client *taiga.Client, projectName string) (Board, error) {
	project, err := client.ProjectByName(ctx, projectName)
	if err != nil {
		return Board{}, fmt.Errorf("failed to find project %q: %w", projectName, err)
	}

	storyStatuses, err := client.StoryStatuses(ctx, project.ID)
	if err != nil {
		return Board{}, fmt.Errorf("failed to load story statuses: %w", err)
	}

	taskStatuses, err := client.TaskStatuses(ctx, project.ID)
	if err != nil {
		return Board{}, fmt.Errorf("failed to load task statuses: %w", err)
	}

	board := Board{
		ProjectID:     project.ID,
		StoryStatuses: make(map[int]taiga.StoryStatus, len(storyStatuses)),
		TaskStatuses:  make(map[int]string, len(taskStatuses)),
	}

	for _, status := range storyStatuses {
		board.StoryStatuses[status.ID] = status
	}

	for _, status := range taskStatuses {
		board.TaskStatuses[status.ID] = status.Name
	}

	return board, nil
}

// OrderOf returns the column position of a story status.
func (b Board) OrderOf(statusID int) (int, bool) {
	status, ok := b.StoryStatuses[statusID]
	if !ok {
		return 0, false
	}

	return status.Order, true
}

// StatusName returns the column name of a story status, or "".
func (b Board) StatusName(statusID int) string {
	return b.StoryStatuses[statusID].Name
}

// NextStatus returns the status id of the column immediately after the
// given one in board order, or false when the story is already in the
// last column. Orders need not be contiguous.
func (b Board) NextStatus(statusID int) (int, bool) {
	current, ok := b.OrderOf(statusID)
	if !ok {
		return 0, false
	}

	nextID := 0
	nextOrder := 0
	found := false

	for id, status := range b.StoryStatuses {
		if status.Order <= current {
			continue
		}

		if !found || status.Order < nextOrder {
			nextID = id
			nextOrder = status.Order
			found = true
		}
	}

	return nextID, found
}

// TaskStatusName returns the name of a task status, or "".
func (b Board) TaskStatusName(statusID int) string {
	return b.TaskStatuses[statusID]
}
