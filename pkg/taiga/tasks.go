package taiga

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Tasks lists the checklist items attached to a story.
func (c *Client) Tasks(ctx context.Context, storyID int) ([]Task, error) {
	query := url.Values{"user_story": {strconv.Itoa(storyID)}}

	var tasks []Task
	if err := c.do(ctx, "Tasks", http.MethodGet, "/api/v1/tasks", query, nil, &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// CreateTask attaches a new checklist item to a story.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	var task Task
	if err := c.do(ctx, "CreateTask", http.MethodPost, "/api/v1/tasks", nil, req, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// UpdateTaskStatus changes a task's status via a versioned partial
// update. A version conflict means another writer raced this one; the
// caller decides whether to retry on a later pass.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID, status, version int) error {
	payload := map[string]int{
		"status":  status,
		"version": version,
	}

	return c.do(ctx, "UpdateTaskStatus", http.MethodPatch, "/api/v1/tasks/"+strconv.Itoa(taskID), nil, payload, nil)
}

// TaskStatuses lists the statuses tasks can hold in a project.
func (c *Client) TaskStatuses(ctx context.Context, projectID int) ([]TaskStatus, error) {
	query := url.Values{"project": {strconv.Itoa(projectID)}}

	var statuses []TaskStatus
	if err := c.do(ctx, "TaskStatuses", http.MethodGet, "/api/v1/task-statuses", query, nil, &statuses); err != nil {
		return nil, err
	}

	return statuses, nil
}
