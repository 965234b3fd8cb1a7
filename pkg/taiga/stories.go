package taiga

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Projects lists all projects visible to the session.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, "Projects", http.MethodGet, "/api/v1/projects", nil, nil, &projects); err != nil {
		return nil, err
	}

	return projects, nil
}

// ProjectByName finds a project by exact name.
func (c *Client) ProjectByName(ctx context.Context, name string) (*Project, error) {
	projects, err := c.Projects(ctx)
	if err != nil {
		return nil, err
	}

	for i := range projects {
		if projects[i].Name == name {
			return &projects[i], nil
		}
	}

	return nil, ErrNotFound
}

// UserStories lists the stories in a project. A non-empty tag narrows
// the listing server-side.
func (c *Client) UserStories(ctx context.Context, projectID int, tag string) ([]UserStory, error) {
	query := url.Values{"project": {strconv.Itoa(projectID)}}
	if tag != "" {
		query.Set("tags", tag)
	}

	var stories []UserStory
	if err := c.do(ctx, "UserStories", http.MethodGet, "/api/v1/userstories", query, nil, &stories); err != nil {
		return nil, err
	}

	return stories, nil
}

// CreateUserStory creates a new card and returns it.
func (c *Client) CreateUserStory(ctx context.Context, req CreateUserStoryRequest) (*UserStory, error) {
	var story UserStory
	if err := c.do(ctx, "CreateUserStory", http.MethodPost, "/api/v1/userstories", nil, req, &story); err != nil {
		return nil, err
	}

	return &story, nil
}

// UpdateStoryStatus moves a card to another column via a versioned
// partial update.
func (c *Client) UpdateStoryStatus(ctx context.Context, storyID, status, version int) error {
	payload := map[string]int{
		"status":  status,
		"version": version,
	}

	return c.do(ctx, "UpdateStoryStatus", http.MethodPatch, "/api/v1/userstories/"+strconv.Itoa(storyID), nil, payload, nil)
}

// StoryStatuses lists the columns of a project.
func (c *Client) StoryStatuses(ctx context.Context, projectID int) ([]StoryStatus, error) {
	query := url.Values{"project": {strconv.Itoa(projectID)}}

	var statuses []StoryStatus
	if err := c.do(ctx, "StoryStatuses", http.MethodGet, "/api/v1/userstory-statuses", query, nil, &statuses); err != nil {
		return nil, err
	}

	return statuses, nil
}
