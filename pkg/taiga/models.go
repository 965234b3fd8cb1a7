// Package taiga is a client for the subset of the Taiga REST API the
// reconciler consumes: projects, user stories, tasks, statuses and
// custom attribute values. Every mutation carries the object's current
// version for optimistic concurrency.
package taiga

import "encoding/json"

// Project is a tracker project (board).
type Project struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// UserStory is a card on the board.
type UserStory struct {
	ID       int    `json:"id"`
	Ref      int    `json:"ref"`
	Subject  string `json:"subject"`
	Project  int    `json:"project"`
	Status   int    `json:"status"`
	Version  int    `json:"version"`
	IsClosed bool   `json:"is_closed"`
	Tags     []Tag  `json:"tags"`
}

// HasTag reports whether the story carries the named tag.
func (s *UserStory) HasTag(name string) bool {
	for _, tag := range s.Tags {
		if tag.Name == name {
			return true
		}
	}

	return false
}

// Tag is a story tag. The wire format is a two-element array of name
// and colour, where the colour may be null.
type Tag struct {
	Name  string
	Color string
}

func (t *Tag) UnmarshalJSON(data []byte) error {
	var pair []*string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}

	if len(pair) > 0 && pair[0] != nil {
		t.Name = *pair[0]
	}

	if len(pair) > 1 && pair[1] != nil {
		t.Color = *pair[1]
	}

	return nil
}

func (t Tag) MarshalJSON() ([]byte, error) {
	pair := []any{t.Name, nil}
	if t.Color != "" {
		pair[1] = t.Color
	}

	return json.Marshal(pair)
}

// Task is a checklist item attached to a user story.
type Task struct {
	ID        int    `json:"id"`
	Subject   string `json:"subject"`
	Project   int    `json:"project"`
	UserStory int    `json:"user_story"`
	Status    int    `json:"status"`
	Version   int    `json:"version"`
	IsClosed  bool   `json:"is_closed"`
}

// StoryStatus is a board column. Order gives the column's position and
// defines the total ordering stages are advanced through.
type StoryStatus struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Order    int    `json:"order"`
	Project  int    `json:"project"`
	IsClosed bool   `json:"is_closed"`
}

// TaskStatus is a status a task can hold.
type TaskStatus struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Order    int    `json:"order"`
	IsClosed bool   `json:"is_closed"`
}

// CreateUserStoryRequest describes a new card.
type CreateUserStoryRequest struct {
	Project int      `json:"project"`
	Subject string   `json:"subject"`
	Status  int      `json:"status"`
	Tags    []string `json:"tags,omitempty"`
}

// CreateTaskRequest describes a new checklist item.
type CreateTaskRequest struct {
	Project   int    `json:"project"`
	UserStory int    `json:"user_story"`
	Subject   string `json:"subject"`
	Status    int    `json:"status"`
}
