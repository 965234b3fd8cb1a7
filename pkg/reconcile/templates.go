package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/makerhaus/attendant/pkg/taiga"
)

// ErrDuplicateTemplateTask indicates a template card defines the same
// task subject twice for one stage. This is a configuration error on
// the board and aborts the run before any writes.
var ErrDuplicateTemplateTask = errors.New("duplicate template task subject")

type templateTask struct {
	subject string
	status  int
}

// loadTemplates snapshots the template card of each stage: the cards
// whose subject is the template sentinel, keyed by their status.
func (r *Runner) loadTemplates(ctx context.Context, stories []taiga.UserStory) (map[int][]templateTask, error) {
	templates := make(map[int][]templateTask)

	for _, story := range stories {
		if story.Subject != r.cfg.Taiga.TemplateSubject {
			continue
		}

		tasks, err := r.tracker.Tasks(ctx, story.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks of template %d: %w", story.ID, err)
		}

		seen := make(map[string]bool, len(tasks))

		for _, task := range tasks {
			if seen[task.Subject] {
				return nil, fmt.Errorf("%w: %q in stage %s",
					ErrDuplicateTemplateTask, task.Subject, r.board.StatusName(story.Status))
			}

			seen[task.Subject] = true

			templates[story.Status] = append(templates[story.Status], templateTask{
				subject: task.Subject,
				status:  task.Status,
			})
		}
	}

	return templates, nil
}

// syncTemplates copies the template task set onto every tagged card
// that entered a templated stage for the first time. The ledger makes
// this at-most-once per (card, stage): a card cycling back to an
// earlier stage keeps whatever the user did to its tasks.
func (r *Runner) syncTemplates(ctx context.Context) (int, error) {
	stories, err := r.allStories(ctx)
	if err != nil {
		return 0, err
	}

	templates, err := r.loadTemplates(ctx, stories)
	if err != nil {
		return 0, err
	}

	changes := 0

	for _, story := range stories {
		if !story.HasTag(r.cfg.Taiga.Tag) {
			continue
		}

		recorded, err := r.ledger.Completed(ctx, story.ID)
		if err != nil {
			return changes, err
		}

		if recorded[story.Status] {
			continue
		}

		template, ok := templates[story.Status]
		if !ok {
			r.logger.Debug("No template for stage", "story", story.ID, "stage", r.board.StatusName(story.Status))

			continue
		}

		tasks, err := r.tracker.Tasks(ctx, story.ID)
		if err != nil {
			r.logger.Warn("Failed to list story tasks", "story", story.ID, "error", err)

			continue
		}

		existing := make(map[string]bool, len(tasks))
		for _, task := range tasks {
			existing[task.Subject] = true
		}

		created := 0
		failed := false

		for _, task := range template {
			if existing[task.subject] {
				continue
			}

			_, err := r.tracker.CreateTask(ctx, taiga.CreateTaskRequest{
				Project:   r.board.ProjectID,
				UserStory: story.ID,
				Subject:   task.subject,
				Status:    task.status,
			})
			if err != nil {
				r.logger.Warn("Failed to create template task",
					"story", story.ID, "subject", task.subject, "error", err)

				failed = true

				continue
			}

			r.logger.Info("Created template task", "story", story.ID, "subject", task.subject)

			created++
		}

		// Only record the stage once the full template landed; the
		// existing-subject check makes the retry idempotent.
		if failed {
			changes += created

			continue
		}

		if err := r.ledger.MarkCompleted(ctx, story.ID, story.Status); err != nil {
			return changes, err
		}

		changes += created
	}

	return changes, nil
}
