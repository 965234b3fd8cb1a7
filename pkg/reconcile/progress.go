package reconcile

import (
	"context"
	"slices"

	"github.com/makerhaus/attendant/pkg/taiga"
)

// progressComplete advances cards whose checklist is fully resolved:
// every task closed or parked in an exempt status. Cards with no tasks
// stay put until the template sync has populated them.
func (r *Runner) progressComplete(ctx context.Context) (int, error) {
	stories, err := r.taggedStories(ctx)
	if err != nil {
		return 0, err
	}

	changes := 0

	for _, story := range stories {
		if story.IsClosed || story.Subject == r.cfg.Taiga.TemplateSubject {
			continue
		}

		tasks, err := r.tracker.Tasks(ctx, story.ID)
		if err != nil {
			r.logger.Warn("Failed to list card tasks, skipping", "story", story.ID, "error", err)

			continue
		}

		if len(tasks) == 0 || !r.allResolved(tasks) {
			continue
		}

		if r.advanceStory(ctx, story) {
			changes++
		}
	}

	return changes, nil
}

func (r *Runner) allResolved(tasks []taiga.Task) bool {
	for _, task := range tasks {
		if task.IsClosed {
			continue
		}

		if !slices.Contains(r.cfg.Taiga.ExemptTaskStatuses, r.board.TaskStatusName(task.Status)) {
			return false
		}
	}

	return true
}

// progressLinked moves cards out of the intake columns once they have
// been linked to a membership record. Intake columns hold cards that
// are waiting on nothing except identification.
func (r *Runner) progressLinked(ctx context.Context) (int, error) {
	stories, err := r.taggedStories(ctx)
	if err != nil {
		return 0, err
	}

	changes := 0

	for _, story := range stories {
		if story.IsClosed || story.Subject == r.cfg.Taiga.TemplateSubject {
			continue
		}

		if !slices.Contains(r.cfg.Taiga.IntakeStages, r.board.StatusName(story.Status)) {
			continue
		}

		contact, err := r.contactID(ctx, story.ID)
		if err != nil {
			r.logger.Warn("Failed to read card contact, skipping", "story", story.ID, "error", err)

			continue
		}

		if contact == "" {
			continue
		}

		if r.advanceStory(ctx, story) {
			changes++
		}
	}

	return changes, nil
}

// progressMembership moves cards out of the casual-attendee column once
// the linked contact holds a qualifying membership.
func (r *Runner) progressMembership(ctx context.Context) (int, error) {
	stories, err := r.taggedStories(ctx)
	if err != nil {
		return 0, err
	}

	changes := 0

	for _, story := range stories {
		if story.IsClosed || story.Subject == r.cfg.Taiga.TemplateSubject {
			continue
		}

		if r.board.StatusName(story.Status) != r.cfg.Taiga.MemberStage {
			continue
		}

		contact, err := r.contactID(ctx, story.ID)
		if err != nil {
			r.logger.Warn("Failed to read card contact, skipping", "story", story.ID, "error", err)

			continue
		}

		if contact == "" {
			continue
		}

		if !slices.Contains(r.cfg.TidyHQ.QualifyingMemberships, r.cache.MembershipType(contact)) {
			continue
		}

		if r.advanceStory(ctx, story) {
			changes++
		}
	}

	return changes, nil
}
