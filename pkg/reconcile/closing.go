package reconcile

import (
	"context"
	"slices"
)

// defaultClosures maps a stage order to checklist subjects that become
// moot once a card reaches that position. A later milestone implies the
// earlier steps happened, whether or not anyone ticked them off.
var defaultClosures = map[int][]string{
	2: {
		"Respond to query",
		"Encourage to visit",
		"Visit",
	},
	3: {
		"Signed up as a member",
	},
	5: {
		"Demonstrated keyholder responsibilities",
		"Offered key",
	},
	6: {
		"Keyholder motion put to committee",
		"Keyholder motion successful",
		"Confirmed photo on tidyhq",
		"Confirmed paying via bank",
		"Send keyholder documentation",
		"Send bond invoice",
		"Keyholder induction completed",
	},
}

// closeByOrder closes open tasks whose closure threshold sits at or
// below the card's current stage order.
func (r *Runner) closeByOrder(ctx context.Context) (int, error) {
	stories, err := r.taggedStories(ctx)
	if err != nil {
		return 0, err
	}

	changes := 0

	for _, story := range stories {
		if story.IsClosed || story.Subject == r.cfg.Taiga.TemplateSubject {
			continue
		}

		order, ok := r.board.OrderOf(story.Status)
		if !ok {
			continue
		}

		moot := r.mootSubjects(order)
		if len(moot) == 0 {
			continue
		}

		tasks, err := r.tracker.Tasks(ctx, story.ID)
		if err != nil {
			r.logger.Warn("Failed to list card tasks, skipping", "story", story.ID, "error", err)

			continue
		}

		for _, task := range tasks {
			if task.IsClosed || !slices.Contains(moot, task.Subject) {
				continue
			}

			if r.updateTask(ctx, task, r.cfg.Taiga.ClosedTaskStatus, "superseded") {
				changes++
			}
		}
	}

	return changes, nil
}

func (r *Runner) mootSubjects(order int) []string {
	var moot []string

	for threshold, subjects := range r.closures {
		if threshold <= order {
			moot = append(moot, subjects...)
		}
	}

	return moot
}
