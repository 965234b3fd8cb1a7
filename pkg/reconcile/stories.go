package reconcile

import (
	"context"

	"github.com/makerhaus/attendant/pkg/taiga"
)

// taggedStories lists the cards carrying the managed tag.
func (r *Runner) taggedStories(ctx context.Context) ([]taiga.UserStory, error) {
	return r.tracker.UserStories(ctx, r.board.ProjectID, r.cfg.Taiga.Tag)
}

// allStories lists every card in the project. Template cards do not
// carry the managed tag, so template scanning cannot use the filter.
func (r *Runner) allStories(ctx context.Context) ([]taiga.UserStory, error) {
	return r.tracker.UserStories(ctx, r.board.ProjectID, "")
}

// contactID returns the membership record id linked to a story, or ""
// when the identity reference is unset.
func (r *Runner) contactID(ctx context.Context, storyID int) (string, error) {
	values, err := r.tracker.StoryCustomValues(ctx, storyID)
	if err != nil {
		return "", err
	}

	return values.Get(r.cfg.Taiga.ContactField), nil
}

// advanceStory moves a card one column forward. Returns false when the
// card is already in the last column or another writer raced the
// update.
func (r *Runner) advanceStory(ctx context.Context, story taiga.UserStory) bool {
	next, ok := r.board.NextStatus(story.Status)
	if !ok {
		r.logger.Debug("Story already in the last column", "story", story.ID)

		return false
	}

	if err := r.tracker.UpdateStoryStatus(ctx, story.ID, next, story.Version); err != nil {
		if taiga.IsVersionConflict(err) {
			r.logger.Debug("Story changed under us, deferring to next pass", "story", story.ID)
		} else {
			r.logger.Warn("Failed to progress story", "story", story.ID, "error", err)
		}

		return false
	}

	r.logger.Info("Progressed story",
		"story", story.ID,
		"subject", story.Subject,
		"to", r.board.StatusName(next))

	return true
}
