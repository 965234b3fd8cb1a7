package reconcile

import (
	"context"
	"maps"
	"strconv"

	"github.com/makerhaus/attendant/pkg/taiga"
)

// linkIdentities matches cards that carry an email but no identity
// reference against the membership snapshot and writes the reference
// back. The email field is replaced with a tombstone so the address is
// not kept in two systems.
func (r *Runner) linkIdentities(ctx context.Context) (int, error) {
	stories, err := r.taggedStories(ctx)
	if err != nil {
		return 0, err
	}

	changes := 0

	for _, story := range stories {
		values, err := r.tracker.StoryCustomValues(ctx, story.ID)
		if err != nil {
			r.logger.Warn("Failed to fetch custom values", "story", story.ID, "error", err)

			continue
		}

		if values.Get(r.cfg.Taiga.ContactField) != "" {
			continue
		}

		email := values.Get(r.cfg.Taiga.EmailField)
		if email == "" {
			continue
		}

		contact := r.cache.ContactByEmail(email)
		if contact == nil {
			r.logger.Debug("No membership record for email", "story", story.ID)

			continue
		}

		updated := maps.Clone(values.Values)
		if updated == nil {
			updated = make(map[string]string, 2)
		}

		updated[r.cfg.Taiga.ContactField] = strconv.Itoa(contact.ID)
		updated[r.cfg.Taiga.EmailField] = r.cfg.Taiga.EmailTombstone

		if err := r.tracker.PatchStoryCustomValues(ctx, story.ID, updated, values.Version); err != nil {
			if taiga.IsVersionConflict(err) {
				r.logger.Debug("Custom values changed under us, deferring", "story", story.ID)
			} else {
				r.logger.Warn("Failed to link contact", "story", story.ID, "error", err)
			}

			continue
		}

		r.logger.Info("Linked story to membership record", "story", story.ID, "contact", contact.ID)

		changes++
	}

	return changes, nil
}
