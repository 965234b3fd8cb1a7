package reconcile

import (
	"context"
	"maps"
)

// housekeeping fills in the derived card fields that exist purely for
// humans reading the board: a link back to the membership record and
// the current membership type. Runs once after the board stabilizes
// since nothing downstream reads these fields.
func (r *Runner) housekeeping(ctx context.Context) error {
	stories, err := r.taggedStories(ctx)
	if err != nil {
		return err
	}

	for _, story := range stories {
		if story.IsClosed || story.Subject == r.cfg.Taiga.TemplateSubject {
			continue
		}

		values, err := r.tracker.StoryCustomValues(ctx, story.ID)
		if err != nil {
			r.logger.Warn("Failed to read card fields, skipping", "story", story.ID, "error", err)

			continue
		}

		contact := values.Get(r.cfg.Taiga.ContactField)
		if contact == "" {
			continue
		}

		patch := maps.Clone(values.Values)
		if patch == nil {
			patch = make(map[string]string)
		}

		dirty := false

		if field := r.cfg.Taiga.ContactURLField; field != "" && values.Get(field) == "" {
			patch[field] = r.cache.Org.ContactURL(contact)
			dirty = true
		}

		if field := r.cfg.Taiga.MemberTypeField; field != "" && values.Get(field) == "" {
			if memberType := r.cache.MembershipType(contact); memberType != "" {
				patch[field] = memberType
				dirty = true
			}
		}

		if !dirty {
			continue
		}

		err = r.tracker.PatchStoryCustomValues(ctx, story.ID, patch, values.Version)
		if err != nil {
			r.logger.Warn("Failed to update card fields", "story", story.ID, "error", err)

			continue
		}

		r.logger.Info("Filled derived card fields", "story", story.ID)
	}

	return nil
}
