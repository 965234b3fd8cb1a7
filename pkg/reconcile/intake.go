package reconcile

import (
	"context"
	"fmt"

	"github.com/makerhaus/attendant/pkg/taiga"
	"github.com/makerhaus/attendant/pkg/tidyhq"
)

// intake creates a card for every membership record that should be on
// the board but is not yet referenced by a tagged card. Disabled unless
// the run was started in import mode.
func (r *Runner) intake(ctx context.Context) (int, error) {
	if !r.importContacts {
		return 0, nil
	}

	stories, err := r.taggedStories(ctx)
	if err != nil {
		return 0, err
	}

	represented := make(map[string]bool, len(stories))

	for _, story := range stories {
		contactID, err := r.contactID(ctx, story.ID)
		if err != nil {
			r.logger.Warn("Failed to fetch custom values", "story", story.ID, "error", err)

			continue
		}

		if contactID != "" {
			represented[contactID] = true
		}
	}

	changes := 0

	for _, contactID := range r.cache.UsefulContactIDs() {
		if represented[contactID] {
			continue
		}

		contact := r.cache.Contact(contactID)
		if contact == nil {
			continue
		}

		story, err := r.tracker.CreateUserStory(ctx, taiga.CreateUserStoryRequest{
			Project: r.board.ProjectID,
			Subject: tidyhq.FormatContactName(contact),
			Status:  r.cfg.Taiga.InitialStage,
			Tags:    []string{r.cfg.Taiga.Tag},
		})
		if err != nil {
			r.logger.Warn("Failed to create story for contact", "contact", contactID, "error", err)

			continue
		}

		if err := r.tracker.SetStoryCustomValue(ctx, story.ID, r.cfg.Taiga.ContactField, contactID); err != nil {
			r.logger.Warn("Failed to set contact reference", "story", story.ID, "error", err)
		}

		r.logger.Info("Created story for membership record", "story", story.ID, "contact", contactID)

		r.notifyIntake(ctx, story, contactID)

		changes++
	}

	return changes, nil
}

func (r *Runner) notifyIntake(ctx context.Context, story *taiga.UserStory, contactID string) {
	if r.notifier == nil || r.cfg.Chat.NotifyChannel == "" {
		return
	}

	text := fmt.Sprintf("Created a card for %s (contact %s)", story.Subject, contactID)

	if err := r.notifier.PostMessage(ctx, r.cfg.Chat.NotifyChannel, text); err != nil {
		r.logger.Warn("Failed to send intake notification", "story", story.ID, "error", err)
	}
}
