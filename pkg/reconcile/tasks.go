package reconcile

import (
	"context"
	"time"

	"github.com/makerhaus/attendant/pkg/taiga"
)

// checkTasks closes open checklist tasks whose real-world condition
// already holds in the membership database, and marks the concession
// check not-applicable for membership levels that never need it.
func (r *Runner) checkTasks(ctx context.Context) (int, error) {
	stories, err := r.taggedStories(ctx)
	if err != nil {
		return 0, err
	}

	check := &checker{cfg: r.cfg, cache: r.cache, now: time.Now()}
	changes := 0

	for _, story := range stories {
		if story.IsClosed || story.Subject == r.cfg.Taiga.TemplateSubject {
			continue
		}

		contact, err := r.contactID(ctx, story.ID)
		if err != nil {
			r.logger.Warn("Failed to read card contact, skipping", "story", story.ID, "error", err)

			continue
		}

		tasks, err := r.tracker.Tasks(ctx, story.ID)
		if err != nil {
			r.logger.Warn("Failed to list card tasks, skipping", "story", story.ID, "error", err)

			continue
		}

		for _, task := range tasks {
			// Tasks parked as not applicable stay parked.
			if task.IsClosed || task.Status == r.cfg.Taiga.NotApplicableTaskStatus {
				continue
			}

			if r.flipConcession(ctx, check, task, contact) {
				changes++

				continue
			}

			predicate, ok := taskPredicates[task.Subject]
			if !ok {
				continue
			}

			if !predicate(check, contact) {
				continue
			}

			if r.updateTask(ctx, task, r.cfg.Taiga.ClosedTaskStatus, "complete") {
				changes++
			}
		}
	}

	return changes, nil
}

// flipConcession moves the proof-of-concession task to not-applicable
// for membership levels that never require it.
func (r *Runner) flipConcession(ctx context.Context, check *checker, task taiga.Task, contact string) bool {
	if r.cfg.Taiga.NotApplicableTaskStatus == 0 {
		return false
	}

	if task.Subject != "Proof of concession sighted" || task.Status == r.cfg.Taiga.NotApplicableTaskStatus {
		return false
	}

	if !check.concessionNotNeeded(contact) {
		return false
	}

	return r.updateTask(ctx, task, r.cfg.Taiga.NotApplicableTaskStatus, "not applicable")
}

func (r *Runner) updateTask(ctx context.Context, task taiga.Task, status int, reason string) bool {
	err := r.tracker.UpdateTaskStatus(ctx, task.ID, status, task.Version)
	if err != nil {
		if taiga.IsVersionConflict(err) {
			r.logger.Debug("Task changed under us, retrying next pass", "task", task.ID)
		} else {
			r.logger.Warn("Failed to update task", "task", task.ID, "error", err)
		}

		return false
	}

	r.logger.Info("Marked task", "task", task.ID, "subject", task.Subject, "status", reason)

	return true
}
