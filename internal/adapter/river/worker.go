package river

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// EventWorker records onboarding milestones. Unknown events are cancelled
// rather than retried, since no retry can make them valid.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single onboarding event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	args := job.Args
	log := slog.With(
		"event", args.Event,
		"organisation_id", args.OrganisationID,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)

	switch domain.Event(args.Event) {
	case domain.EventSuperAdminCreated:
		log.InfoContext(ctx, "super-admin created", "user_id", args.UserID)
	case domain.EventOrganisationCreated:
		log.InfoContext(ctx, "organisation created", "slug", args.Slug, "plan", args.Plan)
	case domain.EventAdminCreated:
		log.InfoContext(ctx, "organisation admin created", "user_id", args.UserID)
	case domain.EventAuthenticated:
		log.DebugContext(ctx, "principal signed in", "user_id", args.UserID)
	default:
		return river.JobCancel(fmt.Errorf("unknown onboarding event %q", args.Event))
	}
	return nil
}
