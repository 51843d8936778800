package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// EventJobArgs carries one onboarding event through the River job queue.
// It snapshots the subject at publish time so the worker never needs to
// query the database. Passwords and hashes are never part of a subject.
type EventJobArgs struct {
	Event          string `json:"event"`
	OrganisationID string `json:"organisation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	Email          string `json:"email,omitempty"`
	Slug           string `json:"slug,omitempty"`
	Plan           string `json:"plan,omitempty"`
}

// QueueOnboarding is the queue every onboarding event job lands on.
const QueueOnboarding = "onboarding"

// eventMaxAttempts bounds retries of a failing event job.
const eventMaxAttempts = 5

func (EventJobArgs) Kind() string { return "onboarding.event" }

func (EventJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueOnboarding, MaxAttempts: eventMaxAttempts}
}

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues an onboarding event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, subject domain.Subject) error {
	_, err := p.client.Insert(ctx, EventJobArgs{
		Event:          string(event),
		OrganisationID: subject.OrganisationID,
		UserID:         subject.UserID,
		Email:          subject.Email,
		Slug:           subject.Slug,
		Plan:           subject.Plan,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing onboarding event job: %w", err)
	}
	return nil
}
