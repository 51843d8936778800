package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// DefaultMaxWorkers is used when Setup is given no positive worker count.
const DefaultMaxWorkers = 2

// Setup migrates River's own tables on db and returns a client that works
// the onboarding queue. Start and Stop are left to the caller.
func Setup(ctx context.Context, db *sql.DB, maxWorkers int) (*Client, error) {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	driver := riversqlite.New(db)
	if err := migrate(ctx, driver); err != nil {
		return nil, err
	}

	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, &EventWorker{}); err != nil {
		return nil, fmt.Errorf("registering onboarding worker: %w", err)
	}

	client, err := river.NewClient(driver, &river.Config{
		Logger: slog.Default().With("component", "river"),
		Queues: map[string]river.QueueConfig{
			QueueOnboarding: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("river client: %w", err)
	}
	return client, nil
}

// migrate brings river_job, river_leader and friends up to date. They are
// versioned by rivermigrate, apart from the store's goose migrations.
func migrate(ctx context.Context, driver *riversqlite.Driver) error {
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return fmt.Errorf("river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrations: %w", err)
	}
	if len(res.Versions) > 0 {
		slog.DebugContext(ctx, "river migrations applied", "count", len(res.Versions))
	}
	return nil
}
