package otel

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DBConfigurer finishes driver setup on a freshly opened handle.
type DBConfigurer func(db *sql.DB, dataSourceName string) error

var dbAttributes = []attribute.KeyValue{
	semconv.DBSystemSqlite,
	attribute.String("db.namespace", "garagedesk"),
}

// OpenDB opens the garagedesk SQLite file through otelsql. Statement spans
// skip connection resets and row iteration, which only add noise around the
// short probe queries.
func OpenDB(dataSourceName string, configure DBConfigurer) (*sql.DB, error) {
	db, err := otelsql.Open("sqlite", dataSourceName,
		otelsql.WithAttributes(dbAttributes...),
		otelsql.WithSpanOptions(otelsql.SpanOptions{
			OmitConnResetSession: true,
			OmitRows:             true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dataSourceName, err)
	}

	// One writer: the store and the river queue share this handle.
	db.SetMaxOpenConns(1)

	if configure != nil {
		if err = configure(db, dataSourceName); err != nil {
			db.Close()
			return nil, err
		}
	}

	if _, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(dbAttributes...)); err != nil {
		db.Close()
		return nil, fmt.Errorf("register db stats metrics: %w", err)
	}
	return db, nil
}
