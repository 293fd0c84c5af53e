package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"

	"github.com/dzerik/campaign-portal/internal/model"
	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
	"github.com/dzerik/campaign-portal/pkg/tracing"
)

// SQLSource reads customers from a PostgreSQL table.
type SQLSource struct {
	db       *sqlx.DB
	query    string
	breakers *circuitbreaker.Manager
	recorder FetchRecorder
}

// SQLOptions configures a SQLSource.
type SQLOptions struct {
	DSN          string
	Table        string
	MaxOpenConns int
	// Migrate applies the embedded migrations after connecting.
	Migrate bool
}

// NewSQLSource opens the database and checks it is reachable.
func NewSQLSource(ctx context.Context, opts SQLOptions, breakers *circuitbreaker.Manager, recorder FetchRecorder) (*SQLSource, error) {
	db, err := sqlx.Open("pgx", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(max(1, maxOpen/4))
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.Migrate {
		if err := Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return NewSQLSourceFromDB(db, opts.Table, breakers, recorder), nil
}

// NewSQLSourceFromDB wraps an open database.
func NewSQLSourceFromDB(db *sqlx.DB, table string, breakers *circuitbreaker.Manager, recorder FetchRecorder) *SQLSource {
	return &SQLSource{db: db, query: listQuery(table), breakers: breakers, recorder: recorder}
}

func listQuery(table string) string {
	if table == "" {
		table = DefaultTable
	}
	ident := pgx.Identifier(strings.Split(table, ".")).Sanitize()
	return `SELECT id::text AS id, name, email,
	COALESCE(phone, '') AS phone,
	COALESCE(total_spend, 0) AS total_spend,
	last_order_date,
	COALESCE(visit_count, 0) AS visit_count,
	created_at
FROM ` + ident + `
ORDER BY created_at DESC NULLS LAST, id`
}

// Name returns the source name
func (s *SQLSource) Name() string {
	return "sql"
}

// Close closes the database.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// List selects every customer.
func (s *SQLSource) List(ctx context.Context) ([]model.Customer, error) {
	ctx, span := tracing.Start(ctx, "customers.list")
	defer span.End()

	customers, err := circuitbreaker.Do(ctx, s.breakers, circuitbreaker.ServiceCustomers, func(ctx context.Context) ([]model.Customer, error) {
		out := []model.Customer{}
		if err := s.db.SelectContext(ctx, &out, s.query); err != nil {
			return nil, err
		}
		return out, nil
	})
	record(s.recorder, s.Name(), err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return customers, nil
}
