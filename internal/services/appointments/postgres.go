package appointments

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/killallgit/scribe-api/internal/models"
)

const selectAppointment = `
	SELECT id, mentor_id, mentee_id, scheduled_at, created_at, updated_at
	FROM appointments
	WHERE id = $1`

// querier is satisfied by *pgxpool.Pool and pgx.Tx
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDirectory reads appointments owned by the scheduling system
type PostgresDirectory struct {
	db   querier
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool against dsn and checks it is reachable
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresDirectory, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse appointments dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create appointments pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach appointments database: %w", err)
	}

	log.Printf("[INFO] Connected to appointments database %s", poolCfg.ConnConfig.Host)
	return &PostgresDirectory{db: pool, pool: pool}, nil
}

func (d *PostgresDirectory) Name() string { return "postgres" }

// Get retrieves an appointment by id
func (d *PostgresDirectory) Get(ctx context.Context, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := d.db.QueryRow(ctx, selectAppointment, id).Scan(
		&appointment.ID,
		&appointment.MentorID,
		&appointment.MenteeID,
		&appointment.ScheduledAt,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to load appointment %s: %w", id, err)
	}
	return &appointment, nil
}

// Save is not supported; the scheduling system owns these rows
func (d *PostgresDirectory) Save(ctx context.Context, appointment *models.Appointment) error {
	return ErrReadOnly
}

// Close releases the pool
func (d *PostgresDirectory) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}
