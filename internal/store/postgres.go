package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps frames in a shared table keyed by (run id, frame index).
// Workers write concurrently, so it holds a pool rather than a single connection.
type Postgres struct {
	pool  *pgxpool.Pool
	runID string

	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewPostgres connects and ensures the schema is initialized.
func NewPostgres(ctx context.Context, connString string, runID uuid.UUID) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to frame store: %w", err)
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize frame store schema: %w", err)
	}

	if runID == uuid.Nil {
		runID = uuid.New()
	}
	return &Postgres{pool: pool, runID: runID.String()}, nil
}

// initSchema creates the frames table if it doesn't exist.
func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ascivid_frames (
			run_id UUID NOT NULL,
			frame_index INT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (run_id, frame_index)
		);
	`)
	return err
}

// RunID is the key prefix of this run's rows.
func (p *Postgres) RunID() string { return p.runID }

func (p *Postgres) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func (p *Postgres) Put(ctx context.Context, index int, frame string) error {
	if p.isClosed() {
		return ErrClosed
	}
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO ascivid_frames (run_id, frame_index, body)
		VALUES ($1::uuid, $2, $3)
		ON CONFLICT (run_id, frame_index) DO NOTHING
	`, p.runID, index, frame)
	if err != nil {
		return fmt.Errorf("failed to store frame %d: %w", index, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, index int) (string, error) {
	if p.isClosed() {
		return "", ErrClosed
	}
	var body string
	err := p.pool.QueryRow(ctx,
		"SELECT body FROM ascivid_frames WHERE run_id = $1::uuid AND frame_index = $2",
		p.runID, index).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read frame %d: %w", index, err)
	}
	return body, nil
}

func (p *Postgres) Wait(ctx context.Context, index int) (string, error) {
	return pollWait(ctx, index, defaultPollInterval, nil, p.Get)
}

func (p *Postgres) Len(ctx context.Context) (int, error) {
	if p.isClosed() {
		return 0, ErrClosed
	}
	var n int
	err := p.pool.QueryRow(ctx, "SELECT count(*) FROM ascivid_frames WHERE run_id = $1::uuid", p.runID).Scan(&n)
	return n, err
}

// Close deletes this run's rows and closes the pool.
func (p *Postgres) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		// Use Background here because the run context is usually cancelled already (Ctrl+C)
		// and the rows still have to go.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err = p.pool.Exec(ctx, "DELETE FROM ascivid_frames WHERE run_id = $1::uuid", p.runID)
		p.pool.Close()
	})
	return err
}

// ResetPostgres drops the frames table to clear state left by crashed runs.
func ResetPostgres(ctx context.Context, connString string) error {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "DROP TABLE IF EXISTS ascivid_frames CASCADE;")
	return err
}
