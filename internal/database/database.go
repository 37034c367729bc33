// Package database is the persistence gateway for imported chart sets.
// It speaks PostgreSQL through pgx and exposes the aggregate read/write
// contract consumed by the core service.
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// ChartSet is one imported set. It exclusively owns its difficulties;
// deleting the set cascades to them.
type ChartSet struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Artist        string    `json:"artist"`
	Creator       string    `json:"creator"`
	StorageKey    string    `json:"storageKey"`
	BackgroundURL *string   `json:"backgroundUrl,omitempty"`
	AudioURL      *string   `json:"audioUrl,omitempty"`
	PreviewTimeMs *int      `json:"previewTimeMs,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Difficulty is one chart variant of a set. Data holds the serialized
// StoredChartData blob; its schema is owned by the core, not by upstream
// parsing.
type Difficulty struct {
	ID                int64     `json:"id"`
	SetID             int64     `json:"setId"`
	Version           string    `json:"version"`
	ColumnCount       int       `json:"columnCount"`
	OverallDifficulty float64   `json:"overallDifficulty"`
	Bpm               *float64  `json:"bpm,omitempty"`
	SourceFileName    string    `json:"sourceFileName"`
	Data              []byte    `json:"-"`
	NoteCount         int       `json:"noteCount"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Queries provides the aggregate read/write operations.
type Queries struct {
	pool *pgxpool.Pool
}

// New creates a Queries instance over a connection pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS chart_sets (
	id              BIGSERIAL PRIMARY KEY,
	title           TEXT NOT NULL,
	artist          TEXT NOT NULL,
	creator         TEXT NOT NULL,
	storage_key     TEXT NOT NULL,
	background_url  TEXT,
	audio_url       TEXT,
	preview_time_ms INTEGER,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chart_difficulties (
	id                 BIGSERIAL PRIMARY KEY,
	set_id             BIGINT NOT NULL REFERENCES chart_sets(id) ON DELETE CASCADE,
	version            TEXT NOT NULL,
	column_count       INTEGER NOT NULL,
	overall_difficulty DOUBLE PRECISION NOT NULL,
	bpm                DOUBLE PRECISION,
	source_file_name   TEXT NOT NULL,
	data               JSONB NOT NULL,
	note_count         INTEGER NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chart_difficulties_set_id
	ON chart_difficulties(set_id);
`

// Migrate creates the chart tables if they do not exist.
func (q *Queries) Migrate(ctx context.Context) error {
	_, err := q.pool.Exec(ctx, schema)
	return err
}
