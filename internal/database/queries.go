package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const insertSet = `
INSERT INTO chart_sets (title, artist, creator, storage_key, background_url, audio_url, preview_time_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

const insertDifficulty = `
INSERT INTO chart_difficulties (set_id, version, column_count, overall_difficulty, bpm, source_file_name, data, note_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`

const selectSet = `
SELECT id, title, artist, creator, storage_key, background_url, audio_url, preview_time_ms, created_at
FROM chart_sets`

const selectDifficulty = `
SELECT id, set_id, version, column_count, overall_difficulty, bpm, source_file_name, data, note_count, created_at
FROM chart_difficulties`

// SaveAggregate persists a set and its difficulties in one transaction,
// so a crash can never leave a set without its difficulties. Returns the
// set with its generated id filled in.
func (q *Queries) SaveAggregate(ctx context.Context, set *ChartSet, diffs []Difficulty) (*ChartSet, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, insertSet,
		set.Title, set.Artist, set.Creator, set.StorageKey,
		set.BackgroundURL, set.AudioURL, set.PreviewTimeMs, set.CreatedAt,
	).Scan(&set.ID)
	if err != nil {
		return nil, fmt.Errorf("insert chart set: %w", err)
	}

	for i := range diffs {
		diffs[i].SetID = set.ID
		err = tx.QueryRow(ctx, insertDifficulty,
			diffs[i].SetID, diffs[i].Version, diffs[i].ColumnCount,
			diffs[i].OverallDifficulty, diffs[i].Bpm, diffs[i].SourceFileName,
			diffs[i].Data, diffs[i].NoteCount, diffs[i].CreatedAt,
		).Scan(&diffs[i].ID)
		if err != nil {
			return nil, fmt.Errorf("insert difficulty %q: %w", diffs[i].Version, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return set, nil
}

// GetAllSets returns every chart set, newest first.
func (q *Queries) GetAllSets(ctx context.Context) ([]ChartSet, error) {
	rows, err := q.pool.Query(ctx, selectSet+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("query chart sets: %w", err)
	}
	defer rows.Close()
	return scanSets(rows)
}

// GetSetByID returns one set, or nil when it does not exist.
func (q *Queries) GetSetByID(ctx context.Context, id int64) (*ChartSet, error) {
	var set ChartSet
	err := scanSetRow(q.pool.QueryRow(ctx, selectSet+" WHERE id = $1", id), &set)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query chart set %d: %w", id, err)
	}
	return &set, nil
}

// GetDifficultyByID returns one difficulty with its data blob, or nil
// when it does not exist.
func (q *Queries) GetDifficultyByID(ctx context.Context, id int64) (*Difficulty, error) {
	var d Difficulty
	err := q.pool.QueryRow(ctx, selectDifficulty+" WHERE id = $1", id).Scan(
		&d.ID, &d.SetID, &d.Version, &d.ColumnCount, &d.OverallDifficulty,
		&d.Bpm, &d.SourceFileName, &d.Data, &d.NoteCount, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query difficulty %d: %w", id, err)
	}
	return &d, nil
}

// GetSetWithDifficulties returns a set together with its difficulties,
// for deletion and detail views. The set is nil when it does not exist.
func (q *Queries) GetSetWithDifficulties(ctx context.Context, id int64) (*ChartSet, []Difficulty, error) {
	set, err := q.GetSetByID(ctx, id)
	if err != nil || set == nil {
		return set, nil, err
	}

	rows, err := q.pool.Query(ctx, selectDifficulty+" WHERE set_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, nil, fmt.Errorf("query difficulties of set %d: %w", id, err)
	}
	defer rows.Close()

	var diffs []Difficulty
	for rows.Next() {
		var d Difficulty
		if err := rows.Scan(
			&d.ID, &d.SetID, &d.Version, &d.ColumnCount, &d.OverallDifficulty,
			&d.Bpm, &d.SourceFileName, &d.Data, &d.NoteCount, &d.CreatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("scan difficulty: %w", err)
		}
		diffs = append(diffs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate difficulties: %w", err)
	}
	return set, diffs, nil
}

// DeleteSet removes a set; its difficulties go with it via the cascade.
func (q *Queries) DeleteSet(ctx context.Context, id int64) error {
	tag, err := q.pool.Exec(ctx, "DELETE FROM chart_sets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete chart set %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanSets(rows pgx.Rows) ([]ChartSet, error) {
	var sets []ChartSet
	for rows.Next() {
		var set ChartSet
		if err := scanSetRow(rows, &set); err != nil {
			return nil, fmt.Errorf("scan chart set: %w", err)
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chart sets: %w", err)
	}
	return sets, nil
}

func scanSetRow(row pgx.Row, set *ChartSet) error {
	return row.Scan(
		&set.ID, &set.Title, &set.Artist, &set.Creator, &set.StorageKey,
		&set.BackgroundURL, &set.AudioURL, &set.PreviewTimeMs, &set.CreatedAt,
	)
}
