// Package history persists completed batches to a SQLite database so past
// runs can be reviewed and space savings totaled.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pixpress/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users clear the history database after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under the log dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RecordBatch persists a completed batch and its per-item outcomes in one
// transaction.
func (s *Store) RecordBatch(ctx context.Context, rec BatchRecord, items []ItemRecord) error {
	rootsJSON, err := json.Marshal(rec.Roots)
	if err != nil {
		return fmt.Errorf("encode roots: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO batches (id, label, roots_json, disposition, output_path,
            total_items, succeeded, skipped, failed, saved_bytes, created_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Label, string(rootsJSON), rec.Disposition, nullableString(rec.OutputPath),
		rec.TotalItems, rec.Succeeded, rec.Skipped, rec.Failed, rec.SavedBytes,
		formatTime(rec.CreatedAt), formatTime(rec.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO batch_items (batch_id, source_path, state, failure,
                original_size, new_size, saved_bytes, output_path, skipped, duration_ms)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, item.SourcePath, item.State, nullableString(item.Failure),
			item.OriginalSize, item.NewSize, item.SavedBytes,
			nullableString(item.OutputPath), boolToInt(item.Skipped), item.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("insert batch item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}
	return nil
}

// ListBatches returns the most recent batches, newest first. A non-positive
// limit returns everything.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	query := `
        SELECT id, label, roots_json, disposition, output_path,
            total_items, succeeded, skipped, failed, saved_bytes, created_at, finished_at
        FROM batches ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var records []BatchRecord
	for rows.Next() {
		rec, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ItemsForBatch returns every item outcome recorded for a batch.
func (s *Store) ItemsForBatch(ctx context.Context, batchID string) ([]ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT batch_id, source_path, state, failure,
            original_size, new_size, saved_bytes, output_path, skipped, duration_ms
        FROM batch_items WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch items: %w", err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var (
			item       ItemRecord
			failure    sql.NullString
			outputPath sql.NullString
			skipped    int
			durationMS int64
		)
		if err := rows.Scan(&item.BatchID, &item.SourcePath, &item.State, &failure,
			&item.OriginalSize, &item.NewSize, &item.SavedBytes, &outputPath,
			&skipped, &durationMS); err != nil {
			return nil, fmt.Errorf("scan batch item: %w", err)
		}
		item.Failure = failure.String
		item.OutputPath = outputPath.String
		item.Skipped = skipped != 0
		item.Duration = time.Duration(durationMS) * time.Millisecond
		items = append(items, item)
	}
	return items, rows.Err()
}

// Prune deletes batches finished before the cutoff and reports how many were
// removed. Items go with their batch via the cascade.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := s.db.ExecContext(ctx, "DELETE FROM batches WHERE finished_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune batches: %w", err)
	}
	return res.RowsAffected()
}

// TotalStats aggregates the whole history table.
func (s *Store) TotalStats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
        SELECT COUNT(1), COALESCE(SUM(total_items), 0), COALESCE(SUM(saved_bytes), 0)
        FROM batches`).Scan(&stats.Batches, &stats.Items, &stats.TotalSavedBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}

func scanBatch(scanner interface{ Scan(dest ...any) error }) (BatchRecord, error) {
	var (
		rec         BatchRecord
		rootsJSON   string
		outputPath  sql.NullString
		createdRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(&rec.ID, &rec.Label, &rootsJSON, &rec.Disposition, &outputPath,
		&rec.TotalItems, &rec.Succeeded, &rec.Skipped, &rec.Failed, &rec.SavedBytes,
		&createdRaw, &finishedRaw); err != nil {
		return BatchRecord{}, fmt.Errorf("scan batch: %w", err)
	}
	rec.OutputPath = outputPath.String
	if err := json.Unmarshal([]byte(rootsJSON), &rec.Roots); err != nil {
		return BatchRecord{}, fmt.Errorf("decode roots: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if finished, err := parseTimeString(finishedRaw); err == nil {
		rec.FinishedAt = finished
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
