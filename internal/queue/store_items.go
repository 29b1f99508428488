package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const itemColumns = `id, run_id, mode, container_schema, channels_json, status,
	nominal_at, canonical_at, staged_dir, output_path, file_size,
	error_message, progress_stage, progress_message, created_at, updated_at`

// NewRun inserts a pending acquisition run and returns the stored item.
func (s *Store) NewRun(ctx context.Context, mode, containerSchema string, channels []int, nominal time.Time) (*Item, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	channelsJSON, err := json.Marshal(channels)
	if err != nil {
		return nil, fmt.Errorf("marshal channels: %w", err)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            run_id, mode, container_schema, channels_json, status,
            nominal_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		mode,
		containerSchema,
		string(channelsJSON),
		StatusPending,
		nominal.UTC().Format(time.RFC3339Nano),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. A missing item returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetByRunID fetches a queue item by its run UUID. A missing item returns (nil, nil).
func (s *Store) GetByRunID(ctx context.Context, runID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE run_id = ?`, runID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by run: %w", err)
	}
	return item, nil
}

// NextForStatuses claims the oldest item in any of the given statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = string(status)
	}
	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE status IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY created_at ASC, id ASC LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next item: %w", err)
	}
	return item, nil
}

// Update persists the mutable fields of an item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("nil item")
	}
	if !ValidStatus(item.Status) {
		return fmt.Errorf("invalid status %q", item.Status)
	}

	channelsJSON, err := json.Marshal(item.Channels)
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}

	item.UpdatedAt = time.Now().UTC()
	_, err = s.execWithRetry(
		ctx,
		`UPDATE queue_items SET
            status = ?, canonical_at = ?, staged_dir = ?, output_path = ?,
            file_size = ?, error_message = ?, progress_stage = ?,
            progress_message = ?, channels_json = ?, updated_at = ?
        WHERE id = ?`,
		string(item.Status),
		nullableTime(item.CanonicalAt),
		nullableString(item.StagedDir),
		nullableString(item.OutputPath),
		item.FileSize,
		nullableString(item.ErrorMessage),
		nullableString(item.ProgressStage),
		nullableString(item.ProgressMessage),
		string(channelsJSON),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item %d: %w", item.ID, err)
	}
	return nil
}

// List returns all items ordered oldest first.
func (s *Store) List(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM queue_items ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// HasActiveRun reports whether any item is still progressing.
func (s *Store) HasActiveRun(ctx context.Context) (bool, error) {
	active := ActiveStatuses()
	placeholders := make([]string, len(active))
	args := make([]any, len(active))
	for i, status := range active {
		placeholders[i] = "?"
		args[i] = string(status)
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM queue_items WHERE status IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count active runs: %w", err)
	}
	return count > 0, nil
}

// ClearCompleted removes completed items and returns the number removed.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, string(StatusCompleted))
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearAll removes every item and returns the number removed.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear all: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed resets failed items to pending and returns the number reset.
func (s *Store) RetryFailed(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET status = ?, error_message = NULL,
            progress_stage = NULL, progress_message = NULL, updated_at = ?
        WHERE status = ?`,
		string(StatusPending),
		now,
		string(StatusFailed),
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed: %w", err)
	}
	return res.RowsAffected()
}

// Health returns aggregated queue counts.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending += count
		case StatusAcquiring, StatusAcquired, StatusAssembling:
			summary.Processing += count
		case StatusFailed:
			summary.Failed += count
		case StatusCompleted:
			summary.Completed += count
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item            Item
		channelsJSON    string
		status          string
		nominalAt       string
		canonicalAt     sql.NullString
		stagedDir       sql.NullString
		outputPath      sql.NullString
		errorMessage    sql.NullString
		progressStage   sql.NullString
		progressMessage sql.NullString
		createdAt       string
		updatedAt       string
	)

	err := row.Scan(
		&item.ID, &item.RunID, &item.Mode, &item.ContainerSchema, &channelsJSON, &status,
		&nominalAt, &canonicalAt, &stagedDir, &outputPath, &item.FileSize,
		&errorMessage, &progressStage, &progressMessage, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(channelsJSON), &item.Channels); err != nil {
		return nil, fmt.Errorf("unmarshal channels: %w", err)
	}

	item.Status = Status(status)
	if item.NominalAt, err = parseStoredTime(nominalAt); err != nil {
		return nil, fmt.Errorf("parse nominal_at: %w", err)
	}
	if canonicalAt.Valid && canonicalAt.String != "" {
		if item.CanonicalAt, err = parseStoredTime(canonicalAt.String); err != nil {
			return nil, fmt.Errorf("parse canonical_at: %w", err)
		}
	}
	item.StagedDir = stagedDir.String
	item.OutputPath = outputPath.String
	item.ErrorMessage = errorMessage.String
	item.ProgressStage = progressStage.String
	item.ProgressMessage = progressMessage.String
	if item.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = parseStoredTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &item, nil
}

func parseStoredTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
