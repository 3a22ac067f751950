package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/healthlog/store"
)

func (d *DB) CreateLogEntry(ctx context.Context, create *store.LogEntry) (*store.LogEntry, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	fields := []string{"id", "name", "category", "value", "duration_minutes", "exercise_type", "logged_ts", "created_ts"}
	args := []any{create.ID, create.Name, string(create.Category), create.Value, create.DurationMinutes, create.ExerciseType, create.Timestamp.Unix(), create.CreatedTs}
	stmt := `INSERT INTO log_entry (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to create log_entry: %w", err)
	}
	create.Timestamp = time.Unix(create.Timestamp.Unix(), 0).UTC()
	return create, nil
}

func (d *DB) ListLogEntries(ctx context.Context, find *store.FindLogEntry) ([]*store.LogEntry, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Category != nil {
		where, args = append(where, "category = "+placeholder(len(args)+1)), append(args, string(*find.Category))
	}
	if find.Since != nil {
		where, args = append(where, "logged_ts >= "+placeholder(len(args)+1)), append(args, find.Since.Unix())
	}
	if find.Until != nil {
		where, args = append(where, "logged_ts < "+placeholder(len(args)+1)), append(args, find.Until.Unix())
	}

	query := `
		SELECT id, name, category, value, duration_minutes, exercise_type, logged_ts, created_ts
		FROM log_entry
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY logged_ts ASC, created_ts ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list log_entry: %w", err)
	}
	defer rows.Close()

	list := make([]*store.LogEntry, 0)
	for rows.Next() {
		e := &store.LogEntry{}
		var category string
		var loggedTs int64
		if err := rows.Scan(&e.ID, &e.Name, &category, &e.Value, &e.DurationMinutes, &e.ExerciseType, &loggedTs, &e.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan log_entry: %w", err)
		}
		e.Category = store.Category(category)
		e.Timestamp = time.Unix(loggedTs, 0).UTC()
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate log_entry: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteLogEntry(ctx context.Context, delete *store.DeleteLogEntry) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM log_entry WHERE id = $1`, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete log_entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
