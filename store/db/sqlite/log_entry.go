package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/store"
)

func (d *DB) CreateLogEntry(ctx context.Context, create *store.LogEntry) (*store.LogEntry, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	stmt := "INSERT INTO `log_entry` (`id`, `name`, `category`, `value`, `duration_minutes`, `exercise_type`, `logged_ts`, `created_ts`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.Name,
		string(create.Category),
		create.Value,
		create.DurationMinutes,
		create.ExerciseType,
		create.Timestamp.Unix(),
		create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to insert log entry")
	}
	create.Timestamp = time.Unix(create.Timestamp.Unix(), 0).UTC()
	return create, nil
}

func (d *DB) ListLogEntries(ctx context.Context, find *store.FindLogEntry) ([]*store.LogEntry, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "`id` = ?"), append(args, *find.ID)
	}
	if find.Category != nil {
		where, args = append(where, "`category` = ?"), append(args, string(*find.Category))
	}
	if find.Since != nil {
		where, args = append(where, "`logged_ts` >= ?"), append(args, find.Since.Unix())
	}
	if find.Until != nil {
		where, args = append(where, "`logged_ts` < ?"), append(args, find.Until.Unix())
	}

	query := "SELECT `id`, `name`, `category`, `value`, `duration_minutes`, `exercise_type`, `logged_ts`, `created_ts` FROM `log_entry` WHERE " +
		strings.Join(where, " AND ") + " ORDER BY `logged_ts` ASC, `created_ts` ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query log entries")
	}
	defer rows.Close()

	list := []*store.LogEntry{}
	for rows.Next() {
		entry := &store.LogEntry{}
		var category string
		var loggedTs int64
		if err := rows.Scan(
			&entry.ID,
			&entry.Name,
			&category,
			&entry.Value,
			&entry.DurationMinutes,
			&entry.ExerciseType,
			&loggedTs,
			&entry.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan log entry")
		}
		entry.Category = store.Category(category)
		entry.Timestamp = time.Unix(loggedTs, 0).UTC()
		list = append(list, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate log entries")
	}
	return list, nil
}

func (d *DB) DeleteLogEntry(ctx context.Context, delete *store.DeleteLogEntry) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM `log_entry` WHERE `id` = ?", delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete log entry")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
