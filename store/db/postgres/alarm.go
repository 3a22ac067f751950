package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/healthlog/store"
)

func (d *DB) CreateAlarm(ctx context.Context, create *store.Alarm) (*store.Alarm, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	create.UpdatedTs = create.CreatedTs
	fields := []string{"id", "title", "hour", "minute", "enabled", "created_ts", "updated_ts"}
	args := []any{create.ID, create.Title, create.Hour, create.Minute, create.Enabled, create.CreatedTs, create.UpdatedTs}
	stmt := `INSERT INTO alarm (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to create alarm: %w", err)
	}
	return create, nil
}

func (d *DB) ListAlarms(ctx context.Context, find *store.FindAlarm) ([]*store.Alarm, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Enabled != nil {
		where, args = append(where, "enabled = "+placeholder(len(args)+1)), append(args, *find.Enabled)
	}

	query := `
		SELECT id, title, hour, minute, enabled, created_ts, updated_ts
		FROM alarm
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alarm: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Alarm, 0)
	for rows.Next() {
		a := &store.Alarm{}
		if err := rows.Scan(&a.ID, &a.Title, &a.Hour, &a.Minute, &a.Enabled, &a.CreatedTs, &a.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alarm: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateAlarm(ctx context.Context, update *store.UpdateAlarm) (*store.Alarm, error) {
	set, args := []string{}, []any{}
	if update.Title != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
	}
	if update.Enabled != nil {
		set, args = append(set, "enabled = "+placeholder(len(args)+1)), append(args, *update.Enabled)
	}
	updatedTs := time.Now().Unix()
	if update.UpdatedTs != nil {
		updatedTs = *update.UpdatedTs
	}
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, updatedTs)
	args = append(args, update.ID)

	stmt := `UPDATE alarm SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, title, hour, minute, enabled, created_ts, updated_ts`
	a := &store.Alarm{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&a.ID, &a.Title, &a.Hour, &a.Minute, &a.Enabled, &a.CreatedTs, &a.UpdatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update alarm: %w", err)
	}
	return a, nil
}

func (d *DB) DeleteAlarm(ctx context.Context, delete *store.DeleteAlarm) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM alarm WHERE id = $1`, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
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
