package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/store"
)

func (d *DB) CreateAlarm(ctx context.Context, create *store.Alarm) (*store.Alarm, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	create.UpdatedTs = create.CreatedTs
	stmt := "INSERT INTO `alarm` (`id`, `title`, `hour`, `minute`, `enabled`, `created_ts`, `updated_ts`) VALUES (?, ?, ?, ?, ?, ?, ?)"
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.Title,
		create.Hour,
		create.Minute,
		boolToInt(create.Enabled),
		create.CreatedTs,
		create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to insert alarm")
	}
	return create, nil
}

func (d *DB) ListAlarms(ctx context.Context, find *store.FindAlarm) ([]*store.Alarm, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "`id` = ?"), append(args, *find.ID)
	}
	if find.Enabled != nil {
		where, args = append(where, "`enabled` = ?"), append(args, boolToInt(*find.Enabled))
	}

	query := "SELECT `id`, `title`, `hour`, `minute`, `enabled`, `created_ts`, `updated_ts` FROM `alarm` WHERE " +
		strings.Join(where, " AND ") + " ORDER BY `created_ts` ASC, `id` ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query alarms")
	}
	defer rows.Close()

	list := []*store.Alarm{}
	for rows.Next() {
		alarm := &store.Alarm{}
		var enabled int
		if err := rows.Scan(
			&alarm.ID,
			&alarm.Title,
			&alarm.Hour,
			&alarm.Minute,
			&enabled,
			&alarm.CreatedTs,
			&alarm.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan alarm")
		}
		alarm.Enabled = enabled != 0
		list = append(list, alarm)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate alarms")
	}
	return list, nil
}

func (d *DB) UpdateAlarm(ctx context.Context, update *store.UpdateAlarm) (*store.Alarm, error) {
	set, args := []string{}, []any{}
	if update.Title != nil {
		set, args = append(set, "`title` = ?"), append(args, *update.Title)
	}
	if update.Enabled != nil {
		set, args = append(set, "`enabled` = ?"), append(args, boolToInt(*update.Enabled))
	}
	updatedTs := time.Now().Unix()
	if update.UpdatedTs != nil {
		updatedTs = *update.UpdatedTs
	}
	set, args = append(set, "`updated_ts` = ?"), append(args, updatedTs)
	args = append(args, update.ID)

	stmt := "UPDATE `alarm` SET " + strings.Join(set, ", ") + " WHERE `id` = ?"
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update alarm")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	list, err := d.ListAlarms(ctx, &store.FindAlarm{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return list[0], nil
}

func (d *DB) DeleteAlarm(ctx context.Context, delete *store.DeleteAlarm) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM `alarm` WHERE `id` = ?", delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete alarm")
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
