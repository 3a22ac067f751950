package alarm

import (
	"context"

	"github.com/hrygo/healthlog/plugin/trigger"
	"github.com/hrygo/healthlog/store"
)

// Registry is the trigger registry the scheduler writes to.
// It is the only component that talks to it.
type Registry interface {
	// RegisterDailyTrigger schedules payload every day at hour:minute under id.
	RegisterDailyTrigger(ctx context.Context, id string, hour, minute int, payload trigger.Payload) error

	// CancelTrigger removes the trigger registered under id.
	// An unknown id is reported as trigger.ErrTriggerNotFound.
	CancelTrigger(ctx context.Context, id string) error
}

// AlarmStore persists alarm records. *store.Store satisfies it.
type AlarmStore interface {
	CreateAlarm(ctx context.Context, create *store.Alarm) (*store.Alarm, error)
	ListAlarms(ctx context.Context, find *store.FindAlarm) ([]*store.Alarm, error)
	UpdateAlarm(ctx context.Context, update *store.UpdateAlarm) (*store.Alarm, error)
	DeleteAlarm(ctx context.Context, delete *store.DeleteAlarm) error
}
