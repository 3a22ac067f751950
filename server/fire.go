package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/plugin/trigger"
	"github.com/hrygo/healthlog/server/service/alarm"
)

// deliveryTimeout bounds one fire's delivery to all channels.
const deliveryTimeout = 30 * time.Second

// handleFire delivers a fired trigger if its alarm is still enabled and due.
// A trigger whose alarm was disabled or deleted in the meantime is skipped.
func (s *Server) handleFire(ctx context.Context, fire trigger.Fire) {
	due := false
	for _, a := range s.Scheduler.DueAlarms(fire.At) {
		if a.ID == fire.ID {
			due = true
			break
		}
	}
	if !due {
		slog.Debug("AlarmFire: skipped, alarm not due", "id", fire.ID)
		s.Metrics.RecordAlarmFire("skipped")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	err := s.Dispatcher.Deliver(ctx, fire.Payload, fire.At)

	// A delete that lands while delivering has already forgotten the ringing
	// state, which Deliver may have set again afterwards.
	if _, gerr := s.Scheduler.GetAlarm(fire.ID); errors.Is(gerr, alarm.ErrAlarmNotFound) {
		s.Dispatcher.Ringer().Forget(fire.ID)
	}

	if err != nil {
		slog.Warn("AlarmFire: delivery failed", "id", fire.ID, "error", err)
		s.Metrics.RecordAlarmFire("failed")
		return
	}
	s.Metrics.RecordAlarmFire("delivered")
}
