package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/server/service/alarm"
)

type alarmResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Time      string `json:"time"`
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
	CreatedTs int64  `json:"created_ts"`
	Enabled   bool   `json:"enabled"`
}

func convertAlarm(a *alarm.Alarm) alarmResponse {
	return alarmResponse{
		ID:        a.ID,
		Title:     a.Title,
		Time:      a.Time.String(),
		Hour:      a.Time.Hour,
		Minute:    a.Time.Minute,
		CreatedTs: a.CreatedTs,
		Enabled:   a.Enabled,
	}
}

func convertAlarms(list []*alarm.Alarm) []alarmResponse {
	out := make([]alarmResponse, 0, len(list))
	for _, a := range list {
		out = append(out, convertAlarm(a))
	}
	return out
}

type createAlarmRequest struct {
	Title string `json:"title"`
	// Time is "HH:MM" on a 24-hour clock.
	Time string `json:"time"`
}

type updateAlarmRequest struct {
	Enabled *bool `json:"enabled"`
}

type deleteAlarmResponse struct {
	Warning string `json:"warning,omitempty"`
	Deleted bool   `json:"deleted"`
}

// ListAlarms lists every alarm in creation order.
func (s *APIV1Service) ListAlarms(c echo.Context) error {
	return c.JSON(http.StatusOK, convertAlarms(s.Scheduler.ListAlarms()))
}

// CreateAlarm adds a daily alarm.
func (s *APIV1Service) CreateAlarm(c echo.Context) error {
	var req createAlarmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	tod, err := alarm.ParseTimeOfDay(req.Time)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := s.Scheduler.AddAlarm(c.Request().Context(), req.Title, tod)
	s.Metrics.RecordAlarmOp("add", err == nil)
	if err != nil {
		return s.alarmError(err)
	}
	s.Metrics.SetActiveAlarms(len(s.Scheduler.ListAlarms()))
	return c.JSON(http.StatusCreated, convertAlarm(created))
}

// UpdateAlarm toggles the enabled flag.
func (s *APIV1Service) UpdateAlarm(c echo.Context) error {
	var req updateAlarmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Enabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "enabled is required")
	}

	updated, err := s.Scheduler.SetEnabled(c.Request().Context(), c.Param("id"), *req.Enabled)
	s.Metrics.RecordAlarmOp("toggle", err == nil)
	if err != nil {
		return s.alarmError(err)
	}
	return c.JSON(http.StatusOK, convertAlarm(updated))
}

// DeleteAlarm removes an alarm. A trigger cancellation failure is reported
// as a warning since the alarm itself is gone.
func (s *APIV1Service) DeleteAlarm(c echo.Context) error {
	id := c.Param("id")
	err := s.Scheduler.DeleteAlarm(c.Request().Context(), id)
	if err != nil && !errors.Is(err, alarm.ErrTriggerCancellationFailed) {
		s.Metrics.RecordAlarmOp("delete", false)
		return s.alarmError(err)
	}
	s.Metrics.RecordAlarmOp("delete", true)
	s.Metrics.SetActiveAlarms(len(s.Scheduler.ListAlarms()))
	s.Ringer.Forget(id)

	resp := deleteAlarmResponse{Deleted: true}
	if err != nil {
		s.Metrics.RecordTriggerError("cancel")
		resp.Warning = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// GetDueAlarms returns the alarms due at the given time (now by default).
func (s *APIV1Service) GetDueAlarms(c echo.Context) error {
	at := s.now()
	if raw := c.QueryParam("at"); raw != "" {
		parsed, err := s.parseTime(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		at = parsed
	}
	return c.JSON(http.StatusOK, convertAlarms(s.Scheduler.DueAlarms(at)))
}

// StopAlarm silences a ringing alarm.
func (s *APIV1Service) StopAlarm(c echo.Context) error {
	stopped := s.Ringer.Stop(c.Param("id"))
	return c.JSON(http.StatusOK, map[string]bool{"stopped": stopped})
}

// ListRinging lists alarms that were delivered and not yet stopped.
func (s *APIV1Service) ListRinging(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Ringer.Active())
}

func (s *APIV1Service) alarmError(err error) error {
	switch {
	case errors.Is(err, alarm.ErrInvalidTimeOfDay):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, alarm.ErrAlarmNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, alarm.ErrTriggerRegistrationFailed):
		s.Metrics.RecordTriggerError("register")
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "alarm operation failed").SetInternal(err)
	}
}
