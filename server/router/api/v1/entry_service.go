package v1

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/internal/daykey"
	"github.com/hrygo/healthlog/store"
)

type createEntryRequest struct {
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	ExerciseType    string  `json:"exercise_type"`
	Timestamp       string  `json:"timestamp"`
	Value           float64 `json:"value"`
	DurationMinutes float64 `json:"duration_minutes"`
}

type entryResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	ExerciseType    string    `json:"exercise_type,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Day             string    `json:"day"`
	Value           float64   `json:"value"`
	DurationMinutes float64   `json:"duration_minutes,omitempty"`
}

func (s *APIV1Service) convertEntry(e *store.LogEntry) entryResponse {
	return entryResponse{
		ID:              e.ID,
		Name:            e.Name,
		Category:        string(e.Category),
		ExerciseType:    e.ExerciseType,
		Timestamp:       e.Timestamp,
		Day:             daykey.Key(e.Timestamp, s.location()),
		Value:           e.Value,
		DurationMinutes: e.DurationMinutes,
	}
}

// CreateEntry logs a diet or exercise entry.
func (s *APIV1Service) CreateEntry(c echo.Context) error {
	var req createEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	category, err := store.ParseCategory(req.Category)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Value < 0 || math.IsNaN(req.Value) || math.IsInf(req.Value, 0) {
		return echo.NewHTTPError(http.StatusBadRequest, "value must be a non-negative number")
	}
	if req.DurationMinutes < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "duration_minutes must not be negative")
	}

	ts := s.now()
	if req.Timestamp != "" {
		ts, err = s.parseTime(req.Timestamp)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	entry := &store.LogEntry{
		ID:              shortuuid.New(),
		Name:            strings.TrimSpace(req.Name),
		Category:        category,
		Value:           req.Value,
		DurationMinutes: req.DurationMinutes,
		ExerciseType:    strings.TrimSpace(req.ExerciseType),
		Timestamp:       ts.UTC(),
	}
	if category == store.CategoryDiet {
		entry.DurationMinutes = 0
		entry.ExerciseType = ""
	}

	created, err := s.Store.CreateLogEntry(c.Request().Context(), entry)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create entry").SetInternal(err)
	}
	return c.JSON(http.StatusCreated, s.convertEntry(created))
}

// ListEntries lists entries, optionally filtered by category and time range.
func (s *APIV1Service) ListEntries(c echo.Context) error {
	find := &store.FindLogEntry{}
	if raw := c.QueryParam("category"); raw != "" {
		category, err := store.ParseCategory(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		find.Category = &category
	}
	if raw := c.QueryParam("since"); raw != "" {
		since, err := s.parseTime(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		find.Since = &since
	}
	if raw := c.QueryParam("until"); raw != "" {
		until, err := s.parseTime(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		find.Until = &until
	}

	list, err := s.Store.ListLogEntries(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list entries").SetInternal(err)
	}
	out := make([]entryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, s.convertEntry(e))
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteEntry removes an entry.
func (s *APIV1Service) DeleteEntry(c echo.Context) error {
	err := s.Store.DeleteLogEntry(c.Request().Context(), &store.DeleteLogEntry{ID: c.Param("id")})
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete entry").SetInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// parseTime accepts RFC 3339 or a day key, which means local midnight.
func (s *APIV1Service) parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := daykey.Parse(raw, s.location())
	if err != nil {
		return time.Time{}, errors.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", raw)
	}
	return t, nil
}
