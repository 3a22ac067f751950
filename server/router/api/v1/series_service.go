package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/healthlog/internal/daykey"
	"github.com/hrygo/healthlog/server/service/series"
	"github.com/hrygo/healthlog/store"
)

type seriesResponse struct {
	Category string           `json:"category"`
	Period   string           `json:"period"`
	Metric   string           `json:"metric"`
	First    string           `json:"first"`
	Last     string           `json:"last"`
	Points   series.DaySeries `json:"points"`
	Days     int              `json:"days"`
	Max      float64          `json:"max"`
	Sum      float64          `json:"sum"`
}

// GetSeries returns the gap-filled per-day series for a category and period.
func (s *APIV1Service) GetSeries(c echo.Context) (err error) {
	start := time.Now()
	// Labels stay bounded: unparsable input is recorded as "invalid".
	categoryLabel, periodLabel := "invalid", "invalid"
	defer func() {
		s.Metrics.RecordSeriesRequest(categoryLabel, periodLabel, time.Since(start), err == nil)
	}()

	category, err := store.ParseCategory(c.QueryParam("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	categoryLabel = string(category)
	period, err := series.ParsePeriod(c.QueryParam("period"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	periodLabel = string(period)
	metric, err := series.ParseMetric(c.QueryParam("metric"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	now := s.now()
	window, err := s.Aggregator.Window(period, now)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entries, err := s.Store.FetchEntries(c.Request().Context(), category, window.Since)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch entries").SetInternal(err)
	}
	points, err := s.Aggregator.ComputeMetricSeries(entries, period, metric, now)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, seriesResponse{
		Category: string(category),
		Period:   string(period),
		Metric:   string(metric),
		First:    window.First.Format(daykey.Layout),
		Last:     window.Last.Format(daykey.Layout),
		Points:   points,
		Days:     window.Days,
		Max:      points.Max(),
		Sum:      points.Sum(),
	})
}

type summaryResponse struct {
	Date     string  `json:"date"`
	Diet     float64 `json:"diet"`
	Exercise float64 `json:"exercise"`
	// Net is calories eaten minus calories burned.
	Net float64 `json:"net"`
}

// GetSummary returns the per-category totals of one local day (today by default).
func (s *APIV1Service) GetSummary(c echo.Context) error {
	loc := s.location()
	day := daykey.StartOfDay(s.now(), loc)
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := daykey.Parse(raw, loc)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		day = parsed
	}
	next := daykey.AddDays(day, 1)

	ctx := c.Request().Context()
	var diet, exercise []*store.LogEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		category := store.CategoryDiet
		diet, err = s.Store.ListLogEntries(gctx, &store.FindLogEntry{Category: &category, Since: &day, Until: &next})
		return err
	})
	g.Go(func() error {
		var err error
		category := store.CategoryExercise
		exercise, err = s.Store.ListLogEntries(gctx, &store.FindLogEntry{Category: &category, Since: &day, Until: &next})
		return err
	})
	if err := g.Wait(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch entries").SetInternal(err)
	}

	dietTotal := s.Aggregator.DayTotal(diet, day)
	exerciseTotal := s.Aggregator.DayTotal(exercise, day)
	return c.JSON(http.StatusOK, summaryResponse{
		Date:     day.Format(daykey.Layout),
		Diet:     dietTotal,
		Exercise: exerciseTotal,
		Net:      dietTotal - exerciseTotal,
	})
}
