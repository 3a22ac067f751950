package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/hrygo/healthlog/internal/profile"
	"github.com/hrygo/healthlog/plugin/notify"
	"github.com/hrygo/healthlog/plugin/nutrition"
	"github.com/hrygo/healthlog/server/metrics"
	"github.com/hrygo/healthlog/server/service/alarm"
	"github.com/hrygo/healthlog/server/service/series"
	"github.com/hrygo/healthlog/store"
)

// NutritionLookup resolves calories for a food name.
type NutritionLookup interface {
	Lookup(ctx context.Context, food string) (nutrition.Result, error)
}

type APIV1Service struct {
	// Domain Services
	Aggregator *series.Aggregator
	Scheduler  *alarm.Scheduler
	Ringer     *notify.Ringer
	// Nutrition is nil when no calorie source is configured.
	Nutrition NutritionLookup

	// Shared Infra
	Profile *profile.Profile
	Store   *store.Store
	Metrics *metrics.PrometheusExporter
	now     func() time.Time
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, aggregator *series.Aggregator, scheduler *alarm.Scheduler, ringer *notify.Ringer, lookup NutritionLookup, exporter *metrics.PrometheusExporter) *APIV1Service {
	if ringer == nil {
		ringer = notify.NewRinger()
	}
	if exporter == nil {
		exporter = metrics.NewPrometheusExporter(metrics.DefaultConfig())
	}
	return &APIV1Service{
		Aggregator: aggregator,
		Scheduler:  scheduler,
		Ringer:     ringer,
		Nutrition:  lookup,
		Profile:    profile,
		Store:      store,
		Metrics:    exporter,
		now:        time.Now,
	}
}

// RegisterRoutes registers the REST handlers with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	corsHandler := middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"*"},
	})
	g := echoServer.Group("/api/v1", corsHandler)

	g.POST("/entries", s.CreateEntry)
	g.GET("/entries", s.ListEntries)
	g.DELETE("/entries/:id", s.DeleteEntry)

	g.GET("/series", s.GetSeries)
	g.GET("/summary", s.GetSummary)

	g.GET("/alarms", s.ListAlarms)
	g.POST("/alarms", s.CreateAlarm)
	g.GET("/alarms/due", s.GetDueAlarms)
	g.GET("/alarms/ringing", s.ListRinging)
	g.PATCH("/alarms/:id", s.UpdateAlarm)
	g.DELETE("/alarms/:id", s.DeleteAlarm)
	g.POST("/alarms/:id/stop", s.StopAlarm)

	// Upstream calorie APIs are metered; keep clients well below their quota.
	nutritionLimiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(2)))
	g.GET("/nutrition", s.LookupNutrition, nutritionLimiter)
}

func (s *APIV1Service) location() *time.Location {
	return s.Aggregator.Location()
}
