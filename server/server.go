package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/internal/profile"
	"github.com/hrygo/healthlog/plugin/notify"
	"github.com/hrygo/healthlog/plugin/notify/email"
	"github.com/hrygo/healthlog/plugin/notify/telegram"
	"github.com/hrygo/healthlog/plugin/notify/webhook"
	"github.com/hrygo/healthlog/plugin/nutrition"
	"github.com/hrygo/healthlog/plugin/trigger"
	"github.com/hrygo/healthlog/server/metrics"
	apiv1 "github.com/hrygo/healthlog/server/router/api/v1"
	"github.com/hrygo/healthlog/server/service/alarm"
	"github.com/hrygo/healthlog/server/service/series"
	"github.com/hrygo/healthlog/store"
)

type Server struct {
	Profile    *profile.Profile
	Store      *store.Store
	Registry   *trigger.Registry
	Scheduler  *alarm.Scheduler
	Dispatcher *notify.Dispatcher
	Metrics    *metrics.PrometheusExporter

	echoServer        *echo.Echo
	runnerCancelFuncs []context.CancelFunc
	runners           sync.WaitGroup
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Store:   store,
		Profile: profile,
		Metrics: metrics.NewPrometheusExporter(metrics.DefaultConfig()),
	}
	loc := profile.Location()

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	s.echoServer = echoServer

	// The fire handler needs the scheduler, which needs the registry.
	s.Registry = trigger.NewRegistry(nil,
		trigger.WithCapacity(profile.TriggerCapacity),
		trigger.WithLocation(loc),
	)
	s.Scheduler = alarm.NewScheduler(s.Registry,
		alarm.WithStore(store),
		alarm.WithLocation(loc),
	)
	s.Registry.SetFireFunc(s.handleFire)

	if err := s.Scheduler.Load(ctx); err != nil {
		// Alarms that could not be re-registered are left out; the rest still ring.
		slog.Warn("failed to restore some alarms", "error", err)
	}
	s.Metrics.SetActiveAlarms(len(s.Scheduler.ListAlarms()))

	s.Dispatcher = notify.NewDispatcher(notify.NewRinger(), slog.Default())
	s.Dispatcher.Register(notify.NewLogChannel(slog.Default()))
	if profile.TelegramBotToken != "" && profile.TelegramChatID != "" {
		channel, err := telegram.NewChannel(&telegram.Config{
			BotToken: profile.TelegramBotToken,
			ChatID:   profile.TelegramChatID,
		}, nil)
		if err != nil {
			slog.Warn("telegram channel disabled", "error", err)
		} else {
			s.Dispatcher.Register(channel)
		}
	}
	if profile.WebhookURL != "" {
		s.Dispatcher.Register(webhook.NewChannel(profile.WebhookURL))
	}
	if profile.SMTPHost != "" {
		channel, err := email.NewChannel(&email.Config{
			SMTPHost:     profile.SMTPHost,
			SMTPPort:     profile.SMTPPort,
			SMTPUsername: profile.SMTPUsername,
			SMTPPassword: profile.SMTPPassword,
			FromEmail:    profile.SMTPFrom,
			FromName:     alarm.NotificationTitle,
			ToEmail:      profile.SMTPTo,
			UseSSL:       profile.SMTPUseSSL,
		})
		if err != nil {
			slog.Warn("email channel disabled", "error", err)
		} else {
			s.Dispatcher.Register(channel)
		}
	}

	var lookup apiv1.NutritionLookup
	if pipeline := newNutritionPipeline(profile); pipeline != nil {
		lookup = pipeline
	}

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	apiV1Service := apiv1.NewAPIV1Service(profile, store, series.NewAggregator(loc), s.Scheduler, s.Dispatcher.Ringer(), lookup, s.Metrics)
	apiV1Service.RegisterRoutes(echoServer)

	return s, nil
}

// newNutritionPipeline returns nil when no calorie source is configured.
func newNutritionPipeline(prof *profile.Profile) *nutrition.Pipeline {
	if !prof.IsNutritionEnabled() {
		return nil
	}
	source := nutrition.NewEdamamClient(nutrition.EdamamConfig{
		AppID:             prof.EdamamAppID,
		AppKey:            prof.EdamamAppKey,
		BaseURL:           prof.EdamamBaseURL,
		RequestsPerMinute: prof.EdamamRequestsPerMinute,
	})

	var translator nutrition.Translator
	switch prof.TranslateProvider {
	case profile.TranslateGoogle:
		translator = nutrition.NewGoogleTranslator(prof.GoogleAPIKey, "", nil)
	case profile.TranslateLLM:
		translator = nutrition.NewLLMTranslator(nutrition.LLMTranslatorConfig{
			APIKey:  prof.LLMAPIKey,
			BaseURL: prof.LLMBaseURL,
			Model:   prof.LLMModel,
			Timeout: time.Duration(prof.LLMTimeout) * time.Second,
		})
	}
	return nutrition.NewPipeline(source, translator, nutrition.WithTargetLanguage(prof.TranslateTarget))
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	s.StartBackgroundRunners(ctx)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	// Stop the trigger registry before closing the channels it delivers to.
	for _, cancelFunc := range s.runnerCancelFuncs {
		if cancelFunc != nil {
			cancelFunc()
		}
	}
	if err := s.waitForRunners(ctx); err != nil {
		slog.Error("background runners did not stop in time", slog.String("error", err.Error()))
	}

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if err := s.Dispatcher.Close(); err != nil {
		slog.Error("failed to close notification channels", slog.String("error", err.Error()))
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("healthlog stopped properly")
}

func (s *Server) StartBackgroundRunners(ctx context.Context) {
	runnerCtx, cancel := context.WithCancel(ctx)
	s.runnerCancelFuncs = append(s.runnerCancelFuncs, cancel)

	s.runners.Add(1)
	go func() {
		defer s.runners.Done()
		s.Registry.Run(runnerCtx)
	}()
}

// waitForRunners blocks until every background runner has returned, so no
// fire is in flight once it succeeds.
func (s *Server) waitForRunners(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.runners.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetEcho returns the underlying Echo instance.
func (s *Server) GetEcho() *echo.Echo {
	return s.echoServer
}
