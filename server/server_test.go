package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/healthlog/internal/profile"
	"github.com/hrygo/healthlog/plugin/notify"
	"github.com/hrygo/healthlog/server/service/alarm"
	"github.com/hrygo/healthlog/store"
	"github.com/hrygo/healthlog/store/db/sqlite"
)

type failingChannel struct{}

func (failingChannel) Name() string { return "failing" }

func (failingChannel) Send(context.Context, *notify.Notification) error {
	return errors.New("unreachable")
}

func (failingChannel) Close() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	p := &profile.Profile{
		Mode:     "dev",
		Addr:     "127.0.0.1",
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "server_test.db"),
		Timezone: "UTC",
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	require.NoError(t, st.Migrate(context.Background()))

	s, err := NewServer(context.Background(), p, st)
	require.NoError(t, err)
	return s
}

func scrape(t *testing.T, s *Server) string {
	t.Helper()
	rec := httptest.NewRecorder()
	s.GetEcho().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestFireDeliversDueAlarm(t *testing.T) {
	s := newTestServer(t)
	t.Cleanup(func() { _ = s.Store.Close() })
	ctx := context.Background()

	a, err := s.Scheduler.AddAlarm(ctx, "Stretch", alarm.TimeOfDay{Hour: 7, Minute: 30})
	require.NoError(t, err)

	fires := s.Registry.Tick(ctx, time.Date(2024, 6, 4, 7, 30, 0, 0, time.UTC))
	require.Len(t, fires, 1)

	ringing := s.Dispatcher.Ringer().Active()
	require.Len(t, ringing, 1)
	assert.Equal(t, a.ID, ringing[0].AlarmID)
	assert.Contains(t, scrape(t, s), `healthlog_alarm_fires_total{outcome="delivered"} 1`)
}

func TestFireSkipsDisabledAlarm(t *testing.T) {
	s := newTestServer(t)
	t.Cleanup(func() { _ = s.Store.Close() })
	ctx := context.Background()

	a, err := s.Scheduler.AddAlarm(ctx, "Stretch", alarm.TimeOfDay{Hour: 7, Minute: 30})
	require.NoError(t, err)
	_, err = s.Scheduler.SetEnabled(ctx, a.ID, false)
	require.NoError(t, err)

	fires := s.Registry.Tick(ctx, time.Date(2024, 6, 4, 7, 30, 0, 0, time.UTC))
	require.Len(t, fires, 1)

	assert.Empty(t, s.Dispatcher.Ringer().Active())
	assert.Contains(t, scrape(t, s), `healthlog_alarm_fires_total{outcome="skipped"} 1`)
}

func TestFireRecordsDeliveryFailure(t *testing.T) {
	s := newTestServer(t)
	t.Cleanup(func() { _ = s.Store.Close() })
	ctx := context.Background()
	s.Dispatcher.Register(failingChannel{})

	_, err := s.Scheduler.AddAlarm(ctx, "Stretch", alarm.TimeOfDay{Hour: 22, Minute: 0})
	require.NoError(t, err)
	s.Registry.Tick(ctx, time.Date(2024, 6, 4, 22, 0, 0, 0, time.UTC))

	// The alarm still rings locally even when a remote channel fails.
	assert.Len(t, s.Dispatcher.Ringer().Active(), 1)
	assert.Contains(t, scrape(t, s), `healthlog_alarm_fires_total{outcome="failed"} 1`)
}

// deletingChannel deletes the alarm it delivers, as a concurrent API delete would.
type deletingChannel struct {
	scheduler *alarm.Scheduler
}

func (deletingChannel) Name() string { return "deleting" }

func (c deletingChannel) Send(ctx context.Context, n *notify.Notification) error {
	return c.scheduler.DeleteAlarm(ctx, n.AlarmID)
}

func (deletingChannel) Close() error { return nil }

func TestFireDoesNotLeaveDeletedAlarmRinging(t *testing.T) {
	s := newTestServer(t)
	t.Cleanup(func() { _ = s.Store.Close() })
	ctx := context.Background()
	s.Dispatcher.Register(deletingChannel{scheduler: s.Scheduler})

	a, err := s.Scheduler.AddAlarm(ctx, "Stretch", alarm.TimeOfDay{Hour: 7, Minute: 30})
	require.NoError(t, err)
	s.Registry.Tick(ctx, time.Date(2024, 6, 4, 7, 30, 0, 0, time.UTC))

	_, err = s.Scheduler.GetAlarm(a.ID)
	require.ErrorIs(t, err, alarm.ErrAlarmNotFound)
	assert.Empty(t, s.Dispatcher.Ringer().Active())
}

func TestNewServerRestoresAlarms(t *testing.T) {
	p := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "restore.db"), Timezone: "UTC"}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	first, err := NewServer(context.Background(), p, st)
	require.NoError(t, err)
	a, err := first.Scheduler.AddAlarm(context.Background(), "Pills", alarm.TimeOfDay{Hour: 9, Minute: 0})
	require.NoError(t, err)

	second, err := NewServer(context.Background(), p, st)
	require.NoError(t, err)
	restored, err := second.Scheduler.GetAlarm(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pills", restored.Title)
	assert.True(t, second.Registry.Pending(a.ID))
	assert.Contains(t, scrape(t, second), "healthlog_alarm_alarms 1")
}

func TestStartAndShutdown(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	addr := s.GetEcho().ListenerAddr()
	require.NotNil(t, addr)

	resp, err := http.Get("http://" + addr.String() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Service ready.", string(body))

	s.Shutdown(ctx)

	// The trigger loop has returned, so nothing can deliver to closed channels.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	assert.NoError(t, s.waitForRunners(waitCtx))
}

func TestNutritionDisabledWithoutCredentials(t *testing.T) {
	assert.Nil(t, newNutritionPipeline(&profile.Profile{}))
	assert.NotNil(t, newNutritionPipeline(&profile.Profile{EdamamAppID: "id", EdamamAppKey: "key", TranslateProvider: profile.TranslateLLM, LLMAPIKey: "sk"}))
}
