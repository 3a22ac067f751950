package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/healthlog/internal/profile"
	"github.com/hrygo/healthlog/plugin/notify"
	"github.com/hrygo/healthlog/plugin/nutrition"
	"github.com/hrygo/healthlog/plugin/trigger"
	"github.com/hrygo/healthlog/server/metrics"
	"github.com/hrygo/healthlog/server/service/alarm"
	"github.com/hrygo/healthlog/server/service/series"
	"github.com/hrygo/healthlog/store"
	"github.com/hrygo/healthlog/store/db/sqlite"
)

var testNow = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) Lookup(ctx context.Context, food string) (nutrition.Result, error) {
	args := m.Called(ctx, food)
	return args.Get(0).(nutrition.Result), args.Error(1)
}

type failingRegistry struct {
	registerErr error
	cancelErr   error
}

func (f *failingRegistry) RegisterDailyTrigger(context.Context, string, int, int, trigger.Payload) error {
	return f.registerErr
}

func (f *failingRegistry) CancelTrigger(context.Context, string) error {
	return f.cancelErr
}

type testEnv struct {
	echo     *echo.Echo
	service  *APIV1Service
	store    *store.Store
	registry *trigger.Registry
}

func newTestEnv(t *testing.T, registry alarm.Registry, lookup NutritionLookup) *testEnv {
	t.Helper()
	p := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "api_test.db")}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	env := &testEnv{store: st}
	if registry == nil {
		env.registry = trigger.NewRegistry(nil, trigger.WithLocation(time.UTC))
		registry = env.registry
	}
	scheduler := alarm.NewScheduler(registry,
		alarm.WithStore(st),
		alarm.WithLocation(time.UTC),
		alarm.WithClock(func() time.Time { return testNow }),
	)
	env.service = NewAPIV1Service(p, st, series.NewAggregator(time.UTC), scheduler, notify.NewRinger(), lookup, metrics.NewPrometheusExporter(metrics.DefaultConfig()))
	env.service.now = func() time.Time { return testNow }
	env.echo = echo.New()
	env.service.RegisterRoutes(env.echo)
	return env
}

func (env *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, http.NoBody)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestEntriesAndSeries(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	for _, body := range []string{
		`{"name":"Rice","category":"diet","value":100,"timestamp":"2024-06-01T08:00:00Z"}`,
		`{"name":"Soup","category":"diet","value":50,"timestamp":"2024-06-01T19:00:00Z"}`,
		`{"name":"Apple","category":"diet","value":30,"timestamp":"2024-06-02T12:00:00Z"}`,
		`{"name":"Run","category":"exercise","value":300,"duration_minutes":30,"exercise_type":"Running","timestamp":"2024-06-02T07:00:00Z"}`,
	} {
		rec := env.do(t, http.MethodPost, "/api/v1/entries", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/v1/series?category=diet&period=last_week", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[seriesResponse](t, rec)
	assert.Equal(t, 7, got.Days)
	require.Len(t, got.Points, 7)
	assert.Equal(t, "2024-05-28", got.First)
	assert.Equal(t, "2024-06-03", got.Last)
	assert.Equal(t, series.DayTotal{Day: "2024-06-01", Total: 150}, got.Points[4])
	assert.Equal(t, series.DayTotal{Day: "2024-06-02", Total: 30}, got.Points[5])
	assert.Equal(t, 180.0, got.Sum)
	assert.Equal(t, 150.0, got.Max)

	rec = env.do(t, http.MethodGet, "/api/v1/series?category=exercise&period=last_month&metric=active_days", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[seriesResponse](t, rec)
	assert.Len(t, got.Points, 30)
	assert.Equal(t, 1.0, got.Sum)

	rec = env.do(t, http.MethodGet, "/api/v1/entries?category=exercise", "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]entryResponse](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "Running", entries[0].ExerciseType)
	assert.Equal(t, "2024-06-02", entries[0].Day)

	rec = env.do(t, http.MethodDelete, "/api/v1/entries/"+entries[0].ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/v1/entries/"+entries[0].ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSeriesValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/series?category=sleep", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/series?category=diet&period=last_decade", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/series?category=diet&metric=median", "").Code)

	rec := env.do(t, http.MethodGet, "/api/v1/series?category=diet", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[seriesResponse](t, rec)
	assert.Equal(t, "last_week", got.Period)
	assert.Equal(t, 1.0, got.Max)
}

func TestCreateEntryValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/entries", `{"category":"diet","value":-1}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/entries", `{"category":"nap","value":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/entries", `{"category":"diet","value":1,"timestamp":"yesterday"}`).Code)

	rec := env.do(t, http.MethodPost, "/api/v1/entries", `{"name":"Tea","category":"diet","value":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[entryResponse](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Timestamp.Equal(testNow))
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	for _, body := range []string{
		`{"category":"diet","value":100,"timestamp":"2024-06-01T08:00:00Z"}`,
		`{"category":"diet","value":50,"timestamp":"2024-06-01T23:59:59Z"}`,
		`{"category":"diet","value":70,"timestamp":"2024-06-02T00:00:00Z"}`,
		`{"category":"exercise","value":40,"timestamp":"2024-06-01T18:00:00Z"}`,
	} {
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/entries", body).Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/summary?date=2024-06-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[summaryResponse](t, rec)
	assert.Equal(t, summaryResponse{Date: "2024-06-01", Diet: 150, Exercise: 40, Net: 110}, got)

	rec = env.do(t, http.MethodGet, "/api/v1/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-06-03", decode[summaryResponse](t, rec).Date)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/summary?date=06/01/2024", "").Code)
}

func TestAlarmLifecycle(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/alarms", `{"title":"Wake up","time":"07:30"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[alarmResponse](t, rec)
	assert.Equal(t, "07:30", created.Time)
	assert.True(t, created.Enabled)
	assert.True(t, env.registry.Pending(created.ID))

	rec = env.do(t, http.MethodGet, "/api/v1/alarms/due?at=2024-06-04T07:30:59Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]alarmResponse](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/v1/alarms/due?at=2024-06-04T07:31:00Z", "")
	assert.Empty(t, decode[[]alarmResponse](t, rec))

	rec = env.do(t, http.MethodPatch, "/api/v1/alarms/"+created.ID, `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[alarmResponse](t, rec).Enabled)
	rec = env.do(t, http.MethodGet, "/api/v1/alarms/due?at=2024-06-04T07:30:00Z", "")
	assert.Empty(t, decode[[]alarmResponse](t, rec))

	rec = env.do(t, http.MethodGet, "/api/v1/alarms", "")
	assert.Len(t, decode[[]alarmResponse](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/api/v1/alarms/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[deleteAlarmResponse](t, rec)
	assert.True(t, deleted.Deleted)
	assert.Empty(t, deleted.Warning)
	assert.False(t, env.registry.Pending(created.ID))

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/v1/alarms/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPatch, "/api/v1/alarms/"+created.ID, `{"enabled":true}`).Code)
}

func TestCreateAlarmErrors(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/alarms", `{"title":"x","time":"25:00"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPatch, "/api/v1/alarms/any", `{}`).Code)

	full := newTestEnv(t, &failingRegistry{registerErr: trigger.ErrRegistryFull}, nil)
	rec := full.do(t, http.MethodPost, "/api/v1/alarms", `{"title":"x","time":"07:00"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	rec = full.do(t, http.MethodGet, "/api/v1/alarms", "")
	assert.Empty(t, decode[[]alarmResponse](t, rec))
}

func TestDeleteAlarmCancellationWarning(t *testing.T) {
	env := newTestEnv(t, &failingRegistry{cancelErr: errors.New("permission revoked")}, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/alarms", `{"title":"x","time":"07:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[alarmResponse](t, rec)

	rec = env.do(t, http.MethodDelete, "/api/v1/alarms/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[deleteAlarmResponse](t, rec)
	assert.True(t, got.Deleted)
	assert.Contains(t, got.Warning, "permission revoked")

	rec = env.do(t, http.MethodGet, "/api/v1/alarms", "")
	assert.Empty(t, decode[[]alarmResponse](t, rec))
}

func TestRingingAndStop(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.service.Ringer.Start(&notify.Notification{AlarmID: "a1", Body: "Wake up", At: testNow})

	rec := env.do(t, http.MethodGet, "/api/v1/alarms/ringing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]notify.Ringing](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/api/v1/alarms/a1/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"stopped": true}, decode[map[string]bool](t, rec))

	rec = env.do(t, http.MethodGet, "/api/v1/alarms/ringing", "")
	assert.Empty(t, decode[[]notify.Ringing](t, rec))
}

func TestLookupNutrition(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("Lookup", mock.Anything, "사과").Return(nutrition.Result{Query: "사과", Translated: "apple", Calories: 52, ServingSize: "1 Whole", Found: true}, nil)
	lookup.On("Lookup", mock.Anything, "rock").Return(nutrition.Result{Query: "rock"}, nil)
	lookup.On("Lookup", mock.Anything, "").Return(nutrition.Result{}, nutrition.ErrEmptyQuery)
	lookup.On("Lookup", mock.Anything, "boom").Return(nutrition.Result{}, errors.New("upstream down"))
	env := newTestEnv(t, nil, lookup)

	rec := env.do(t, http.MethodGet, "/api/v1/nutrition?food=%EC%82%AC%EA%B3%BC", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[nutrition.Result](t, rec)
	assert.True(t, got.Found)
	assert.Equal(t, 52.0, got.Calories)

	rec = env.do(t, http.MethodGet, "/api/v1/nutrition?food=rock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[nutrition.Result](t, rec).Found)

	// Stay under the per-client rate limit.
	time.Sleep(time.Second)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/nutrition", "").Code)
	assert.Equal(t, http.StatusBadGateway, env.do(t, http.MethodGet, "/api/v1/nutrition?food=boom", "").Code)
}

func TestLookupNutritionNotConfigured(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/api/v1/nutrition?food=apple", "").Code)
}
