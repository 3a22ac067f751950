package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/healthlog/plugin/notify"
)

func TestSendPostsNotification(t *testing.T) {
	var got RequestPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := NewChannel(srv.URL)
	err := ch.Send(context.Background(), &notify.Notification{AlarmID: "a1", Body: "Stretch"})
	require.NoError(t, err)
	assert.Equal(t, "alarms.fired", got.ActivityType)
	require.NotNil(t, got.Notification)
	assert.Equal(t, "a1", got.Notification.AlarmID)
	assert.Equal(t, "Stretch", got.Notification.Body)
}

func TestSendReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewChannel(srv.URL).Send(context.Background(), &notify.Notification{AlarmID: "a1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code: 500")
}
