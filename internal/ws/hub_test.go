package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"security-hub/internal/logging"
	"security-hub/internal/models"
)

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(logging.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.Serve))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	alert := models.Alert{ID: 4, DeviceID: "abc123", Channel: "door", Value: "OPEN"}
	require.NoError(t, hub.Handle(context.Background(), models.Event{Kind: models.EventAlertRaised, Alert: &alert}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev models.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, models.EventAlertRaised, ev.Kind)
	require.NotNil(t, ev.Alert)
	assert.Equal(t, int64(4), ev.Alert.ID)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
