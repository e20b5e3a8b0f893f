package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"security-hub/internal/models"
)

func TestEncode(t *testing.T) {
	id := uuid.New()
	raised := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	notif := models.Notification{
		ID:      id,
		Subject: "ALARM: door OPEN at FrontDoor",
		Body:    "Security alarm triggered.",
		Alert: models.Alert{
			ID: 12, DeviceID: "abc123", DeviceName: "FrontDoor",
			Channel: "door", Value: "OPEN", CreatedAt: raised,
		},
	}

	key, value, err := Encode(notif, raised.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "abc123", string(key))

	var msg AlarmMessage
	require.NoError(t, json.Unmarshal(value, &msg))
	assert.Equal(t, id.String(), msg.RequestID)
	assert.Equal(t, int64(12), msg.AlertID)
	assert.Equal(t, "door", msg.Channel)
	assert.Equal(t, 30*time.Second, msg.SentAt.Sub(msg.RaisedAt))
}
