package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"security-hub/internal/models"
)

type published struct {
	topic    string
	retained bool
	payload  string
}

type fakePublisher struct {
	msgs []published
}

func (f *fakePublisher) Publish(topic string, _ byte, retained bool, payload []byte) error {
	f.msgs = append(f.msgs, published{topic, retained, string(payload)})
	return nil
}

func TestBridge_Topics(t *testing.T) {
	pub := &fakePublisher{}
	b := NewBridge(pub, "security")
	ctx := context.Background()

	st := models.SensorStatus{DeviceID: "abc123", Channel: "door", Value: "OPEN", UpdatedAt: time.Now()}
	require.NoError(t, b.Handle(ctx, models.Event{Kind: models.EventStatusChanged, Status: &st}))

	armed := true
	require.NoError(t, b.Handle(ctx, models.Event{Kind: models.EventArmedChanged, Armed: &armed}))

	alert := models.Alert{ID: 3, DeviceID: "abc123", Channel: "door", Value: "OPEN"}
	require.NoError(t, b.Handle(ctx, models.Event{Kind: models.EventAlarmEscalated, Alert: &alert}))

	require.NoError(t, b.Handle(ctx, models.Event{Kind: models.EventDeviceSeen}))

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, published{"security/devices/abc123/door", true, "OPEN"}, pub.msgs[0])
	assert.Equal(t, published{"security/armed", true, "true"}, pub.msgs[1])
	assert.Equal(t, "security/alarm", pub.msgs[2].topic)
	assert.False(t, pub.msgs[2].retained)

	var got models.Alert
	require.NoError(t, json.Unmarshal([]byte(pub.msgs[2].payload), &got))
	assert.Equal(t, int64(3), got.ID)
}
