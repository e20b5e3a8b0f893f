package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"security-hub/internal/config"
	"security-hub/internal/logging"
	"security-hub/internal/models"
)

type memoryRecorder struct {
	mu       sync.Mutex
	created  []models.Notification
	statuses map[uuid.UUID]string
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{statuses: make(map[uuid.UUID]string)}
}

func (r *memoryRecorder) CreateNotification(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, n)
	r.statuses[n.ID] = n.Status
	return nil
}

func (r *memoryRecorder) UpdateNotificationStatus(_ context.Context, id uuid.UUID, status, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = status
	return nil
}

func (r *memoryRecorder) statusList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.created {
		out = append(out, r.statuses[n.ID])
	}
	return out
}

func testConfig(cooldown time.Duration) config.Config {
	var cfg config.Config
	cfg.Notification.QueueSize = 10
	cfg.Notification.MaxWorkers = 1
	cfg.Notification.Cooldown = cooldown
	return cfg
}

func TestHandleTask_DispatchesAllProviders(t *testing.T) {
	rec := newMemoryRecorder()
	svc := New(rec, logging.NewNop(), testConfig(0))

	var sent []string
	svc.Register("kafka", func(_ context.Context, n models.Notification) error {
		sent = append(sent, "kafka:"+n.Subject)
		return nil
	})
	svc.Register("telegram", func(context.Context, models.Notification) error {
		return errors.New("unreachable")
	})

	alert := models.Alert{ID: 1, DeviceID: "abc123", DeviceName: "FrontDoor", Channel: "door", Value: "OPEN"}
	svc.handleTask(models.Task{RequestID: uuid.NewString(), Alert: alert})

	assert.Equal(t, []string{"kafka:ALARM: door OPEN at FrontDoor"}, sent)
	assert.Equal(t, []string{models.NotificationSuccess}, rec.statusList())
}

func TestHandleTask_AllProvidersFail(t *testing.T) {
	rec := newMemoryRecorder()
	svc := New(rec, logging.NewNop(), testConfig(0))
	svc.Register("telegram", func(context.Context, models.Notification) error {
		return errors.New("down")
	})

	svc.handleTask(models.Task{RequestID: uuid.NewString(), Alert: models.Alert{ID: 1}})
	assert.Equal(t, []string{models.NotificationFailed}, rec.statusList())
}

func TestHandleTask_Cooldown(t *testing.T) {
	rec := newMemoryRecorder()
	svc := New(rec, logging.NewNop(), testConfig(time.Minute))
	now := time.Now()
	svc.now = func() time.Time { return now }

	calls := 0
	svc.Register("kafka", func(context.Context, models.Notification) error {
		calls++
		return nil
	})

	svc.handleTask(models.Task{RequestID: uuid.NewString(), Alert: models.Alert{ID: 1}})
	now = now.Add(30 * time.Second)
	svc.handleTask(models.Task{RequestID: uuid.NewString(), Alert: models.Alert{ID: 2}})
	now = now.Add(31 * time.Second)
	svc.handleTask(models.Task{RequestID: uuid.NewString(), Alert: models.Alert{ID: 3}})

	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{
		models.NotificationSuccess,
		models.NotificationSuppressed,
		models.NotificationSuccess,
	}, rec.statusList())
}

func TestEscalate_WorkerPool(t *testing.T) {
	svc := New(nil, logging.NewNop(), testConfig(0))
	done := make(chan models.Notification, 1)
	svc.Register("kafka", func(_ context.Context, n models.Notification) error {
		done <- n
		return nil
	})

	var wg sync.WaitGroup
	svc.Start(&wg)
	svc.Escalate(models.Alert{ID: 9, DeviceID: "abc123", Channel: "motion", Value: "DETECTED"})

	select {
	case n := <-done:
		assert.Equal(t, int64(9), n.Alert.ID)
		assert.NotEqual(t, uuid.Nil, n.ID)
	case <-time.After(2 * time.Second):
		require.Fail(t, "notification was not dispatched")
	}

	svc.Stop()
	wg.Wait()
}

func TestSubjectFallsBackToDeviceID(t *testing.T) {
	assert.Equal(t, "ALARM: motion DETECTED at m1", Subject(models.Alert{DeviceID: "m1", Channel: "motion", Value: "DETECTED"}))
}
