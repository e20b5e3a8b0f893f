package grace

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"security-hub/internal/logging"
	"security-hub/internal/models"
)

type recorder struct {
	mu        sync.Mutex
	escalated []models.Alert
	events    []models.Event
}

func (r *recorder) Escalate(a models.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escalated = append(r.escalated, a)
}

func (r *recorder) Publish(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) escalations() []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Alert(nil), r.escalated...)
}

func (r *recorder) kinds() []models.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EventKind
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newCoordinator(armed bool) (*Coordinator, *recorder) {
	rec := &recorder{}
	return New(rec, rec, logging.NewNop(), armed), rec
}

func TestStart_DisarmedDoesNothing(t *testing.T) {
	c, rec := newCoordinator(false)

	err := c.Start(models.Alert{ID: 1}, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrDisarmed)
	assert.False(t, c.Status().Active)

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, rec.escalations())
}

func TestExpire_EscalatesOnce(t *testing.T) {
	c, rec := newCoordinator(true)

	require.NoError(t, c.Start(models.Alert{ID: 7, DeviceID: "abc123"}, 20*time.Millisecond))
	assert.True(t, c.Status().Active)

	assert.Eventually(t, func() bool { return len(rec.escalations()) == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, c.Status().Active)
	assert.False(t, c.Cancel(), "cancel after expiry is a no-op")

	time.Sleep(30 * time.Millisecond)
	require.Len(t, rec.escalations(), 1)
	assert.Equal(t, int64(7), rec.escalations()[0].ID)
	assert.Contains(t, rec.kinds(), models.EventAlarmEscalated)
}

func TestCancel_BeforeDeadline(t *testing.T) {
	c, rec := newCoordinator(true)

	require.NoError(t, c.Start(models.Alert{ID: 1}, 30*time.Millisecond))
	assert.True(t, c.Cancel())
	assert.False(t, c.Cancel())

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.escalations())
	assert.Equal(t, []models.EventKind{models.EventGraceStarted, models.EventGraceCancelled}, rec.kinds())
}

func TestStart_ReplacesActiveCountdown(t *testing.T) {
	c, rec := newCoordinator(true)

	require.NoError(t, c.Start(models.Alert{ID: 1}, 20*time.Millisecond))
	require.NoError(t, c.Start(models.Alert{ID: 2}, 60*time.Millisecond))

	st := c.Status()
	require.True(t, st.Active)
	assert.Equal(t, int64(2), st.Alert.ID)

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, rec.escalations(), "replaced timer must never fire")

	assert.Eventually(t, func() bool { return len(rec.escalations()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), rec.escalations()[0].ID)
}

func TestSetArmed_DisarmCancels(t *testing.T) {
	c, rec := newCoordinator(true)

	require.NoError(t, c.Start(models.Alert{ID: 1}, 20*time.Millisecond))
	changed, cancelled := c.SetArmed(false)
	assert.True(t, changed)
	assert.True(t, cancelled)
	assert.False(t, c.Armed())
	assert.False(t, c.Status().Active)
	assert.ErrorIs(t, c.Start(models.Alert{ID: 2}, 10*time.Millisecond), ErrDisarmed)

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, rec.escalations())
	assert.Contains(t, rec.kinds(), models.EventArmedChanged)

	changed, cancelled = c.SetArmed(false)
	assert.False(t, changed)
	assert.False(t, cancelled)
	changed, cancelled = c.SetArmed(true)
	assert.True(t, changed)
	assert.False(t, cancelled)
}

func TestStatus_IdleOmitsDeadline(t *testing.T) {
	c, _ := newCoordinator(true)
	b, err := json.Marshal(c.Status())
	require.NoError(t, err)
	assert.JSONEq(t, `{"active":false,"seconds_remaining":0}`, string(b))
}

func TestStatus_ThirtySecondWindow(t *testing.T) {
	c, rec := newCoordinator(true)
	base := time.Now()
	c.now = func() time.Time { return base }

	alert := models.Alert{ID: 42, DeviceID: "abc123", DeviceName: "FrontDoor", Channel: "door", Value: "OPEN"}
	require.NoError(t, c.Start(alert, 30*time.Second))

	st := c.Status()
	require.True(t, st.Active)
	assert.Equal(t, 30, st.SecondsRemaining)
	require.NotNil(t, st.Deadline)
	assert.WithinDuration(t, base.Add(30*time.Second), *st.Deadline, time.Millisecond)

	c.now = func() time.Time { return base.Add(10 * time.Second) }
	assert.Equal(t, 20, c.Status().SecondsRemaining)

	c.now = func() time.Time { return base.Add(45 * time.Second) }
	assert.Equal(t, 0, c.Status().SecondsRemaining)

	assert.True(t, c.Cancel())
	assert.False(t, c.Status().Active)
	assert.Empty(t, rec.escalations())
}

func TestConcurrentCancelAndExpire(t *testing.T) {
	for i := 0; i < 50; i++ {
		c, rec := newCoordinator(true)
		require.NoError(t, c.Start(models.Alert{ID: int64(i)}, time.Millisecond))

		time.Sleep(time.Millisecond)
		cancelled := c.Cancel()
		if cancelled {
			time.Sleep(5 * time.Millisecond)
			assert.Empty(t, rec.escalations())
			continue
		}
		assert.Eventually(t, func() bool { return len(rec.escalations()) == 1 }, time.Second, time.Millisecond)
		time.Sleep(5 * time.Millisecond)
		assert.Len(t, rec.escalations(), 1)
	}
}
