package grace

import (
	"errors"
	"math"
	"sync"
	"time"

	"security-hub/internal/logging"
	"security-hub/internal/models"
)

var ErrDisarmed = errors.New("system is disarmed")

// Escalator receives an alert whose grace period expired without cancellation.
type Escalator interface {
	Escalate(alert models.Alert)
}

// Publisher receives coordinator events. It must not block.
type Publisher interface {
	Publish(ev models.Event)
}

// Coordinator owns the armed flag and at most one countdown. Both live under
// the same lock so that disarming happens-before any later Start.
type Coordinator struct {
	mu       sync.Mutex
	armed    bool
	active   bool
	gen      uint64
	alert    models.Alert
	deadline time.Time
	timer    *time.Timer

	escalator Escalator
	publisher Publisher
	logger    *logging.Logger
	now       func() time.Time
}

func New(escalator Escalator, publisher Publisher, logger *logging.Logger, armed bool) *Coordinator {
	return &Coordinator{
		armed:     armed,
		escalator: escalator,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (c *Coordinator) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// SetArmed changes the armed flag. Disarming cancels any countdown.
// It reports whether the flag changed and whether a countdown was cancelled.
func (c *Coordinator) SetArmed(armed bool) (changed, cancelled bool) {
	c.mu.Lock()
	changed = c.armed != armed
	c.armed = armed
	var st *models.GraceStatus
	if !armed {
		st = c.cancelLocked()
	}
	c.mu.Unlock()

	if st != nil {
		c.logger.Infof("Grace period cancelled by disarm: alert_id=%d", st.Alert.ID)
		c.publish(models.Event{Kind: models.EventGraceCancelled, Grace: st})
	}
	if changed {
		c.logger.Infof("System armed=%t", armed)
		c.publish(models.Event{Kind: models.EventArmedChanged, Armed: &armed})
	}
	return changed, st != nil
}

// Start begins a countdown for alert. A running countdown is replaced.
// Nothing starts while disarmed.
func (c *Coordinator) Start(alert models.Alert, d time.Duration) error {
	c.mu.Lock()
	if !c.armed {
		c.mu.Unlock()
		return ErrDisarmed
	}
	replaced := c.active
	if c.timer != nil {
		c.timer.Stop()
	}

	c.gen++
	gen := c.gen
	c.active = true
	c.alert = alert
	c.deadline = c.now().Add(d)
	c.timer = time.AfterFunc(d, func() { c.expire(gen) })
	st := c.statusLocked()
	c.mu.Unlock()

	if replaced {
		c.logger.Warnf("Grace period replaced by alert_id=%d", alert.ID)
	}
	c.logger.Infof("Grace period started: alert_id=%d device=%s channel=%s deadline=%s",
		alert.ID, alert.DeviceID, alert.Channel, st.Deadline.Format(time.RFC3339))
	c.publish(models.Event{Kind: models.EventGraceStarted, Alert: &alert, Grace: &st})
	return nil
}

// Cancel stops the active countdown. It reports false when nothing was active,
// including when the countdown already expired.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	st := c.cancelLocked()
	c.mu.Unlock()

	if st == nil {
		return false
	}
	c.logger.Infof("Grace period cancelled: alert_id=%d", st.Alert.ID)
	c.publish(models.Event{Kind: models.EventGraceCancelled, Grace: st})
	return true
}

// Stop cancels any countdown without publishing. Used on shutdown.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.cancelLocked()
	c.mu.Unlock()
}

func (c *Coordinator) Status() models.GraceStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Coordinator) cancelLocked() *models.GraceStatus {
	if !c.active {
		return nil
	}
	st := c.statusLocked()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.active = false
	c.gen++
	return &st
}

func (c *Coordinator) statusLocked() models.GraceStatus {
	if !c.active {
		return models.GraceStatus{}
	}
	alert := c.alert
	deadline := c.deadline
	remaining := deadline.Sub(c.now())
	if remaining < 0 {
		remaining = 0
	}
	return models.GraceStatus{
		Active:           true,
		Alert:            &alert,
		Deadline:         &deadline,
		SecondsRemaining: int(math.Ceil(remaining.Seconds())),
	}
}

func (c *Coordinator) expire(gen uint64) {
	c.mu.Lock()
	if !c.active || c.gen != gen {
		c.mu.Unlock()
		return
	}
	alert := c.alert
	c.active = false
	c.timer = nil
	c.gen++
	c.mu.Unlock()

	c.logger.Warnf("Grace period expired, escalating alert_id=%d device=%s channel=%s",
		alert.ID, alert.DeviceID, alert.Channel)
	c.publish(models.Event{Kind: models.EventAlarmEscalated, Alert: &alert})
	if c.escalator != nil {
		c.escalator.Escalate(alert)
	}
}

func (c *Coordinator) publish(ev models.Event) {
	if c.publisher == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = c.now()
	}
	c.publisher.Publish(ev)
}
