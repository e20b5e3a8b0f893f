package store

import (
	"sort"
	"sync"
	"time"

	"security-hub/internal/models"
)

// AlertLog is an append-only alert history pruned by age on every write.
type AlertLog struct {
	mu        sync.Mutex
	retention time.Duration
	lastID    int64
	alerts    []models.Alert
	now       func() time.Time
}

// NewAlertLog keeps alerts younger than retention. Zero keeps everything.
func NewAlertLog(retention time.Duration) *AlertLog {
	return &AlertLog{retention: retention, now: time.Now}
}

// Append assigns a monotonic id and CreatedAt (when zero), stores the alert and
// drops alerts older than the retention window.
func (l *AlertLog) Append(a models.Alert) models.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	// Millisecond ids keep their ordering across restarts; the counter
	// guarantees uniqueness within one.
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	a.ID = id
	a.Read = false
	a.ReadAt = nil

	l.alerts = append(l.alerts, a)
	l.pruneLocked(now)
	return a
}

func (l *AlertLog) pruneLocked(now time.Time) {
	if l.retention <= 0 {
		return
	}
	cutoff := now.Add(-l.retention)
	kept := l.alerts[:0]
	for _, a := range l.alerts {
		if a.CreatedAt.After(cutoff) {
			kept = append(kept, a)
		}
	}
	// clear the tail so pruned alerts can be collected
	for i := len(kept); i < len(l.alerts); i++ {
		l.alerts[i] = models.Alert{}
	}
	l.alerts = kept
}

// List returns matching alerts, newest first.
func (l *AlertLog) List(f models.AlertFilter) []models.Alert {
	l.mu.Lock()
	out := make([]models.Alert, 0, len(l.alerts))
	for _, a := range l.alerts {
		if f.UnreadOnly && a.Read {
			continue
		}
		if f.DeviceID != "" && a.DeviceID != f.DeviceID {
			continue
		}
		out = append(out, a)
	}
	l.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (l *AlertLog) Get(id int64) (models.Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Alert{}, ErrNotFound
}

func (l *AlertLog) MarkRead(id int64) (models.Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.alerts {
		if l.alerts[i].ID != id {
			continue
		}
		if !l.alerts[i].Read {
			at := l.now()
			l.alerts[i].Read = true
			l.alerts[i].ReadAt = &at
		}
		return l.alerts[i], nil
	}
	return models.Alert{}, ErrNotFound
}

// MarkAllRead marks every unread alert and returns how many changed.
func (l *AlertLog) MarkAllRead() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	at := l.now()
	n := 0
	for i := range l.alerts {
		if l.alerts[i].Read {
			continue
		}
		l.alerts[i].Read = true
		l.alerts[i].ReadAt = &at
		n++
	}
	return n
}

func (l *AlertLog) UnreadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, a := range l.alerts {
		if !a.Read {
			n++
		}
	}
	return n
}
