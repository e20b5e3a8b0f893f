package notification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"security-hub/internal/config"
	"security-hub/internal/logging"
	"security-hub/internal/models"
)

// ProviderFunc delivers one notification over a single channel.
type ProviderFunc func(ctx context.Context, notif models.Notification) error

// Recorder persists escalation records. It is optional.
type Recorder interface {
	CreateNotification(ctx context.Context, n models.Notification) error
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status, lastError string) error
}

// Service turns expired grace periods into dispatched notifications.
type Service struct {
	recorder      Recorder
	logger        *logging.Logger
	config        config.Config
	tasks         chan models.Task
	ctx           context.Context
	cancel        context.CancelFunc
	wg            *sync.WaitGroup
	providerFuncs map[string]ProviderFunc

	mu           sync.Mutex
	lastDispatch time.Time
	now          func() time.Time
}

// New constructs a notification Service. recorder may be nil.
func New(recorder Recorder, logger *logging.Logger, cfg config.Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		recorder:      recorder,
		logger:        logger,
		config:        cfg,
		tasks:         make(chan models.Task, cfg.Notification.QueueSize),
		ctx:           ctx,
		cancel:        cancel,
		providerFuncs: make(map[string]ProviderFunc),
		now:           time.Now,
	}
}

// Register adds a delivery provider. Call before Start.
func (s *Service) Register(name string, fn ProviderFunc) {
	s.providerFuncs[name] = fn
}

// Start launches the worker pool.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.config.Notification.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop signals the workers to exit. Queued tasks are abandoned.
func (s *Service) Stop() {
	s.cancel()
}

// Escalate queues an alert whose grace period expired.
func (s *Service) Escalate(alert models.Alert) {
	s.QueueTask(models.Task{
		RequestID: uuid.NewString(),
		Alert:     alert,
		QueuedAt:  s.now(),
	})
}

// QueueTask enqueues a Task for processing.
func (s *Service) QueueTask(task models.Task) {
	select {
	case s.tasks <- task:
		s.logger.Infof("Queued task: request_id=%s alert_id=%d", task.RequestID, task.Alert.ID)
	default:
		s.logger.Errorf("Queue full, dropping task: request_id=%s", task.RequestID)
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case task := <-s.tasks:
			s.handleTask(task)
		}
	}
}

func (s *Service) handleTask(task models.Task) {
	reqID, err := uuid.Parse(task.RequestID)
	if err != nil {
		s.logger.Errorf("Invalid request ID %s: %v", task.RequestID, err)
		return
	}

	now := s.now()
	notif := models.Notification{
		ID:        reqID,
		CreatedAt: now,
		UpdatedAt: now,
		Subject:   Subject(task.Alert),
		Body:      Body(task.Alert),
		Status:    models.NotificationPending,
		Alert:     task.Alert,
	}

	if s.recorder != nil {
		if err := s.recorder.CreateNotification(s.ctx, notif); err != nil {
			s.logger.Errorf("CreateNotification failed: %v", err)
		}
	}

	if !s.claimDispatch(now) {
		s.finish(reqID, models.NotificationSuppressed, "within cooldown of previous notification")
		s.logger.Infof("Notification %s suppressed by cooldown", reqID)
		return
	}

	if len(s.providerFuncs) == 0 {
		s.finish(reqID, models.NotificationFailed, "no providers configured")
		s.logger.Warnf("Notification %s not dispatched: no providers configured", reqID)
		return
	}

	names := make([]string, 0, len(s.providerFuncs))
	for name := range s.providerFuncs {
		names = append(names, name)
	}
	sort.Strings(names)

	var failures []string
	for _, name := range names {
		if err := s.providerFuncs[name](s.ctx, notif); err != nil {
			s.logger.Errorf("Dispatch error via %s: %v", name, err)
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		s.logger.Infof("Notification %s dispatched via %s", reqID, name)
	}

	// any successful channel counts as delivered
	switch {
	case len(failures) == len(names):
		s.finish(reqID, models.NotificationFailed, fmt.Sprint(failures))
	case len(failures) > 0:
		s.finish(reqID, models.NotificationSuccess, fmt.Sprint(failures))
	default:
		s.finish(reqID, models.NotificationSuccess, "")
	}
}

// claimDispatch reports whether a dispatch may go out now and records it.
func (s *Service) claimDispatch(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cooldown := s.config.Notification.Cooldown
	if cooldown > 0 && !s.lastDispatch.IsZero() && now.Sub(s.lastDispatch) < cooldown {
		return false
	}
	s.lastDispatch = now
	return true
}

func (s *Service) finish(id uuid.UUID, status, lastError string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.UpdateNotificationStatus(s.ctx, id, status, lastError); err != nil {
		s.logger.Errorf("UpdateNotificationStatus failed: %v", err)
	}
}

// Subject is the one-line summary of an escalated alert.
func Subject(a models.Alert) string {
	name := a.DeviceName
	if name == "" {
		name = a.DeviceID
	}
	return fmt.Sprintf("ALARM: %s %s at %s", a.Channel, a.Value, name)
}

// Body is the detailed text of an escalated alert.
func Body(a models.Alert) string {
	return fmt.Sprintf(
		"Security alarm triggered.\nDevice: %s (%s)\nSensor: %s\nState: %s\nTime: %s",
		a.DeviceName, a.DeviceID, a.Channel, a.Value, a.CreatedAt.Format("2006-01-02 15:04:05"),
	)
}
