package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"security-hub/internal/logging"
	"security-hub/internal/models"
)

type memorySink struct {
	name string
	fail bool
	mu   sync.Mutex
	got  []models.EventKind
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Handle(_ context.Context, ev models.Event) error {
	s.mu.Lock()
	s.got = append(s.got, ev.Kind)
	s.mu.Unlock()
	if s.fail {
		return errors.New("boom")
	}
	return nil
}

func (s *memorySink) kinds() []models.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.EventKind(nil), s.got...)
}

func TestDispatcher_FailingSinkDoesNotStopOthers(t *testing.T) {
	bad := &memorySink{name: "bad", fail: true}
	good := &memorySink{name: "good"}
	d := NewDispatcher(logging.NewNop(), 16, bad, good)

	var wg sync.WaitGroup
	d.Start(&wg)

	d.Publish(models.Event{Kind: models.EventAlertRaised})
	d.Publish(models.Event{Kind: models.EventGraceStarted})
	d.Stop()
	wg.Wait()

	want := []models.EventKind{models.EventAlertRaised, models.EventGraceStarted}
	assert.Equal(t, want, bad.kinds())
	assert.Equal(t, want, good.kinds())
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	sink := &memorySink{name: "mem"}
	d := NewDispatcher(logging.NewNop(), 2, sink)

	// not started: the queue fills and further events are dropped
	for i := 0; i < 10; i++ {
		d.Publish(models.Event{Kind: models.EventStatusChanged})
	}
	require.Len(t, d.events, 2)

	var wg sync.WaitGroup
	d.Start(&wg)
	d.Stop()
	wg.Wait()
	assert.Len(t, sink.kinds(), 2)
}
