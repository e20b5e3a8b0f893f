package events

import (
	"context"
	"sync"
	"time"

	"security-hub/internal/logging"
	"security-hub/internal/models"
)

// Sink consumes hub events. A failing sink never affects the others.
type Sink interface {
	Name() string
	Handle(ctx context.Context, ev models.Event) error
}

// Dispatcher fans events out to a fixed set of sinks from a single worker.
type Dispatcher struct {
	logger  *logging.Logger
	sinks   []Sink
	events  chan models.Event
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	timeout time.Duration
}

func NewDispatcher(logger *logging.Logger, queueSize int, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		logger:  logger,
		sinks:   sinks,
		events:  make(chan models.Event, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		timeout: 5 * time.Second,
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(d.done)
		d.run()
	}()
}

// Publish enqueues ev without blocking. A full queue drops the event.
func (d *Dispatcher) Publish(ev models.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case d.events <- ev:
	default:
		d.logger.Errorf("Event queue full, dropping event: kind=%s", ev.Kind)
	}
}

// Stop delivers what is already queued and waits for the worker.
func (d *Dispatcher) Stop() {
	d.cancel()
	<-d.done
}

func (d *Dispatcher) run() {
	for {
		select {
		case <-d.ctx.Done():
			for {
				select {
				case ev := <-d.events:
					d.deliver(ev)
				default:
					d.logger.Infof("Event dispatcher stopped")
					return
				}
			}
		case ev := <-d.events:
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher) deliver(ev models.Event) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := s.Handle(ctx, ev)
		cancel()
		if err != nil {
			d.logger.Errorf("Sink %s failed on %s: %v", s.Name(), ev.Kind, err)
		}
	}
}
