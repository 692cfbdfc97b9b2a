package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/smukkama/openweather-panel/internal/pipeline"
	"github.com/smukkama/openweather-panel/internal/protocol"
	"github.com/smukkama/openweather-panel/internal/render"
)

const flushTimeout = 5 * time.Second

// PanelPublisher publishes rendered views as events on a Kafka topic. Events
// are buffered and written in batches; when the buffer is full new events
// are dropped.
type PanelPublisher struct {
	producer      *Producer
	batchSize     int
	flushInterval time.Duration
	events        chan *protocol.Event
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	mu       sync.Mutex
	location string
}

// NewPanelPublisher creates a publisher flushing every batchSize events or
// every flushInterval, whichever comes first
func NewPanelPublisher(producer *Producer, batchSize int, flushInterval time.Duration) *PanelPublisher {
	if batchSize <= 0 {
		batchSize = 10
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &PanelPublisher{
		producer:      producer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		events:        make(chan *protocol.Event, 4*batchSize),
		stopCh:        make(chan struct{}),
	}
}

// Start begins the flush loop
func (pp *PanelPublisher) Start(ctx context.Context) {
	pp.wg.Add(1)
	go pp.run(ctx)
}

// Stop flushes buffered events and stops the flush loop
func (pp *PanelPublisher) Stop() {
	pp.stopOnce.Do(func() {
		close(pp.stopCh)
		pp.wg.Wait()
	})
}

func (pp *PanelPublisher) run(ctx context.Context) {
	defer pp.wg.Done()

	var batch []*protocol.Event
	ticker := time.NewTicker(pp.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pp.stopCh:
			pp.flush(append(batch, pp.drain()...))
			return

		case <-ctx.Done():
			pp.flush(append(batch, pp.drain()...))
			return

		case <-ticker.C:
			if len(batch) > 0 {
				pp.flush(batch)
				batch = nil
			}

		case e := <-pp.events:
			batch = append(batch, e)
			if len(batch) >= pp.batchSize {
				pp.flush(batch)
				batch = nil
			}
		}
	}
}

func (pp *PanelPublisher) drain() []*protocol.Event {
	var out []*protocol.Event
	for {
		select {
		case e := <-pp.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func (pp *PanelPublisher) flush(batch []*protocol.Event) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := pp.producer.PublishEvents(ctx, batch...); err != nil {
		log.Printf("Panel publisher: %v", err)
	}
}

func (pp *PanelPublisher) publish(e *protocol.Event) {
	pp.mu.Lock()
	if e.Type == protocol.MsgTypeCurrent && e.Location != "" {
		pp.location = e.Location
	}
	if e.Location == "" {
		e.Location = pp.location
	}
	pp.mu.Unlock()

	select {
	case pp.events <- e:
	default:
		log.Printf("Panel event buffer full, dropping %s event", e.Type)
	}
}

func (pp *PanelPublisher) ShowRefreshing() {
	pp.publish(protocol.NewRefreshingEvent())
}

// ShowCurrent publishes the current view first so the panel event carries
// its location
func (pp *PanelPublisher) ShowCurrent(panel render.PanelView, current render.CurrentView) {
	pp.publish(protocol.NewCurrentEvent(current))
	pp.publish(protocol.NewPanelEvent(panel))
}

func (pp *PanelPublisher) ShowToday(items []render.ItemView) {
	pp.publish(protocol.NewTodayEvent(items))
}

func (pp *PanelPublisher) ShowForecast(days []render.DayView) {
	pp.publish(protocol.NewForecastEvent(days))
}

func (pp *PanelPublisher) HideForecast() {
	pp.publish(protocol.NewHiddenForecastEvent())
}

func (pp *PanelPublisher) Notify(title, message string) {
	pp.publish(protocol.NewNotificationEvent(title, message))
}

var (
	_ pipeline.Display  = (*PanelPublisher)(nil)
	_ pipeline.Notifier = (*PanelPublisher)(nil)
)
