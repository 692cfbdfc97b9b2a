package notification

import (
	"log"
	"sync"
	"time"

	"github.com/smukkama/openweather-panel/internal/pipeline"
)

// LogNotifier writes notifications to the process log
type LogNotifier struct{}

func (LogNotifier) Notify(title, message string) {
	log.Printf("[%s] %s", title, message)
}

// Multi fans a notification out to every notifier in order
func Multi(notifiers ...pipeline.Notifier) pipeline.Notifier {
	return multi(notifiers)
}

type multi []pipeline.Notifier

func (m multi) Notify(title, message string) {
	for _, n := range m {
		n.Notify(title, message)
	}
}

// Deduplicator drops a notification identical to one forwarded less than
// window ago
type Deduplicator struct {
	next   pipeline.Notifier
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

// NewDeduplicator wraps next
func NewDeduplicator(next pipeline.Notifier, window time.Duration) *Deduplicator {
	return &Deduplicator{
		next:   next,
		window: window,
		now:    time.Now,
		sent:   make(map[string]time.Time),
	}
}

func (d *Deduplicator) Notify(title, message string) {
	key := title + "\x00" + message
	now := d.now()

	d.mu.Lock()
	last, seen := d.sent[key]
	if seen && now.Sub(last) < d.window {
		d.mu.Unlock()
		return
	}
	d.sent[key] = now
	for k, t := range d.sent {
		if now.Sub(t) >= d.window {
			delete(d.sent, k)
		}
	}
	d.mu.Unlock()

	d.next.Notify(title, message)
}

var (
	_ pipeline.Notifier = LogNotifier{}
	_ pipeline.Notifier = (*Deduplicator)(nil)
)
