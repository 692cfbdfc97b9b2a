package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/openweather-panel/internal/protocol"
	"github.com/smukkama/openweather-panel/internal/render"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]kafka.Message
	err     error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, append([]kafka.Message(nil), msgs...))
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []kafka.Message
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

func (w *fakeWriter) batchCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.batches)
}

type fakeReader struct {
	msgs      chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type recordingHandler struct {
	mu   sync.Mutex
	cmds []interface{}
}

func (h *recordingHandler) Handle(ctx context.Context, msg interface{}) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cmds = append(h.cmds, msg)
	return protocol.AckStatusAccepted, nil
}

func (h *recordingHandler) handled() []interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]interface{}(nil), h.cmds...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

func TestProducer_PublishEvents(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}

	e := protocol.NewCurrentEvent(render.CurrentView{Location: "Moscow"})
	if err := p.PublishEvents(context.Background(), e, protocol.NewRefreshingEvent()); err != nil {
		t.Fatalf("PublishEvents failed: %v", err)
	}
	if w.batchCount() != 1 {
		t.Fatalf("Expected one batch, got %d", w.batchCount())
	}
	msgs := w.messages()
	if len(msgs) != 2 || string(msgs[0].Key) != "Moscow" || !msgs[0].Time.Equal(e.At) {
		t.Errorf("Unexpected messages %+v", msgs)
	}
	if len(msgs[0].Headers) != 1 || msgs[0].Headers[0].Key != HeaderEventType || string(msgs[0].Headers[0].Value) != "current" {
		t.Errorf("Unexpected headers %+v", msgs[0].Headers)
	}

	if err := p.PublishEvents(context.Background()); err != nil || w.batchCount() != 1 {
		t.Errorf("Empty publish should not write, err=%v batches=%d", err, w.batchCount())
	}

	w.err = errors.New("leader not available")
	if err := p.PublishEvents(context.Background(), protocol.NewRefreshingEvent()); err == nil {
		t.Error("Expected write error")
	}
}

func TestConsumer_LagWithoutReader(t *testing.T) {
	c := &Consumer{reader: &fakeReader{}}
	if lag := c.Lag(); lag != 0 {
		t.Errorf("Expected zero lag, got %d", lag)
	}
}

func TestEnsureTopics_NoBrokers(t *testing.T) {
	if err := EnsureTopics(nil, 1, 1, "weather.panel"); err == nil {
		t.Error("Expected error without brokers")
	}
}

func TestPanelPublisher_BatchesBySize(t *testing.T) {
	w := &fakeWriter{}
	pp := NewPanelPublisher(&Producer{writer: w}, 3, time.Hour)
	pp.Start(context.Background())
	defer pp.Stop()

	pp.ShowRefreshing()
	pp.ShowCurrent(render.PanelView{Text: "3 °C"}, render.CurrentView{Location: "Oslo"})

	waitFor(t, func() bool { return w.batchCount() == 1 })

	msgs := w.messages()
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	current, err := protocol.DecodeEvent(msgs[1].Value)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if current.Type != protocol.MsgTypeCurrent || current.Location != "Oslo" {
		t.Errorf("Unexpected current event %+v", current)
	}
	panel, _ := protocol.DecodeEvent(msgs[2].Value)
	if panel.Location != "Oslo" || string(msgs[2].Key) != "Oslo" {
		t.Errorf("Panel event should inherit the location, got %q key %q", panel.Location, msgs[2].Key)
	}
}

func TestPanelPublisher_FlushesOnInterval(t *testing.T) {
	w := &fakeWriter{}
	pp := NewPanelPublisher(&Producer{writer: w}, 100, 20*time.Millisecond)
	pp.Start(context.Background())
	defer pp.Stop()

	pp.HideForecast()

	waitFor(t, func() bool { return len(w.messages()) == 1 })
	e, _ := protocol.DecodeEvent(w.messages()[0].Value)
	if e.Type != protocol.MsgTypeForecast || !e.Hidden {
		t.Errorf("Expected hidden forecast event, got %+v", e)
	}
}

func TestPanelPublisher_StopFlushesPending(t *testing.T) {
	w := &fakeWriter{}
	pp := NewPanelPublisher(&Producer{writer: w}, 100, time.Hour)
	pp.Start(context.Background())

	pp.ShowToday([]render.ItemView{{Time: "12:00"}})
	pp.ShowForecast([]render.DayView{{Label: "Tomorrow"}})
	pp.Notify("OpenWeather", "hello")
	pp.Stop()

	if n := len(w.messages()); n != 3 {
		t.Errorf("Expected 3 flushed messages on stop, got %d", n)
	}
	pp.Stop()
}

func TestCommandConsumer_Run(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafka.Message, 4)}
	h := &recordingHandler{}
	cc := NewCommandConsumer(&Consumer{reader: r}, h)

	r.msgs <- kafka.Message{Offset: 1, Value: []byte(`{"type":"refresh"}`)}
	r.msgs <- kafka.Message{Offset: 2, Value: []byte(`not json`)}
	r.msgs <- kafka.Message{Offset: 3, Value: []byte(`{"type":"keepalive"}`)}
	r.msgs <- kafka.Message{Offset: 4, Value: []byte(`{"type":"select","index":0}`)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cc.Run(ctx) }()

	waitFor(t, func() bool { return r.commitCount() == 4 })
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	cmds := h.handled()
	if len(cmds) != 2 {
		t.Fatalf("Expected 2 handled commands, got %d", len(cmds))
	}
	if _, ok := cmds[0].(*protocol.RefreshMessage); !ok {
		t.Errorf("Expected refresh first, got %T", cmds[0])
	}
	if _, ok := cmds[1].(*protocol.SelectMessage); !ok {
		t.Errorf("Expected select second, got %T", cmds[1])
	}
}
