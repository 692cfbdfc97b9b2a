package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smukkama/openweather-panel/internal/connection"
	"github.com/smukkama/openweather-panel/internal/pipeline"
	"github.com/smukkama/openweather-panel/internal/protocol"
	"github.com/smukkama/openweather-panel/internal/render"
	"github.com/smukkama/openweather-panel/internal/timer"
	"github.com/smukkama/openweather-panel/pkg/config"
)

const readTimeout = 30 * time.Second

// Handler executes feed commands and exposes the latest rendered views
type Handler interface {
	Handle(ctx context.Context, msg interface{}) (string, error)
	Views() pipeline.Views
}

// FeedServer streams rendered panel views to line-oriented TCP subscribers.
// It is a pipeline Display and Notifier.
type FeedServer struct {
	config       *config.FeedConfig
	connManager  *connection.Manager
	timerManager *timer.Scheduler
	handler      Handler
	listener     net.Listener
	wg           sync.WaitGroup
	stopCh       chan struct{}
	stopOnce     sync.Once
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewFeedServer creates a new feed server. The handler may be set later
// with SetHandler, before Start.
func NewFeedServer(cfg *config.FeedConfig, connManager *connection.Manager, timerManager *timer.Scheduler, handler Handler) *FeedServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &FeedServer{
		config:       cfg,
		connManager:  connManager,
		timerManager: timerManager,
		handler:      handler,
		stopCh:       make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SetHandler sets the command handler
func (s *FeedServer) SetHandler(h Handler) {
	s.handler = h
}

// Start starts the TCP listener
func (s *FeedServer) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start feed server: %w", err)
	}

	s.listener = listener
	log.Printf("Feed server listening on %s", listener.Addr())

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Addr returns the listener address, or nil before Start
func (s *FeedServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every subscriber, then waits for the
// connection goroutines
func (s *FeedServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.cancel()

		if s.listener != nil {
			s.listener.Close()
		}
		s.connManager.CloseAll()

		s.wg.Wait()
		log.Println("Feed server stopped")
	})
}

func (s *FeedServer) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				log.Printf("Failed to accept connection: %v", err)
				continue
			}
		}

		if s.connManager.Count() >= s.config.MaxConnections {
			log.Println("Maximum connections reached, rejecting connection")
			s.sendMessage(conn, protocol.NewErrorAck(connection.ErrMaxConnectionsReached.Error()))
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *FeedServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	connectionID := uuid.New().String()
	log.Printf("New connection: %s from %s", connectionID, conn.RemoteAddr())

	conn.SetReadDeadline(time.Now().Add(s.config.IdentifyTimeout))

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		log.Printf("Failed to read subscribe message: %v", err)
		return
	}

	msg, err := protocol.ParseMessage([]byte(line))
	if err != nil {
		log.Printf("Failed to parse subscribe message: %v", err)
		s.sendMessage(conn, protocol.NewErrorAck("invalid message format"))
		return
	}

	subscribeMsg, ok := msg.(*protocol.SubscribeMessage)
	if !ok {
		log.Printf("Expected subscribe message, got %T", msg)
		s.sendMessage(conn, protocol.NewErrorAck("expected subscribe message"))
		return
	}

	if err := s.connManager.Register(connectionID, subscribeMsg.Client, conn); err != nil {
		log.Printf("Failed to register subscriber: %v", err)
		s.sendMessage(conn, protocol.NewErrorAck(err.Error()))
		return
	}
	defer s.connManager.Unregister(connectionID)

	timerID := inactivityTimerID(connectionID)
	defer s.timerManager.Cancel(timerID)

	log.Printf("Subscriber identified: %s (client=%s)", connectionID, subscribeMsg.Client)

	if err := s.send(connectionID, protocol.NewAckMessage(protocol.AckStatusSubscribed)); err != nil {
		log.Printf("Failed to send ack: %v", err)
		return
	}
	s.replayViews(connectionID)

	s.scheduleInactivityTimer(connectionID)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		line, err := reader.ReadString('\n')
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			log.Printf("Connection %s closed: %v", connectionID, err)
			return
		}

		msg, err := protocol.ParseMessage([]byte(line))
		if err != nil {
			log.Printf("Failed to parse message: %v", err)
			s.send(connectionID, protocol.NewErrorAck(err.Error()))
			continue
		}

		if err := s.handleMessage(connectionID, msg); err != nil {
			log.Printf("Failed to handle message: %v", err)
		}

		s.connManager.UpdateActivity(connectionID)
		s.scheduleInactivityTimer(connectionID)
	}
}

func (s *FeedServer) handleMessage(connectionID string, msg interface{}) error {
	switch msg.(type) {
	case *protocol.KeepaliveMessage:
		return s.send(connectionID, protocol.NewAckMessage(protocol.AckStatusAlive))

	case *protocol.SubscribeMessage:
		return s.send(connectionID, protocol.NewErrorAck("already subscribed"))

	default:
		if s.handler == nil {
			return s.send(connectionID, protocol.NewErrorAck("no handler"))
		}
		status, err := s.handler.Handle(s.ctx, msg)
		if err != nil && status == "" {
			s.send(connectionID, protocol.NewErrorAck(err.Error()))
			return err
		}
		return s.send(connectionID, protocol.NewAckMessage(status))
	}
}

// replayViews sends the last rendered views so a new subscriber does not
// wait for the next refresh
func (s *FeedServer) replayViews(connectionID string) {
	if s.handler == nil {
		return
	}
	for _, e := range EventsFromViews(s.handler.Views()) {
		if err := s.send(connectionID, e); err != nil {
			log.Printf("Failed to replay views to %s: %v", connectionID, err)
			return
		}
	}
}

// EventsFromViews converts a pipeline view snapshot into feed events in
// display order
func EventsFromViews(v pipeline.Views) []*protocol.Event {
	var events []*protocol.Event
	if v.Refreshing {
		events = append(events, protocol.NewRefreshingEvent())
	}
	if v.Panel != nil {
		events = append(events, protocol.NewPanelEvent(*v.Panel))
	}
	if v.Current != nil {
		events = append(events, protocol.NewCurrentEvent(*v.Current))
	}
	if v.Today != nil {
		events = append(events, protocol.NewTodayEvent(v.Today))
	}
	if v.ForecastHidden {
		events = append(events, protocol.NewHiddenForecastEvent())
	} else if v.Days != nil {
		events = append(events, protocol.NewForecastEvent(v.Days))
	}
	return events
}

func (s *FeedServer) send(connectionID string, msg interface{}) error {
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return err
	}
	return s.connManager.Send(connectionID, data)
}

func (s *FeedServer) sendMessage(conn net.Conn, msg interface{}) error {
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err = conn.Write(append(data, '\n'))
	return err
}

func (s *FeedServer) broadcast(e *protocol.Event) {
	data, err := protocol.EncodeEvent(e)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", e.Type, err)
		return
	}
	for _, id := range s.connManager.Broadcast(data) {
		log.Printf("Dropped subscriber %s after failed write", id)
	}
}

func inactivityTimerID(connectionID string) string {
	return "feed-inactivity-" + connectionID
}

func (s *FeedServer) scheduleInactivityTimer(connectionID string) {
	callback := func() {
		sub, exists := s.connManager.Get(connectionID)
		if !exists {
			return
		}
		log.Printf("Inactivity timeout for connection %s (client=%s, idle %v)",
			connectionID, sub.Client, time.Since(sub.GetLastHeardFrom()).Round(time.Second))

		// Unregister happens in the connection's deferred cleanup
		sub.Conn.Close()
	}

	if err := s.timerManager.After(inactivityTimerID(connectionID), s.config.InactivityTimeout, callback); err != nil {
		log.Printf("Failed to schedule inactivity timer: %v", err)
	}
}

func (s *FeedServer) ShowRefreshing() {
	s.broadcast(protocol.NewRefreshingEvent())
}

func (s *FeedServer) ShowCurrent(panel render.PanelView, current render.CurrentView) {
	s.broadcast(protocol.NewPanelEvent(panel))
	s.broadcast(protocol.NewCurrentEvent(current))
}

func (s *FeedServer) ShowToday(items []render.ItemView) {
	s.broadcast(protocol.NewTodayEvent(items))
}

func (s *FeedServer) ShowForecast(days []render.DayView) {
	s.broadcast(protocol.NewForecastEvent(days))
}

func (s *FeedServer) HideForecast() {
	s.broadcast(protocol.NewHiddenForecastEvent())
}

// Notify forwards a user-facing message to every subscriber
func (s *FeedServer) Notify(title, message string) {
	s.broadcast(protocol.NewNotificationEvent(title, message))
}

var (
	_ pipeline.Display  = (*FeedServer)(nil)
	_ pipeline.Notifier = (*FeedServer)(nil)
)
