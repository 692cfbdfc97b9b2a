package connection

import (
	"fmt"
	"net"
	"sync"
	"time"
)

const writeTimeout = 5 * time.Second

// Subscriber holds information about a connected feed client
type Subscriber struct {
	ConnectionID  string
	Client        string
	ConnectedAt   time.Time
	LastHeardFrom time.Time
	Conn          net.Conn
	mu            sync.RWMutex
	writeMu       sync.Mutex
}

// UpdateLastHeardFrom updates the last activity timestamp
func (s *Subscriber) UpdateLastHeardFrom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastHeardFrom = time.Now()
}

// GetLastHeardFrom returns the last activity timestamp
func (s *Subscriber) GetLastHeardFrom() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastHeardFrom
}

// WriteLine writes data followed by a newline. Writes to one subscriber
// are serialized.
func (s *Subscriber) WriteLine(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := s.Conn.Write(append(data, '\n'))
	return err
}

// Manager manages all active feed subscribers
type Manager struct {
	clients  map[string]*Subscriber // key: connection_id
	byClient map[string][]string    // key: client name, value: []connection_id
	mu       sync.RWMutex
	maxConns int
}

// NewManager creates a new connection manager
func NewManager(maxConnections int) *Manager {
	return &Manager{
		clients:  make(map[string]*Subscriber),
		byClient: make(map[string][]string),
		maxConns: maxConnections,
	}
}

// Register adds a new subscriber
func (m *Manager) Register(connectionID, client string, conn net.Conn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.clients) >= m.maxConns {
		return ErrMaxConnectionsReached
	}

	if _, exists := m.clients[connectionID]; exists {
		return fmt.Errorf("connection ID %s already registered", connectionID)
	}

	now := time.Now()
	m.clients[connectionID] = &Subscriber{
		ConnectionID:  connectionID,
		Client:        client,
		ConnectedAt:   now,
		LastHeardFrom: now,
		Conn:          conn,
	}
	m.byClient[client] = append(m.byClient[client], connectionID)

	return nil
}

// Unregister removes a subscriber
func (m *Manager) Unregister(connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, exists := m.clients[connectionID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}

	if connIDs, ok := m.byClient[sub.Client]; ok {
		for i, id := range connIDs {
			if id == connectionID {
				m.byClient[sub.Client] = append(connIDs[:i], connIDs[i+1:]...)
				break
			}
		}
		if len(m.byClient[sub.Client]) == 0 {
			delete(m.byClient, sub.Client)
		}
	}

	delete(m.clients, connectionID)
	return nil
}

// Get retrieves a subscriber by connection ID
func (m *Manager) Get(connectionID string) (*Subscriber, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, exists := m.clients[connectionID]
	return sub, exists
}

// UpdateActivity updates the last heard from timestamp for a connection
func (m *Manager) UpdateActivity(connectionID string) error {
	m.mu.RLock()
	sub, exists := m.clients[connectionID]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}

	sub.UpdateLastHeardFrom()
	return nil
}

// Send writes one line to a single subscriber
func (m *Manager) Send(connectionID string, data []byte) error {
	sub, ok := m.Get(connectionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}
	return sub.WriteLine(data)
}

// Broadcast writes one line to every subscriber and returns the IDs whose
// write failed. Failed connections are closed so their read loops exit.
func (m *Manager) Broadcast(data []byte) []string {
	m.mu.RLock()
	subs := make([]*Subscriber, 0, len(m.clients))
	for _, sub := range m.clients {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var failed []string
	for _, sub := range subs {
		if err := sub.WriteLine(data); err != nil {
			failed = append(failed, sub.ConnectionID)
			sub.Conn.Close()
		}
	}
	return failed
}

// CloseAll closes every subscriber connection
func (m *Manager) CloseAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sub := range m.clients {
		sub.Conn.Close()
	}
}

// Count returns the total number of active connections
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Stats returns statistics about the connection manager
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byClient := make(map[string]int, len(m.byClient))
	for client, connIDs := range m.byClient {
		byClient[client] = len(connIDs)
	}
	return ManagerStats{
		TotalConnections: len(m.clients),
		UniqueClients:    len(m.byClient),
		MaxConnections:   m.maxConns,
		ByClient:         byClient,
	}
}

// ManagerStats contains statistics about the connection manager
type ManagerStats struct {
	TotalConnections int
	UniqueClients    int
	MaxConnections   int
	ByClient         map[string]int
}

var (
	ErrMaxConnectionsReached = &ConnectionError{"maximum connections reached"}
	ErrConnectionNotFound    = &ConnectionError{"connection not found"}
)

// ConnectionError represents a connection error
type ConnectionError struct {
	msg string
}

func (e *ConnectionError) Error() string {
	return e.msg
}
