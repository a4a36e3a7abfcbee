package wearables

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockRepo is an in-memory connections store used by unit tests.
type MockRepo struct {
	mu          sync.Mutex
	nextID      int
	Connections map[int]*Connection

	FailWith error
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		nextID:      1,
		Connections: make(map[int]*Connection),
	}
}

func (m *MockRepo) Add(_ context.Context, conn Connection) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}

	for _, existing := range m.Connections {
		if existing.UserID == conn.UserID && existing.Provider == conn.Provider {
			existing.AccessToken = conn.AccessToken
			existing.Status = StatusConnected
			existing.LastError = nil
			added := *existing
			return &added, nil
		}
	}

	conn.ID = m.nextID
	m.nextID++
	conn.Status = StatusConnected
	m.Connections[conn.ID] = &conn

	added := conn
	return &added, nil
}

func (m *MockRepo) ListForUser(_ context.Context, userID string) ([]Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}

	var connections []Connection
	for _, conn := range m.Connections {
		if conn.UserID == userID {
			connections = append(connections, *conn)
		}
	}
	sortConnections(connections)
	return connections, nil
}

func (m *MockRepo) ListConnected(_ context.Context, userID string) ([]Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return nil, m.FailWith
	}

	var connections []Connection
	for _, conn := range m.Connections {
		if conn.UserID == userID && conn.Status != StatusDisconnected {
			connections = append(connections, *conn)
		}
	}
	sortConnections(connections)
	return connections, nil
}

func sortConnections(connections []Connection) {
	sort.Slice(connections, func(i, j int) bool {
		return connections[i].ID < connections[j].ID
	})
}

func (m *MockRepo) MarkSynced(_ context.Context, id int, syncedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.Connections[id]
	if !ok {
		return ErrConnectionNotFound
	}
	conn.Status = StatusConnected
	conn.LastSyncAt = &syncedAt
	conn.LastError = nil
	return nil
}

func (m *MockRepo) MarkError(_ context.Context, id int, syncErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.Connections[id]
	if !ok {
		return ErrConnectionNotFound
	}
	conn.Status = StatusError
	conn.LastError = &syncErr
	return nil
}

func (m *MockRepo) Disconnect(_ context.Context, userID, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, conn := range m.Connections {
		if conn.UserID == userID && conn.Provider == provider {
			conn.Status = StatusDisconnected
			return nil
		}
	}
	return ErrConnectionNotFound
}
