// Package ws backs the #io_ws_dial/#io_ws_send/#io_ws_recv/#io_ws_close
// host facilities with gorilla/websocket client connections.
package ws

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Manager owns the live websocket connections a running program has
// dialed. Dial's handshake and Recv's wait are each bounded by timeout
// so a hung peer cannot wedge the driver forever; timeout <= 0 means no
// bound is applied.
type Manager struct {
	conns   map[int64]*websocket.Conn
	next    int64
	timeout time.Duration
}

func NewManager() *Manager {
	return &Manager{conns: map[int64]*websocket.Conn{}}
}

// NewManagerWithTimeout returns a Manager whose dial handshake and recv
// wait are each bounded by timeout.
func NewManagerWithTimeout(timeout time.Duration) *Manager {
	return &Manager{conns: map[int64]*websocket.Conn{}, timeout: timeout}
}

// Dial opens a client connection to url and returns an opaque handle.
func (m *Manager) Dial(url string) (int64, error) {
	dialer := websocket.DefaultDialer
	if m.timeout > 0 {
		d := *dialer
		d.HandshakeTimeout = m.timeout
		dialer = &d
	}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return 0, err
	}
	m.next++
	m.conns[m.next] = conn
	return m.next, nil
}

// Send writes payload as a single binary message.
func (m *Manager) Send(handle int64, payload []byte) error {
	conn, ok := m.conns[handle]
	if !ok {
		return fmt.Errorf("ws: invalid handle %d", handle)
	}
	return conn.WriteMessage(websocket.BinaryMessage, payload)
}

// Recv blocks for the next incoming message and returns its payload.
func (m *Manager) Recv(handle int64) ([]byte, error) {
	conn, ok := m.conns[handle]
	if !ok {
		return nil, fmt.Errorf("ws: invalid handle %d", handle)
	}
	if m.timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(m.timeout))
	}
	_, data, err := conn.ReadMessage()
	return data, err
}

// Close releases a handle. Closing an unknown handle is a no-op.
func (m *Manager) Close(handle int64) error {
	conn, ok := m.conns[handle]
	if !ok {
		return nil
	}
	delete(m.conns, handle)
	return conn.Close()
}
