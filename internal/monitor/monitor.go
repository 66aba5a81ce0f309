// Package monitor maintains the long-lived OVSDB subscription that watches
// controller connectivity. Notifications arrive pipelined on one stream
// socket; the session frames them by the parser's end offset and slides
// its receive buffer in place.
package monitor

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"github.com/inango/chandler/internal/config"
	"github.com/inango/chandler/internal/jrpc"
	"github.com/inango/chandler/internal/kernel/ports"
	"github.com/inango/chandler/internal/logging"
	"github.com/inango/chandler/internal/probe"
)

// subscribeRequest is the fixed monitor subscription for the Controller
// table's is_connected column.
const subscribeRequest = `{"id":0,"method":"monitor","params":["Open_vSwitch",null,{"Controller":[{"columns":["is_connected"]}]}]}`

// bufferSize is the receive buffer capacity; one byte stays reserved so a
// full buffer is distinguishable from a large frame still in flight.
const bufferSize = 32768

// DisconnectHandler is invoked when a notification reports a controller
// with is_connected == false, at most once per framed notification.
type DisconnectHandler func()

// Session is one live monitor subscription. At most one exists at a time;
// the engine destroys and recreates it on any read failure.
type Session struct {
	conn         ports.Conn
	log          *logging.Logger
	onDisconnect DisconnectHandler
	buf          [bufferSize]byte
	size         int
}

// Create connects to the database notification socket at sockPath, performs
// the subscription handshake and returns the live session. The configured
// receive timeout applies to the handshake only; afterwards the engine
// blocks on poll readiness with no timeout. The initial snapshot in the
// handshake reply flows through the same change handler as notifications.
func Create(cfg *config.Config, log *logging.Logger, dialer ports.Dialer, onDisconnect DisconnectHandler) (*Session, probe.QueryStatus) {
	conn, err := dialer.ConnectStream(cfg.UnixsockDB)
	if err != nil {
		log.Errorf("failed to connect to unix socket %s: %v", cfg.UnixsockDB, err)
		return nil, classifyConnectError(err)
	}

	timeout := time.Duration(cfg.ReceiveTimeout) * time.Millisecond
	if err := conn.SetRecvTimeout(timeout); err != nil {
		log.Errorf("failed to set receive timeout: %v", err)
		conn.Close()
		return nil, probe.SocketError
	}

	s := &Session{
		conn:         conn,
		log:          log,
		onDisconnect: onDisconnect,
	}

	status := s.handshake()
	if status != probe.Success {
		conn.Close()
		return nil, status
	}

	// Steady state is gated on poll readiness; drop the timeout so a
	// quiet database never looks like a failure.
	if err := conn.SetRecvTimeout(0); err != nil {
		log.Errorf("failed to clear receive timeout: %v", err)
		conn.Close()
		return nil, probe.SocketError
	}

	return s, probe.Success
}

// Fd returns the session's pollable descriptor.
func (s *Session) Fd() int {
	return s.conn.Fd()
}

// Close destroys the session.
func (s *Session) Close() {
	s.conn.Close()
}

// handshake sends the subscription request and receives until the reply
// parses. Bytes past the reply are retained for subsequent notifications.
func (s *Session) handshake() probe.QueryStatus {
	if n, err := s.conn.Send([]byte(subscribeRequest)); err != nil || n != len(subscribeRequest) {
		s.log.Errorf("failed to send a request: %s", subscribeRequest)
		return probe.SocketError
	}

	s.log.Debugf("sent a request: %s", subscribeRequest)

	total := 0
	var msg jrpc.Message

	for {
		count, err := s.conn.Recv(s.buf[total : bufferSize-1])
		if err != nil {
			s.log.Debugf("recv failed: %v", err)
			if errors.Is(err, unix.EAGAIN) {
				return probe.ReceiveTimeout
			}
			return probe.SocketError
		}

		if count == 0 {
			s.log.Debugf("connection closed")
			return probe.ReceiveTimeout
		}

		s.log.Debugf("received %d bytes", count)
		total += count

		if jrpc.Parse(&msg, s.buf[:total]) {
			if msg.ID != 0 || msg.Type != jrpc.TypeResponse {
				return probe.ProtocolError
			}

			s.log.Debugf("received valid JSON in response")

			status := probe.Success
			switch {
			case msg.Result >= 0:
				// The reply body is the initial snapshot: every row
				// arrives as a "new" delta.
				s.handleChanges(s.buf[:total], msg.Tokens[:msg.Count], msg.Result)
			case msg.Error >= 0:
				status = probe.ReturnedError
			}

			// Keep any pipelined bytes already received past the reply.
			s.size = total - msg.End
			copy(s.buf[:], s.buf[msg.End:total])

			s.handleNotifications()
			return status
		}

		if total == bufferSize-1 {
			// No space left to receive data.
			return probe.SystemError
		}
	}
}

// OnRead drains the socket once and parses every complete notification in
// the buffer. Any status but Success tells the engine to destroy the
// session and recreate it after a back-off.
func (s *Session) OnRead() probe.QueryStatus {
	count, err := s.conn.Recv(s.buf[s.size : bufferSize-1])
	if err != nil {
		s.log.Debugf("recv failed: %v", err)
		if errors.Is(err, unix.EAGAIN) {
			return probe.ReceiveTimeout
		}
		return probe.SocketError
	}

	if count == 0 {
		s.log.Debugf("connection closed")
		return probe.ConnectionClosed
	}

	s.log.Debugf("received %d bytes", count)
	s.size += count

	s.handleNotifications()

	if s.size == bufferSize-1 {
		// No space left to receive data.
		return probe.SystemError
	}

	return probe.Success
}

// handleNotifications consumes complete framed objects from the front of
// the buffer, sliding it in place after each one.
func (s *Session) handleNotifications() {
	s.log.Debugf("monitor.buffer.size: %d", s.size)

	var msg jrpc.Message
	for s.size > 0 && jrpc.Parse(&msg, s.buf[:s.size]) {
		if msg.ID == jrpc.IDNull && msg.Type == jrpc.TypeUpdate && msg.Params >= 0 {
			t := msg.Tokens[:msg.Count]
			params := &t[msg.Params]

			if params.Type == jrpc.TypeArray && params.Size > 1 {
				// The second params element carries the row changes.
				i := jrpc.NextIndex(t, msg.Count, msg.Params+1)
				s.handleChanges(s.buf[:s.size], t, i)
			}
		}

		s.size -= msg.End
		copy(s.buf[:], s.buf[msg.End:msg.End+s.size])

		s.log.Debugf("monitor.buffer.size: %d", s.size)
	}
}

// handleChanges locates the Controller table in a change object and scans
// its rows.
func (s *Session) handleChanges(js []byte, t []jrpc.Token, index int) {
	count := len(t) - index
	tt := t[index:]

	if tt[0].Type != jrpc.TypeObject || tt[0].Size == 0 {
		return
	}

	upper := jrpc.NextIndex(tt, count, 0)
	for i := 1; i < upper; i = jrpc.NextIndex(tt, upper, i+1) {
		if jrpc.EqualString(js, &tt[i], "Controller") {
			s.handleControllerChanges(js, tt, i+1, upper)
			break
		}
	}
}

// handleControllerChanges scans the controller row map. The first row
// whose "new" delta reports is_connected == false fires the disconnect
// handler; remaining rows are not inspected.
func (s *Session) handleControllerChanges(js []byte, t []jrpc.Token, index, limit int) {
	count := limit - index
	tt := t[index:]

	upper := jrpc.NextIndex(tt, count, 0)

	for i := 1; i < upper; i = jrpc.NextIndex(tt, upper, i) {
		// i is the row uuid key.
		if tt[i].Type != jrpc.TypeString {
			return
		}

		i++

		// i is the row value: {"new"|"old": {columns}}.
		if i >= upper || tt[i].Type != jrpc.TypeObject || tt[i].Size == 0 {
			return
		}

		// Only a "new" delta reports current state; "old" rows are
		// pre-images and deletions.
		if i+2 < upper &&
			jrpc.EqualString(js, &tt[i+1], "new") &&
			tt[i+1].Size == 1 &&
			tt[i+2].Type == jrpc.TypeObject {

			row := tt[i+2:]
			rowCount := jrpc.NextIndex(row, upper-(i+2), 0)

			for j := 1; j < rowCount; j = jrpc.NextIndex(row, rowCount, j+1) {
				if !jrpc.EqualString(js, &row[j], "is_connected") {
					continue
				}

				if j+1 < rowCount && jrpc.EqualPrimitive(js, &row[j+1], "false") {
					s.log.Debugf("found tables::controller::is_connected == false")
					if s.onDisconnect != nil {
						s.onDisconnect()
					}
					return // first located is enough
				}

				break // let's look for the next row
			}
		}
	}
}

// classifyConnectError maps a connect errno onto the probe taxonomy.
func classifyConnectError(err error) probe.QueryStatus {
	switch {
	case errors.Is(err, unix.ETIMEDOUT),
		errors.Is(err, unix.ENETUNREACH),
		errors.Is(err, unix.ECONNREFUSED),
		errors.Is(err, unix.EADDRNOTAVAIL):
		return probe.NoConnection
	default:
		return probe.SocketError
	}
}
