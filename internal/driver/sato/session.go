// internal/driver/sato/session.go
package sato

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"label-service/internal/protocol"
)

// State tracks where a Session is in the status mode 5 lifecycle.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StatePrepared State = "prepared"
	StateDone     State = "done"
)

// StateError reports a session method called from the wrong state.
type StateError struct {
	Op       string
	State    State
	Expected State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("sato: %s requires state %q, session is %q", e.Op, e.Expected, e.State)
}

// Session drives one print run against a SATO printer in status mode 5.
// The lifecycle is strict: Open, Prepare, any number of Sends, Finish,
// Close. A session is single-use; after Finish only Close is legal.
//
// The printer answers each handshake request with a short status frame.
// The session drains it with one bounded read and does not interpret
// it; print failures surface on the device, not here.
type Session struct {
	conn   protocol.Connection
	logger *zap.Logger
	mutex  sync.Mutex
	state  State
}

// NewSession creates a session over the given transport. The session
// takes ownership of the connection: Close closes it.
func NewSession(conn protocol.Connection, logger *zap.Logger) *Session {
	return &Session{
		conn:   conn,
		logger: logger.With(zap.String("component", "sato_session")),
		state:  StateClosed,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Open connects the transport. On failure the session stays Closed.
func (s *Session) Open(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != StateClosed {
		return &StateError{Op: "Open", State: s.state, Expected: StateClosed}
	}

	if err := s.conn.Open(ctx); err != nil {
		s.logger.Error("Failed to open printer connection", zap.Error(err))
		return fmt.Errorf("failed to open printer connection: %w", err)
	}

	s.state = StateOpen
	s.logger.Info("Printer session opened")
	return nil
}

// Prepare initializes the printer and arms it for label data. Any
// transport failure closes the connection and returns the session to
// Closed; a half-initialized printer link is not resumable.
func (s *Session) Prepare(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != StateOpen {
		return &StateError{Op: "Prepare", State: s.state, Expected: StateOpen}
	}

	if err := s.conn.Write(ctx, STATUS5_COMMANDS.INITIALIZE); err != nil {
		s.abort()
		return fmt.Errorf("failed to send initialize packet: %w", err)
	}

	if err := s.conn.Write(ctx, STATUS5_COMMANDS.PRINT_START); err != nil {
		s.abort()
		return fmt.Errorf("failed to send print start packet: %w", err)
	}

	if _, err := s.conn.Read(ctx, ackBufferSize); err != nil {
		s.abort()
		return fmt.Errorf("failed to read printer status: %w", err)
	}

	s.state = StatePrepared
	s.logger.Info("Printer session prepared")
	return nil
}

// Send transmits an encoded label stream. Valid only while Prepared;
// may be called repeatedly for multi-label runs.
func (s *Session) Send(ctx context.Context, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != StatePrepared {
		return &StateError{Op: "Send", State: s.state, Expected: StatePrepared}
	}

	if err := s.conn.Write(ctx, data); err != nil {
		s.abort()
		return fmt.Errorf("failed to send label data: %w", err)
	}

	s.logger.Debug("Label data sent", zap.Int("bytes", len(data)))
	return nil
}

// Finish signals end of the print run and drains the final status. The
// session moves to Done; only Close remains legal.
func (s *Session) Finish(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != StatePrepared {
		return &StateError{Op: "Finish", State: s.state, Expected: StatePrepared}
	}

	if err := s.conn.Write(ctx, STATUS5_COMMANDS.PRINT_DONE); err != nil {
		s.abort()
		return fmt.Errorf("failed to send print done packet: %w", err)
	}

	if _, err := s.conn.Read(ctx, ackBufferSize); err != nil {
		s.abort()
		return fmt.Errorf("failed to read final printer status: %w", err)
	}

	s.state = StateDone
	s.logger.Info("Printer session finished")
	return nil
}

// Close releases the transport. Safe from any state, idempotent, and
// the only legal call after an error.
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == StateClosed {
		return nil
	}

	err := s.conn.Close()
	s.state = StateClosed

	if err != nil {
		s.logger.Error("Failed to close printer connection", zap.Error(err))
		return fmt.Errorf("failed to close printer connection: %w", err)
	}

	s.logger.Info("Printer session closed")
	return nil
}

// abort tears the connection down after a mid-handshake failure.
// Caller holds the mutex.
func (s *Session) abort() {
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("Failed to close connection during abort", zap.Error(err))
	}
	s.state = StateClosed
}
