// internal/protocol/protocol.go
package protocol

import (
	"context"
	"fmt"
	"time"
)

// Type identifies a transport a printer can be reached over.
type Type string

const (
	TypeTCP    Type = "tcp"
	TypeSerial Type = "serial"
	TypeUSB    Type = "usb"
)

// Connection is a raw byte transport to a printer. One Connection owns
// exactly one underlying handle for its entire lifetime; there is no
// pooling and no retry. Close must be safe to call from any state,
// including mid-failure, and must be idempotent.
type Connection interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data transfer. Reads block until the device answers unless the
	// transport was configured with a read timeout.
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context, maxBytes int) ([]byte, error)

	// Transport information
	Type() Type
}

// ConnectionError wraps a transport failure. The underlying error is
// surfaced unmodified through Unwrap; callers decide whether to retry,
// this package never does.
type ConnectionError struct {
	Transport Type
	Op        string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Transport, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func connErr(transport Type, op string, err error) error {
	return &ConnectionError{Transport: transport, Op: op, Err: err}
}

// Stats tracks per-connection transfer counters.
type Stats struct {
	BytesWritten int64     `json:"bytes_written"`
	BytesRead    int64     `json:"bytes_read"`
	ErrorCount   int64     `json:"error_count"`
	LastActivity time.Time `json:"last_activity"`
	IsConnected  bool      `json:"is_connected"`
}
