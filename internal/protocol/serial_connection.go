// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// SerialConnection implements Connection over RS-232C. SATO printers
// expose a serial port alongside the LAN interface; the session protocol
// is byte-identical on both.
type SerialConnection struct {
	config *SerialConfig
	port   serial.Port
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool
	stats  *Stats
}

// NewSerialConnection creates a serial transport for the given port.
func NewSerialConnection(config *SerialConfig, logger *zap.Logger) Connection {
	return &SerialConnection{
		config: config,
		logger: logger.With(
			zap.String("transport", "serial"),
			zap.String("port", config.Port),
		),
		stats: &Stats{},
	}
}

// Open opens and configures the serial port.
func (sc *SerialConnection) Open(ctx context.Context) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.isOpen {
		return nil
	}

	sc.logger.Info("Opening serial port",
		zap.Int("baud_rate", sc.config.BaudRate),
	)

	mode := &serial.Mode{
		BaudRate: sc.config.BaudRate,
		DataBits: sc.config.DataBits,
		StopBits: serial.StopBits(sc.config.StopBits),
	}
	switch sc.config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	port, err := serial.Open(sc.config.Port, mode)
	if err != nil {
		sc.stats.ErrorCount++
		sc.logger.Error("Failed to open serial port", zap.Error(err))
		return connErr(TypeSerial, "open", err)
	}

	if sc.config.Timeout > 0 {
		if err := port.SetReadTimeout(sc.config.Timeout); err != nil {
			port.Close()
			return connErr(TypeSerial, "open", err)
		}
	}

	sc.port = port
	sc.isOpen = true
	sc.stats.IsConnected = true
	sc.stats.LastActivity = time.Now()

	sc.logger.Info("Serial port opened")
	return nil
}

// Close releases the port. Idempotent, safe from any state.
func (sc *SerialConnection) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return nil
	}

	err := sc.port.Close()
	sc.port = nil
	sc.isOpen = false
	sc.stats.IsConnected = false

	if err != nil {
		sc.logger.Error("Failed to close serial port", zap.Error(err))
		return connErr(TypeSerial, "close", err)
	}

	sc.logger.Info("Serial port closed")
	return nil
}

// IsOpen reports whether the port is open.
func (sc *SerialConnection) IsOpen() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.isOpen && sc.port != nil
}

// Write sends raw bytes to the printer.
func (sc *SerialConnection) Write(ctx context.Context, data []byte) error {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	if !sc.isOpen || sc.port == nil {
		return connErr(TypeSerial, "write", fmt.Errorf("port not open"))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	n, err := sc.port.Write(data)
	if err != nil {
		sc.stats.ErrorCount++
		sc.logger.Error("Serial write failed", zap.Error(err))
		return connErr(TypeSerial, "write", err)
	}
	if n != len(data) {
		return connErr(TypeSerial, "write", fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data)))
	}

	sc.stats.BytesWritten += int64(n)
	sc.stats.LastActivity = time.Now()
	sc.logger.Debug("Serial write completed", zap.Int("bytes", n))
	return nil
}

// Read performs one blocking read of up to maxBytes.
func (sc *SerialConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	if !sc.isOpen || sc.port == nil {
		return nil, connErr(TypeSerial, "read", fmt.Errorf("port not open"))
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	buffer := make([]byte, maxBytes)
	n, err := sc.port.Read(buffer)
	if err != nil && err != io.EOF {
		sc.stats.ErrorCount++
		return nil, connErr(TypeSerial, "read", err)
	}

	sc.stats.BytesRead += int64(n)
	sc.stats.LastActivity = time.Now()
	return buffer[:n], nil
}

// Type returns the transport type.
func (sc *SerialConnection) Type() Type {
	return TypeSerial
}
