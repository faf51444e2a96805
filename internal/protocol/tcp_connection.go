// internal/protocol/tcp_connection.go
package protocol

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TCPConnection implements Connection over a plain LAN socket. SATO
// printers listen on a raw TCP port; there is no TLS and no framing
// below the SBPL stream itself.
type TCPConnection struct {
	config *TCPConfig
	conn   net.Conn
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool
	stats  *Stats
}

// NewTCPConnection creates a TCP transport for the given target.
func NewTCPConnection(config *TCPConfig, logger *zap.Logger) Connection {
	return &TCPConnection{
		config: config,
		logger: logger.With(
			zap.String("transport", "tcp"),
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
		),
		stats: &Stats{},
	}
}

// Open dials the printer.
func (tc *TCPConnection) Open(ctx context.Context) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if tc.isOpen {
		return nil
	}

	address := net.JoinHostPort(tc.config.Host, fmt.Sprintf("%d", tc.config.Port))
	tc.logger.Info("Opening TCP connection", zap.String("address", address))

	dialer := &net.Dialer{
		Timeout:   tc.config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		tc.stats.ErrorCount++
		tc.logger.Error("Failed to open TCP connection", zap.Error(err))
		return connErr(TypeTCP, "connect", err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok && tc.config.KeepAlive {
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(30 * time.Second)
	}

	tc.conn = conn
	tc.isOpen = true
	tc.stats.IsConnected = true
	tc.stats.LastActivity = time.Now()

	tc.logger.Info("TCP connection opened")
	return nil
}

// Close releases the socket. Safe to call from any state and more than
// once; a session aborting mid-handshake still lands here.
func (tc *TCPConnection) Close() error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return nil
	}

	err := tc.conn.Close()
	tc.conn = nil
	tc.isOpen = false
	tc.stats.IsConnected = false

	if err != nil {
		tc.logger.Error("Failed to close TCP connection", zap.Error(err))
		return connErr(TypeTCP, "close", err)
	}

	tc.logger.Info("TCP connection closed")
	return nil
}

// IsOpen reports whether the socket is connected.
func (tc *TCPConnection) IsOpen() bool {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.isOpen && tc.conn != nil
}

// Write sends raw bytes to the printer.
func (tc *TCPConnection) Write(ctx context.Context, data []byte) error {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	if !tc.isOpen || tc.conn == nil {
		return connErr(TypeTCP, "write", fmt.Errorf("connection not open"))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if tc.config.WriteTimeout > 0 {
		tc.conn.SetWriteDeadline(time.Now().Add(tc.config.WriteTimeout))
	}

	n, err := tc.conn.Write(data)
	if err != nil {
		tc.stats.ErrorCount++
		tc.logger.Error("TCP write failed", zap.Error(err))
		return connErr(TypeTCP, "write", err)
	}
	if n != len(data) {
		return connErr(TypeTCP, "write", fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data)))
	}

	tc.stats.BytesWritten += int64(n)
	tc.stats.LastActivity = time.Now()
	tc.logger.Debug("TCP write completed", zap.Int("bytes", n))
	return nil
}

// Read performs one blocking read of up to maxBytes. With no configured
// ReadTimeout the read waits as long as the device does.
func (tc *TCPConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	if !tc.isOpen || tc.conn == nil {
		return nil, connErr(TypeTCP, "read", fmt.Errorf("connection not open"))
	}

	if tc.config.ReadTimeout > 0 {
		tc.conn.SetReadDeadline(time.Now().Add(tc.config.ReadTimeout))
	}
	if deadline, ok := ctx.Deadline(); ok {
		tc.conn.SetReadDeadline(deadline)
	}

	buffer := make([]byte, maxBytes)
	n, err := tc.conn.Read(buffer)
	if err != nil {
		tc.stats.ErrorCount++
		return nil, connErr(TypeTCP, "read", err)
	}

	tc.stats.BytesRead += int64(n)
	tc.stats.LastActivity = time.Now()
	return buffer[:n], nil
}

// Type returns the transport type.
func (tc *TCPConnection) Type() Type {
	return TypeTCP
}
