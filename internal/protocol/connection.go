// internal/protocol/connection.go
package protocol

import "time"

// TCPConfig configures a LAN transport. A zero ReadTimeout means reads
// block indefinitely; a device that never answers hangs the caller, which
// is the documented behavior of the printer's status mode. Callers that
// need bounded latency set the timeouts.
type TCPConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	KeepAlive      bool          `json:"keep_alive"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
}

// SerialConfig configures an RS-232C transport.
type SerialConfig struct {
	Port     string        `json:"port"`
	BaudRate int           `json:"baud_rate"`
	DataBits int           `json:"data_bits"`
	StopBits int           `json:"stop_bits"`
	Parity   string        `json:"parity"`
	Timeout  time.Duration `json:"timeout"`
}

// USBConfig configures a USB bulk transport.
type USBConfig struct {
	VendorID  string        `json:"vendor_id"`
	ProductID string        `json:"product_id"`
	Endpoint  int           `json:"endpoint"`
	Timeout   time.Duration `json:"timeout"`
}
