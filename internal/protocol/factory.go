// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CreateConnection creates a transport for the given type from a loose
// configuration map. Job descriptors carry connection settings as JSON
// objects, so numbers arrive as float64 and durations as strings.
func CreateConnection(t Type, config map[string]interface{}, logger *zap.Logger) (Connection, error) {
	switch t {
	case TypeTCP:
		return createTCPConnection(config, logger)
	case TypeSerial:
		return createSerialConnection(config, logger)
	case TypeUSB:
		return createUSBConnection(config, logger)
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", t)
	}
}

// createTCPConnection creates a TCP transport.
func createTCPConnection(config map[string]interface{}, logger *zap.Logger) (Connection, error) {
	tcpConfig := &TCPConfig{
		Port:           9100, // Default printer port
		KeepAlive:      true,
		ConnectTimeout: 10 * time.Second,
	}

	// Parse host
	if host, ok := config["host"].(string); ok {
		tcpConfig.Host = host
	} else {
		return nil, fmt.Errorf("TCP host is required")
	}

	// Parse port
	if port, ok := config["port"]; ok {
		switch v := port.(type) {
		case float64:
			tcpConfig.Port = int(v)
		case int:
			tcpConfig.Port = v
		}
	}

	// Parse keep alive
	if keepAlive, ok := config["keep_alive"].(bool); ok {
		tcpConfig.KeepAlive = keepAlive
	}

	// Parse connect timeout
	if timeout, ok := config["connect_timeout"].(string); ok {
		if dur, err := time.ParseDuration(timeout); err == nil {
			tcpConfig.ConnectTimeout = dur
		}
	}

	// Parse read timeout
	if readTimeout, ok := config["read_timeout"].(string); ok {
		if dur, err := time.ParseDuration(readTimeout); err == nil {
			tcpConfig.ReadTimeout = dur
		}
	}

	// Parse write timeout
	if writeTimeout, ok := config["write_timeout"].(string); ok {
		if dur, err := time.ParseDuration(writeTimeout); err == nil {
			tcpConfig.WriteTimeout = dur
		}
	}

	logger.Info("Creating TCP transport",
		zap.String("host", tcpConfig.Host),
		zap.Int("port", tcpConfig.Port),
	)

	return NewTCPConnection(tcpConfig, logger), nil
}

// createSerialConnection creates a serial transport.
func createSerialConnection(config map[string]interface{}, logger *zap.Logger) (Connection, error) {
	serialConfig := &SerialConfig{
		BaudRate: 9600,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
	}

	// Parse port
	if port, ok := config["port"].(string); ok {
		serialConfig.Port = port
	} else {
		return nil, fmt.Errorf("serial port is required")
	}

	// Parse baud rate
	if baudRate, ok := config["baud_rate"]; ok {
		switch v := baudRate.(type) {
		case float64:
			serialConfig.BaudRate = int(v)
		case int:
			serialConfig.BaudRate = v
		}
	}

	// Parse data bits
	if dataBits, ok := config["data_bits"]; ok {
		switch v := dataBits.(type) {
		case float64:
			serialConfig.DataBits = int(v)
		case int:
			serialConfig.DataBits = v
		}
	}

	// Parse stop bits
	if stopBits, ok := config["stop_bits"]; ok {
		switch v := stopBits.(type) {
		case float64:
			serialConfig.StopBits = int(v)
		case int:
			serialConfig.StopBits = v
		}
	}

	// Parse parity
	if parity, ok := config["parity"].(string); ok {
		serialConfig.Parity = parity
	}

	// Parse timeout
	if timeout, ok := config["timeout"].(string); ok {
		if dur, err := time.ParseDuration(timeout); err == nil {
			serialConfig.Timeout = dur
		}
	}

	logger.Info("Creating serial transport",
		zap.String("port", serialConfig.Port),
		zap.Int("baud_rate", serialConfig.BaudRate),
	)

	return NewSerialConnection(serialConfig, logger), nil
}

// createUSBConnection creates a USB transport.
func createUSBConnection(config map[string]interface{}, logger *zap.Logger) (Connection, error) {
	usbConfig := &USBConfig{
		Endpoint: 1,
		Timeout:  5 * time.Second,
	}

	// Parse vendor ID
	if vendorID, ok := config["vendor_id"].(string); ok {
		usbConfig.VendorID = vendorID
	} else {
		return nil, fmt.Errorf("USB vendor_id is required")
	}

	// Parse product ID
	if productID, ok := config["product_id"].(string); ok {
		usbConfig.ProductID = productID
	} else {
		return nil, fmt.Errorf("USB product_id is required")
	}

	// Parse endpoint
	if endpoint, ok := config["endpoint"]; ok {
		switch v := endpoint.(type) {
		case float64:
			usbConfig.Endpoint = int(v)
		case int:
			usbConfig.Endpoint = v
		}
	}

	// Parse timeout
	if timeout, ok := config["timeout"].(string); ok {
		if dur, err := time.ParseDuration(timeout); err == nil {
			usbConfig.Timeout = dur
		}
	}

	logger.Info("Creating USB transport",
		zap.String("vendor_id", usbConfig.VendorID),
		zap.String("product_id", usbConfig.ProductID),
	)

	return NewUSBConnection(usbConfig, logger), nil
}

// ValidateConfig checks a configuration map for a transport type
// without opening anything.
func ValidateConfig(t Type, config map[string]interface{}) error {
	switch t {
	case TypeTCP:
		return validateTCPConfig(config)
	case TypeSerial:
		return validateSerialConfig(config)
	case TypeUSB:
		return validateUSBConfig(config)
	default:
		return fmt.Errorf("unsupported transport type: %s", t)
	}
}

// validateTCPConfig validates TCP configuration.
func validateTCPConfig(config map[string]interface{}) error {
	if _, ok := config["host"].(string); !ok {
		return fmt.Errorf("TCP host is required")
	}

	if port, ok := config["port"]; ok {
		var portNum int
		switch v := port.(type) {
		case float64:
			portNum = int(v)
		case int:
			portNum = v
		default:
			return fmt.Errorf("invalid port type")
		}

		if portNum < 1 || portNum > 65535 {
			return fmt.Errorf("invalid port number: %d", portNum)
		}
	}

	return nil
}

// validateSerialConfig validates serial configuration.
func validateSerialConfig(config map[string]interface{}) error {
	if _, ok := config["port"].(string); !ok {
		return fmt.Errorf("serial port is required")
	}

	if baudRate, ok := config["baud_rate"]; ok {
		var rate int
		switch v := baudRate.(type) {
		case float64:
			rate = int(v)
		case int:
			rate = v
		default:
			return fmt.Errorf("invalid baud_rate type")
		}

		validRates := []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}
		valid := false
		for _, validRate := range validRates {
			if rate == validRate {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid baud rate: %d", rate)
		}
	}

	return nil
}

// validateUSBConfig validates USB configuration.
func validateUSBConfig(config map[string]interface{}) error {
	if _, ok := config["vendor_id"].(string); !ok {
		return fmt.Errorf("USB vendor_id is required")
	}

	if _, ok := config["product_id"].(string); !ok {
		return fmt.Errorf("USB product_id is required")
	}

	return nil
}
