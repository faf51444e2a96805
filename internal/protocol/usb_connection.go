// internal/protocol/usb_connection.go
package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// USBConnection implements Connection over a USB bulk endpoint. Some
// SATO models expose only USB; the session protocol is byte-identical
// to the LAN transport.
type USBConnection struct {
	config   *USBConfig
	ctx      *gousb.Context
	device   *gousb.Device
	intf     *gousb.Interface
	intfDone func()
	outEndpt *gousb.OutEndpoint
	inEndpt  *gousb.InEndpoint
	logger   *zap.Logger
	mutex    sync.RWMutex
	isOpen   bool
	stats    *Stats
}

// NewUSBConnection creates a USB transport for the given device.
func NewUSBConnection(config *USBConfig, logger *zap.Logger) Connection {
	return &USBConnection{
		config: config,
		logger: logger.With(
			zap.String("transport", "usb"),
			zap.String("vendor_id", config.VendorID),
			zap.String("product_id", config.ProductID),
		),
		stats: &Stats{},
	}
}

// Open finds the device by vendor/product ID and claims its default
// interface.
func (uc *USBConnection) Open(ctx context.Context) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.isOpen {
		return nil
	}

	uc.logger.Info("Opening USB connection", zap.Int("endpoint", uc.config.Endpoint))

	vendorID, err := parseHexID(uc.config.VendorID)
	if err != nil {
		return connErr(TypeUSB, "open", fmt.Errorf("invalid vendor ID %q: %w", uc.config.VendorID, err))
	}
	productID, err := parseHexID(uc.config.ProductID)
	if err != nil {
		return connErr(TypeUSB, "open", fmt.Errorf("invalid product ID %q: %w", uc.config.ProductID, err))
	}

	uc.ctx = gousb.NewContext()

	device, err := uc.findAndOpenDevice(vendorID, productID)
	if err != nil {
		uc.ctx.Close()
		uc.ctx = nil
		uc.stats.ErrorCount++
		return connErr(TypeUSB, "open", err)
	}

	intf, done, err := device.DefaultInterface()
	if err != nil {
		device.Close()
		uc.ctx.Close()
		uc.ctx = nil
		uc.stats.ErrorCount++
		return connErr(TypeUSB, "open", fmt.Errorf("failed to claim interface: %w", err))
	}

	outEndpt, err := intf.OutEndpoint(uc.config.Endpoint)
	if err != nil {
		done()
		device.Close()
		uc.ctx.Close()
		uc.ctx = nil
		uc.stats.ErrorCount++
		return connErr(TypeUSB, "open", fmt.Errorf("failed to get out endpoint: %w", err))
	}

	inEndpt, err := intf.InEndpoint(uc.config.Endpoint)
	if err != nil {
		// Write-only devices exist; status reads will fail instead.
		uc.logger.Warn("No in endpoint found", zap.Error(err))
	}

	uc.device = device
	uc.intf = intf
	uc.intfDone = done
	uc.outEndpt = outEndpt
	uc.inEndpt = inEndpt
	uc.isOpen = true
	uc.stats.IsConnected = true
	uc.stats.LastActivity = time.Now()

	uc.logger.Info("USB connection opened")
	return nil
}

// Close releases the interface, device and context. Idempotent, safe
// from any state.
func (uc *USBConnection) Close() error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if !uc.isOpen {
		return nil
	}

	if uc.intfDone != nil {
		uc.intfDone()
		uc.intfDone = nil
	}
	uc.intf = nil

	if uc.device != nil {
		uc.device.Close()
		uc.device = nil
	}

	if uc.ctx != nil {
		uc.ctx.Close()
		uc.ctx = nil
	}

	uc.outEndpt = nil
	uc.inEndpt = nil
	uc.isOpen = false
	uc.stats.IsConnected = false

	uc.logger.Info("USB connection closed")
	return nil
}

// IsOpen reports whether the device is claimed.
func (uc *USBConnection) IsOpen() bool {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()
	return uc.isOpen && uc.device != nil && uc.outEndpt != nil
}

// Write sends raw bytes to the out endpoint.
func (uc *USBConnection) Write(ctx context.Context, data []byte) error {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen || uc.outEndpt == nil {
		return connErr(TypeUSB, "write", fmt.Errorf("connection not open"))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	n, err := uc.outEndpt.Write(data)
	if err != nil {
		uc.stats.ErrorCount++
		uc.logger.Error("USB write failed", zap.Error(err))
		return connErr(TypeUSB, "write", err)
	}
	if n != len(data) {
		return connErr(TypeUSB, "write", fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data)))
	}

	uc.stats.BytesWritten += int64(n)
	uc.stats.LastActivity = time.Now()
	uc.logger.Debug("USB write completed", zap.Int("bytes", n))
	return nil
}

// Read performs one blocking read of up to maxBytes from the in
// endpoint. The gousb read has no deadline of its own, so it runs in a
// goroutine and the context bounds the wait.
func (uc *USBConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen || uc.inEndpt == nil {
		return nil, connErr(TypeUSB, "read", fmt.Errorf("connection not open or no in endpoint"))
	}

	type readResult struct {
		data []byte
		err  error
	}
	done := make(chan readResult, 1)

	go func() {
		buffer := make([]byte, maxBytes)
		n, err := uc.inEndpt.Read(buffer)
		if err != nil {
			done <- readResult{err: err}
			return
		}
		done <- readResult{data: buffer[:n]}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			uc.stats.ErrorCount++
			return nil, connErr(TypeUSB, "read", result.err)
		}
		uc.stats.BytesRead += int64(len(result.data))
		uc.stats.LastActivity = time.Now()
		return result.data, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Type returns the transport type.
func (uc *USBConnection) Type() Type {
	return TypeUSB
}

// parseHexID parses a vendor or product ID given as "0x1234" or "1234".
func parseHexID(hexStr string) (gousb.ID, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	id, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, err
	}
	return gousb.ID(id), nil
}

// findAndOpenDevice opens the first device matching vendor/product ID.
func (uc *USBConnection) findAndOpenDevice(vendorID, productID gousb.ID) (*gousb.Device, error) {
	devices, err := uc.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("USB device not found (VID: %04X, PID: %04X)", uint16(vendorID), uint16(productID))
	}

	if len(devices) > 1 {
		for i := 1; i < len(devices); i++ {
			devices[i].Close()
		}
		uc.logger.Warn("Multiple matching USB devices found, using first one")
	}

	return devices[0], nil
}
