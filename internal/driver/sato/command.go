// internal/driver/sato/command.go
package sato

// STATUS5_COMMANDS contains the status mode 5 handshake sequences for
// SATO label printers. The same 9-byte request both arms printing and
// reports the final status, so PRINT_START and PRINT_DONE share bytes.
var STATUS5_COMMANDS = struct {
	INITIALIZE  []byte
	PRINT_START []byte
	PRINT_DONE  []byte
}{
	// ESC A, ESC C R0,0, ESC Z=
	INITIALIZE: []byte{0x1B, 0x41, 0x1B, 0x43, 0x52, 0x30, 0x2C, 0x30, 0x1B, 0x5A, 0x3D},

	// ENQ-style status request: ! SOH ENQ ***** ETX
	PRINT_START: []byte{0x21, 0x01, 0x05, 0x2A, 0x2A, 0x2A, 0x2A, 0x2A, 0x03},
	PRINT_DONE:  []byte{0x21, 0x01, 0x05, 0x2A, 0x2A, 0x2A, 0x2A, 0x2A, 0x03},
}

// ackBufferSize bounds the single status read after each handshake
// request. The printer answers with a short status frame; anything it
// sends is drained in one read and not interpreted.
const ackBufferSize = 4096
