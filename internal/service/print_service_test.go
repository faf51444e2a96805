// internal/service/print_service_test.go
package service

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"label-service/internal/config"
	"label-service/internal/model"
)

// fakePrinter is a TCP listener speaking just enough status mode 5 to
// accept a print run: it answers every status request frame and records
// everything else as label data.
type fakePrinter struct {
	listener net.Listener
	mutex    sync.Mutex
	received []byte
}

var statusRequest = []byte{0x21, 0x01, 0x05, 0x2A, 0x2A, 0x2A, 0x2A, 0x2A, 0x03}

func startFakePrinter(t *testing.T) *fakePrinter {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	fp := &fakePrinter{listener: listener}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		answered := 0
		buffer := make([]byte, 8192)
		for {
			n, err := conn.Read(buffer)
			if err != nil {
				return
			}

			fp.mutex.Lock()
			fp.received = append(fp.received, buffer[:n]...)
			pending := bytes.Count(fp.received, statusRequest)
			fp.mutex.Unlock()

			for answered < pending {
				conn.Write([]byte{0x02, 0x41, 0x03})
				answered++
			}
		}
	}()

	return fp
}

func (fp *fakePrinter) addr() (string, int) {
	addr := fp.listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func (fp *fakePrinter) data() []byte {
	fp.mutex.Lock()
	defer fp.mutex.Unlock()
	out := make([]byte, len(fp.received))
	copy(out, fp.received)
	return out
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Printer.Connection = "tcp"
	cfg.Printer.Host = "127.0.0.1"
	cfg.Printer.Port = 9100
	cfg.Printer.TCP.ConnectTimeout = 2 * time.Second
	cfg.Printer.TCP.ReadTimeout = 2 * time.Second
	cfg.Printer.TCP.WriteTimeout = 2 * time.Second
	return cfg
}

type recordingSink struct {
	mutex  sync.Mutex
	events []*model.JobEvent
}

func (rs *recordingSink) PublishJobEvent(event *model.JobEvent) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()
	rs.events = append(rs.events, event)
}

func (rs *recordingSink) types() []model.EventType {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()
	types := make([]model.EventType, len(rs.events))
	for i, e := range rs.events {
		types[i] = e.EventType
	}
	return types
}

func ticketDescriptor(host string, port int) []byte {
	return []byte(fmt.Sprintf(`[
		{"host": "%s", "port": %d, "communication": "SG412R_Status5"},
		[
			{"set_label_size": [1000, 3000]},
			{"rotate_270": 0},
			{"pos": [260, 930], "codabar": ["0004693003005000", 3, 100]},
			{"pos": [160, 1000], "expansion": [1, 1], "bold_text": "0004693003005000"},
			{"print": 1}
		]
	]`, host, port))
}

func TestRenderWithoutPrinter(t *testing.T) {
	ps := NewPrintService(newTestConfig(), nil, nil, zap.NewNop())

	stream, pages, err := ps.Render(ticketDescriptor("10.0.0.1", 1024))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if pages != 1 {
		t.Errorf("pages = %d, want 1", pages)
	}
	if len(stream) == 0 || stream[0] != 0x02 || stream[len(stream)-1] != 0x03 {
		t.Errorf("stream not framed: % x", stream)
	}
}

func TestRenderInvalidDescriptor(t *testing.T) {
	ps := NewPrintService(newTestConfig(), nil, nil, zap.NewNop())

	if _, _, err := ps.Render([]byte(`{"not": "a list"}`)); err == nil {
		t.Error("Render() accepted a malformed descriptor")
	}
}

func TestPrintFullPipeline(t *testing.T) {
	fp := startFakePrinter(t)
	host, port := fp.addr()

	sink := &recordingSink{}
	ps := NewPrintService(newTestConfig(), nil, sink, zap.NewNop())

	printJob, err := ps.Print(context.Background(), ticketDescriptor(host, port))
	if err != nil {
		t.Fatalf("Print() error: %v", err)
	}

	if printJob.Status != model.JobStatusCompleted {
		t.Fatalf("job status = %s, want COMPLETED", printJob.Status)
	}
	if printJob.Pages != 1 || printJob.BytesSent == 0 {
		t.Errorf("job = %d pages, %d bytes", printJob.Pages, printJob.BytesSent)
	}
	if printJob.StartedAt == nil || printJob.CompletedAt == nil {
		t.Error("job timestamps not set")
	}

	// Give the printer goroutine a moment to drain the socket.
	deadline := time.Now().Add(2 * time.Second)
	var data []byte
	for time.Now().Before(deadline) {
		data = fp.data()
		if bytes.Count(data, statusRequest) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	wantInit := []byte{0x1B, 0x41, 0x1B, 0x43, 0x52, 0x30, 0x2C, 0x30, 0x1B, 0x5A, 0x3D}
	if !bytes.HasPrefix(data, wantInit) {
		t.Errorf("printer did not receive the initialize packet first: % x", data[:min(len(data), 16)])
	}
	if n := bytes.Count(data, statusRequest); n != 2 {
		t.Errorf("printer received %d status requests, want 2 (prepare, finish)", n)
	}
	if !bytes.Contains(data, []byte("0004693003005000")) {
		t.Error("label data missing from the stream")
	}

	wantEvents := []model.EventType{
		model.EventJobQueued,
		model.EventJobStarted,
		model.EventPrinterOnline,
		model.EventJobCompleted,
	}
	got := sink.types()
	if len(got) != len(wantEvents) {
		t.Fatalf("events = %v, want %v", got, wantEvents)
	}
	for i := range wantEvents {
		if got[i] != wantEvents[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], wantEvents[i])
		}
	}
}

func TestPrintUnreachablePrinter(t *testing.T) {
	// Grab a port and close it so the connect fails fast.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	host := "127.0.0.1"
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	sink := &recordingSink{}
	ps := NewPrintService(newTestConfig(), nil, sink, zap.NewNop())

	printJob, err := ps.Print(context.Background(), ticketDescriptor(host, port))
	if err == nil {
		t.Fatal("Print() succeeded against a dead printer")
	}
	if printJob.Status != model.JobStatusFailed {
		t.Errorf("job status = %s, want FAILED", printJob.Status)
	}
	if printJob.Error == "" {
		t.Error("failed job carries no error message")
	}

	got := sink.types()
	if len(got) < 2 || got[len(got)-1] != model.EventJobFailed {
		t.Fatalf("events = %v, want trailing JOB_FAILED", got)
	}
	if got[len(got)-2] != model.EventPrinterOffline {
		t.Errorf("events = %v, want PRINTER_OFFLINE before JOB_FAILED", got)
	}
}

func TestPrintHandshakeFailure(t *testing.T) {
	// A printer that accepts the connection but drops it before
	// answering the status request.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()
	host := "127.0.0.1"
	port := listener.Addr().(*net.TCPAddr).Port

	sink := &recordingSink{}
	ps := NewPrintService(newTestConfig(), nil, sink, zap.NewNop())

	printJob, err := ps.Print(context.Background(), ticketDescriptor(host, port))
	if err == nil {
		t.Fatal("Print() succeeded against a broken handshake")
	}
	if printJob.Status != model.JobStatusFailed {
		t.Errorf("job status = %s, want FAILED", printJob.Status)
	}

	got := sink.types()
	if len(got) < 2 || got[len(got)-1] != model.EventJobFailed {
		t.Fatalf("events = %v, want trailing JOB_FAILED", got)
	}
	if got[len(got)-2] != model.EventPrinterError {
		t.Errorf("events = %v, want PRINTER_ERROR before JOB_FAILED", got)
	}
}

func TestGetJobAndList(t *testing.T) {
	ps := NewPrintService(newTestConfig(), nil, nil, zap.NewNop())

	// A parse failure still records the job.
	printJob, err := ps.Print(context.Background(), []byte(`not json`))
	if err == nil {
		t.Fatal("Print() accepted garbage")
	}

	got, err := ps.GetJob(printJob.ID)
	if err != nil {
		t.Fatalf("GetJob() error: %v", err)
	}
	if got.Status != model.JobStatusFailed {
		t.Errorf("job status = %s, want FAILED", got.Status)
	}

	if jobs := ps.ListJobs(); len(jobs) != 1 {
		t.Errorf("ListJobs() returned %d jobs, want 1", len(jobs))
	}
}
