// internal/service/print_service.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"label-service/internal/config"
	"label-service/internal/driver/sato"
	"label-service/internal/job"
	"label-service/internal/model"
	"label-service/internal/protocol"
	"label-service/internal/sbpl"
	"label-service/internal/utils"
)

// EventSink receives job lifecycle events. The websocket hub implements
// it; the service never imports the handler layer.
type EventSink interface {
	PublishJobEvent(event *model.JobEvent)
}

// PrintService turns JSON descriptors into SBPL streams and drives them
// to the printer. Finished jobs stay in memory for status queries until
// the process exits.
type PrintService struct {
	config   *config.Config
	renderer sbpl.GlyphRenderer
	events   EventSink
	logger   *utils.ServiceLogger
	mutex    sync.RWMutex
	jobs     map[uuid.UUID]*model.PrintJob
}

// NewPrintService creates a new print service instance
func NewPrintService(cfg *config.Config, renderer sbpl.GlyphRenderer, events EventSink, logger *zap.Logger) *PrintService {
	return &PrintService{
		config:   cfg,
		renderer: renderer,
		events:   events,
		logger:   utils.NewServiceLogger(logger, "print-service"),
		jobs:     make(map[uuid.UUID]*model.PrintJob),
	}
}

// Render parses a descriptor and encodes it to an SBPL byte stream
// without contacting any printer. Used by the dry-run endpoint and as
// the first stage of Print.
func (ps *PrintService) Render(data []byte) ([]byte, int, error) {
	desc, err := job.Parse(data)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid descriptor: %w", err)
	}

	g := sbpl.NewGenerator(ps.renderer)
	if err := job.Encode(desc, g); err != nil {
		return nil, 0, fmt.Errorf("failed to encode descriptor: %w", err)
	}

	return g.ToBytes(), len(desc.Pages), nil
}

// Print runs the full pipeline: parse, encode, connect, handshake, send,
// finish. The returned job carries the terminal status; callers decide
// what an error maps to at their boundary.
func (ps *PrintService) Print(ctx context.Context, data []byte) (*model.PrintJob, error) {
	printJob := &model.PrintJob{
		ID:        uuid.New(),
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	ps.storeJob(printJob)
	ps.publish(model.EventJobQueued, printJob.ID, "INFO")

	jobLogger := utils.NewJobLogger(ps.logger.Logger, printJob.ID.String())

	desc, err := job.Parse(data)
	if err != nil {
		return ps.failJob(printJob, jobLogger, fmt.Errorf("invalid descriptor: %w", err))
	}
	printJob.Pages = len(desc.Pages)

	g := sbpl.NewGenerator(ps.renderer)
	if err := job.Encode(desc, g); err != nil {
		return ps.failJob(printJob, jobLogger, fmt.Errorf("failed to encode descriptor: %w", err))
	}
	stream := g.ToBytes()

	transport, connConfig := ps.resolveTarget(desc)
	printJob.Target = targetLabel(transport, connConfig)

	conn, err := protocol.CreateConnection(transport, connConfig, ps.logger.Logger)
	if err != nil {
		return ps.failJob(printJob, jobLogger, fmt.Errorf("failed to create transport: %w", err))
	}

	session := sato.NewSession(conn, ps.logger.Logger)
	defer session.Close()

	now := time.Now()
	printJob.StartedAt = &now
	printJob.Status = model.JobStatusPrinting
	ps.storeJob(printJob)
	ps.publish(model.EventJobStarted, printJob.ID, "INFO")
	jobLogger.Start(printJob.Pages, printJob.Target)

	if err := session.Open(ctx); err != nil {
		ps.publish(model.EventPrinterOffline, printJob.ID, "ERROR")
		return ps.failJob(printJob, jobLogger, err)
	}
	ps.publish(model.EventPrinterOnline, printJob.ID, "INFO")

	if err := session.Prepare(ctx); err != nil {
		ps.publish(model.EventPrinterError, printJob.ID, "ERROR")
		return ps.failJob(printJob, jobLogger, err)
	}
	if err := session.Send(ctx, stream); err != nil {
		ps.publish(model.EventPrinterError, printJob.ID, "ERROR")
		return ps.failJob(printJob, jobLogger, err)
	}
	if err := session.Finish(ctx); err != nil {
		ps.publish(model.EventPrinterError, printJob.ID, "ERROR")
		return ps.failJob(printJob, jobLogger, err)
	}

	done := time.Now()
	printJob.CompletedAt = &done
	printJob.Status = model.JobStatusCompleted
	printJob.BytesSent = len(stream)
	ps.storeJob(printJob)
	ps.publish(model.EventJobCompleted, printJob.ID, "INFO")
	jobLogger.Success(printJob.BytesSent)

	return printJob, nil
}

// GetJob returns a job by ID.
func (ps *PrintService) GetJob(id uuid.UUID) (*model.PrintJob, error) {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	printJob, ok := ps.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	return printJob, nil
}

// ListJobs returns all jobs known to this process.
func (ps *PrintService) ListJobs() []*model.PrintJob {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	jobs := make([]*model.PrintJob, 0, len(ps.jobs))
	for _, j := range ps.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

// resolveTarget picks the transport for a job: descriptor connection
// settings win, the configured default printer otherwise. Descriptor
// targets are always plain TCP, matching the wire format.
func (ps *PrintService) resolveTarget(desc *job.Descriptor) (protocol.Type, map[string]interface{}) {
	if desc.Connection != nil && desc.Connection.Host != "" {
		return protocol.TypeTCP, map[string]interface{}{
			"host":            desc.Connection.Host,
			"port":            desc.Connection.Port,
			"keep_alive":      ps.config.Printer.TCP.KeepAlive,
			"connect_timeout": ps.config.Printer.TCP.ConnectTimeout.String(),
			"read_timeout":    ps.config.Printer.TCP.ReadTimeout.String(),
			"write_timeout":   ps.config.Printer.TCP.WriteTimeout.String(),
		}
	}
	return protocol.Type(ps.config.Printer.Connection), ps.config.ConnectionConfig()
}

func targetLabel(t protocol.Type, config map[string]interface{}) string {
	switch t {
	case protocol.TypeTCP:
		return fmt.Sprintf("tcp://%v:%v", config["host"], config["port"])
	case protocol.TypeSerial:
		return fmt.Sprintf("serial://%v", config["port"])
	case protocol.TypeUSB:
		return fmt.Sprintf("usb://%v:%v", config["vendor_id"], config["product_id"])
	default:
		return string(t)
	}
}

func (ps *PrintService) storeJob(printJob *model.PrintJob) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()
	ps.jobs[printJob.ID] = printJob
}

func (ps *PrintService) failJob(printJob *model.PrintJob, jobLogger *utils.JobLogger, err error) (*model.PrintJob, error) {
	now := time.Now()
	printJob.CompletedAt = &now
	printJob.Status = model.JobStatusFailed
	printJob.Error = err.Error()
	ps.storeJob(printJob)
	ps.publish(model.EventJobFailed, printJob.ID, "ERROR")
	jobLogger.Failure(err)
	return printJob, err
}

func (ps *PrintService) publish(eventType model.EventType, jobID uuid.UUID, severity string) {
	if ps.events == nil {
		return
	}
	ps.events.PublishJobEvent(model.NewJobEvent(eventType, jobID, severity))
}
