// internal/handler/job_handler.go
package handler

import (
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"label-service/internal/service"
	"label-service/internal/utils"
)

// JobHandler handles print job HTTP requests
type JobHandler struct {
	printService *service.PrintService
	logger       *utils.ServiceLogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(printService *service.PrintService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		printService: printService,
		logger:       utils.NewServiceLogger(logger, "job-handler"),
	}
}

// RegisterRoutes registers job-related routes
func (h *JobHandler) RegisterRoutes(router *gin.RouterGroup) {
	jobs := router.Group("/jobs")
	{
		jobs.POST("", h.CreateJob)
		jobs.POST("/render", h.RenderJob)
		jobs.GET("", h.ListJobs)
		jobs.GET("/:job_id", h.GetJob)
	}
}

// CreateJob accepts a JSON label descriptor, renders it and prints it.
// The request blocks until the printer acknowledged the job or the
// pipeline failed.
func (h *JobHandler) CreateJob(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Request body is required", err)
		return
	}

	printJob, err := h.printService.Print(c.Request.Context(), body)
	if err != nil {
		// A job that never reached the printer failed on the descriptor
		// or transport config; anything later is a printer-side failure.
		status := http.StatusUnprocessableEntity
		message := "Invalid label descriptor"
		if printJob != nil && printJob.StartedAt != nil {
			status = http.StatusBadGateway
			message = "Printer communication failed"
		}

		utils.LogError(h.logger.Logger, "Print job failed", err,
			zap.String("client_ip", c.ClientIP()),
		)

		utils.ErrorResponse(c, status, message, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Print job completed", printJob)
}

// RenderJob renders a descriptor to an SBPL byte stream without
// contacting any printer. The stream is returned hex encoded.
func (h *JobHandler) RenderJob(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Request body is required", err)
		return
	}

	stream, pages, err := h.printService.Render(body)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "Invalid label descriptor", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Descriptor rendered", gin.H{
		"sbpl":       hex.EncodeToString(stream),
		"size_bytes": len(stream),
		"pages":      pages,
	})
}

// GetJob returns one job by ID
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid job ID", err)
		return
	}

	printJob, err := h.printService.GetJob(jobID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Job not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Job retrieved successfully", printJob)
}

// ListJobs returns all jobs known to this process
func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs := h.printService.ListJobs()

	utils.SuccessResponse(c, http.StatusOK, "Jobs retrieved successfully", gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
