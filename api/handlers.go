package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"netprobe/scanner"
)

// DefaultPorts is scanned when a request leaves ports empty.
const DefaultPorts = "1-1000"

// Server bundles dependencies for HTTP handlers.
type Server struct {
	store    TaskStore
	defaults scanner.Options
}

// NewServer creates a new API server instance. defaults fills thread count
// and timeout when a request omits them.
func NewServer(store TaskStore, defaults scanner.Options) *Server {
	return &Server{store: store, defaults: defaults}
}

// RegisterRoutes attaches handlers to the provided Gin router group.
func (s *Server) RegisterRoutes(routes gin.IRoutes) {
	routes.POST("/scans", s.createScanHandler)
	routes.GET("/scans/:id", s.getScanHandler)
}

// @Summary      Create a new scan task
// @Description  Validates the target and queues the scan. Poll GET /scans/{id} for the report.
// @Tags         Scans
// @Accept       json
// @Produce      json
// @Param        scanRequest  body      CreateScanRequest     true  "Scan request parameters"
// @Success      202          {object}  ScanAcceptedResponse
// @Failure      400          {object}  ErrorResponse
// @Failure      401          {object}  ErrorResponse
// @Failure      429          {object}  ErrorResponse
// @Failure      500          {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /scans [post]
func (s *Server) createScanHandler(c *gin.Context) {
	var req CreateScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request payload: %v", err)})
		return
	}

	task := &ScanTask{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Target:    req.Target,
		Network:   req.Network,
		Ports:     req.Ports,
		Threads:   req.Threads,
		TimeoutMs: req.TimeoutMs,
		CreatedAt: time.Now().UTC(),
	}
	if task.Ports == "" {
		task.Ports = DefaultPorts
	}
	if task.Threads == 0 {
		task.Threads = s.defaults.Threads
	}
	if task.TimeoutMs == 0 {
		task.TimeoutMs = int(s.defaults.Timeout.Milliseconds())
	}

	if _, _, err := task.request(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := s.store.CreateTask(ctx, task); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to persist task"})
		return
	}

	if err := s.store.PushToQueue(ctx, task.ID); err != nil {
		task.Status = StatusFailed
		task.Error = "failed to queue task"
		now := time.Now().UTC()
		task.CompletedAt = &now
		_ = s.store.UpdateTask(ctx, task)

		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to queue task"})
		return
	}

	c.JSON(http.StatusAccepted, ScanAcceptedResponse{ID: task.ID, Status: task.Status})
}

// @Summary      Get scan status and report
// @Description  Returns the task snapshot. The report is present once status is completed.
// @Tags         Scans
// @Produce      json
// @Param        id   path      string  true  "Scan Task ID (UUID v4)"
// @Success      200  {object}  ScanTask
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      429  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /scans/{id} [get]
func (s *Server) getScanHandler(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid task id format"})
		return
	}

	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load task"})
		return
	}

	c.JSON(http.StatusOK, task)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
