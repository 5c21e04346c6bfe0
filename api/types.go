package api

import (
	"time"

	"netprobe/scanner"
)

// Task lifecycle states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ScanTask represents a scanning job managed by the API service.
type ScanTask struct {
	// ID is the immutable identifier of the scan task (UUID v4).
	ID string `json:"id" format:"uuid" example:"a3f5c62e-1234-4f72-a84a-1c2d3e4f5678"`
	// Status reflects the asynchronous lifecycle state of the task.
	Status string `json:"status" enums:"pending,running,completed,failed" example:"pending"`
	// Target is the single host probed over Ports. Empty for network scans.
	Target string `json:"target,omitempty" example:"192.0.2.10"`
	// Network is the CIDR block probed on the first port of Ports.
	Network string `json:"network,omitempty" example:"10.0.0.0/24"`
	// Ports is "start-end", a single port, or a comma-separated list of both.
	Ports     string `json:"ports" example:"1-1000"`
	Threads   int    `json:"threads" example:"100"`
	TimeoutMs int    `json:"timeout_ms" example:"1000"`
	// Report is attached once the task completes.
	Report      *scanner.ScanReport `json:"report,omitempty"`
	CreatedAt   time.Time           `json:"created_at" format:"date-time"`
	StartedAt   *time.Time          `json:"started_at,omitempty" format:"date-time"`
	CompletedAt *time.Time          `json:"completed_at,omitempty" format:"date-time"`
	// Error contains context when a task fails.
	Error string `json:"error,omitempty" example:"scan interrupted: context canceled"`
}

// CreateScanRequest is the payload for creating new scan tasks.
// Exactly one of Target and Network should be set; Network wins when both are.
type CreateScanRequest struct {
	Target    string `json:"target" example:"192.0.2.10"`
	Network   string `json:"network" example:"10.0.0.0/24"`
	Ports     string `json:"ports" example:"1-1000"`
	Threads   int    `json:"threads" binding:"omitempty,min=1" example:"100"`
	TimeoutMs int    `json:"timeout_ms" binding:"omitempty,min=1" example:"1000"`
}

// ScanAcceptedResponse captures the asynchronous acknowledgement returned after job submission.
type ScanAcceptedResponse struct {
	ID     string `json:"id" format:"uuid"`
	Status string `json:"status" enums:"pending"`
}

// ErrorResponse provides a consistent structure for API error payloads.
type ErrorResponse struct {
	Error string `json:"error" example:"task not found"`
}

// request rebuilds the validated scan request and options stored on the task.
func (t *ScanTask) request() (scanner.ScanRequest, scanner.Options, error) {
	req, err := scanner.NewRequest(t.Target, t.Network, t.Ports)
	if err != nil {
		return scanner.ScanRequest{}, scanner.Options{}, err
	}
	opts := scanner.Options{
		Threads: t.Threads,
		Timeout: time.Duration(t.TimeoutMs) * time.Millisecond,
	}
	if err := opts.Validate(); err != nil {
		return scanner.ScanRequest{}, scanner.Options{}, err
	}
	return req, opts, nil
}
