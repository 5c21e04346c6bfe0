package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"netprobe/config"
	"netprobe/scanner"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		API:  config.APIConfig{RateWindow: time.Minute, Workers: 1},
		Scan: config.ScanConfig{Threads: 10, TimeoutMs: 200, MaxSockets: 64},
	}
}

// openPorts is a prober reporting a fixed set of ports open on any host.
type openPorts map[uint16]bool

func (p openPorts) Probe(_ context.Context, unit scanner.ProbeUnit, _ time.Duration) scanner.ProbeOutcome {
	return scanner.ProbeOutcome{Host: unit.Host, Port: unit.Port, Open: p[unit.Port]}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
