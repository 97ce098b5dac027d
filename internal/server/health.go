package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker serves /healthz, /readyz and /healthz/detailed for the
// streamable-http transport.
type HealthChecker struct {
	ready     atomic.Bool
	sc        *ServerContext
	startTime time.Time
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil,
// in which case only the readiness flag is checked.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, startTime: time.Now()}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness, e.g. while draining before shutdown.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag alone, without the other checks.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ConnectorHealth summarizes the accounts of one connector.
type ConnectorHealth struct {
	Accounts int    `json:"accounts"`
	Default  string `json:"default,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status     string                     `json:"status"`
	Checks     map[string]string          `json:"checks"`
	Uptime     string                     `json:"uptime"`
	ReadOnly   bool                       `json:"read_only"`
	Connectors map[string]ConnectorHealth `json:"connectors,omitempty"`
}

type healthCheck struct {
	name string
	run  func() error
}

var (
	errNotReady     = errors.New(healthStatusNotReady)
	errShuttingDown = errors.New(healthStatusShuttingDown)
)

func (h *HealthChecker) checks() []healthCheck {
	checks := []healthCheck{{name: "ready", run: func() error {
		if !h.ready.Load() {
			return errNotReady
		}
		return nil
	}}}
	if h.sc == nil {
		return checks
	}
	return append(checks,
		healthCheck{name: "shutdown", run: func() error {
			if h.sc.IsShutdown() {
				return errShuttingDown
			}
			return nil
		}},
		healthCheck{name: "token_store", run: func() error {
			return checkTokenDir(h.sc.Config().TokenDir)
		}},
	)
}

// checkTokenDir accepts a missing directory, which the store creates on
// the first write.
func checkTokenDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// run evaluates every check and returns the overall status.
func (h *HealthChecker) run() (string, map[string]string) {
	status := healthStatusOK
	results := make(map[string]string)
	for _, c := range h.checks() {
		if err := c.run(); err != nil {
			results[c.name] = err.Error()
			if status == healthStatusOK {
				status = healthStatusNotReady
			}
			if errors.Is(err, errShuttingDown) {
				status = healthStatusShuttingDown
			}
			continue
		}
		results[c.name] = healthStatusOK
	}
	return status, results
}

func writeHealth(w http.ResponseWriter, status string, body any) {
	w.Header().Set("Content-Type", "application/json")
	if status == healthStatusOK {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler always answers ok while the process serves requests.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, healthStatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers 503 when any check fails.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status, checks := h.run()
		writeHealth(w, status, HealthResponse{Status: status, Checks: checks})
	})
}

// DetailedHealthHandler adds uptime, the write mode and per-connector
// account counts to the readiness checks.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status, checks := h.run()
		resp := DetailedHealthResponse{
			Status: status,
			Checks: checks,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}
		if h.sc != nil {
			resp.ReadOnly = h.sc.ReadOnly()
			resp.Connectors = make(map[string]ConnectorHealth)
			for _, c := range h.sc.Connectors() {
				summary := c.Accounts.ListAccounts().Value
				resp.Connectors[c.Name] = ConnectorHealth{Accounts: summary.Count, Default: summary.Default}
			}
		}
		writeHealth(w, status, resp)
	})
}

// RegisterHealthEndpoints mounts the three endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
