package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/caravel/internal/api"
	"github.com/artpar/caravel/internal/core/module"
	"github.com/artpar/caravel/internal/shell/probe"
)

// =============================================================================
// Health Monitor
// =============================================================================

// MonitorConfig configures healthcheck execution defaults. Per-service
// healthcheck specs override both values.
type MonitorConfig struct {
	// DefaultRetries is the probe attempt budget. Default: 15.
	DefaultRetries int

	// DefaultInterval is the delay between probe attempts. Default: 2s.
	DefaultInterval time.Duration
}

// DefaultMonitorConfig returns the default configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		DefaultRetries:  15,
		DefaultInterval: 2 * time.Second,
	}
}

// Monitor runs service healthchecks on background goroutines and records a
// verdict per monitor handle. Handles are minted per deployment, so
// redeploying a service starts a fresh watch with a fresh handle.
type Monitor struct {
	config MonitorConfig
	logger *slog.Logger

	// run executes one exec probe attempt; swapped out in tests.
	run func(ctx context.Context, argv []string, dir string, env map[string]string) (probe.Result, error)

	// dial attempts one net probe connection.
	dial func(addr string, timeout time.Duration) error

	mu       sync.Mutex
	verdicts map[string]api.HealthStatus
}

// NewMonitor creates a healthcheck monitor.
func NewMonitor(cfg MonitorConfig, logger *slog.Logger) *Monitor {
	if cfg.DefaultRetries == 0 {
		cfg.DefaultRetries = DefaultMonitorConfig().DefaultRetries
	}
	if cfg.DefaultInterval == 0 {
		cfg.DefaultInterval = DefaultMonitorConfig().DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		config:   cfg,
		logger:   logger,
		run:      probe.Run,
		dial:     dialProbe,
		verdicts: make(map[string]api.HealthStatus),
	}
}

// Watch starts monitoring a freshly deployed service and returns the
// monitor handle for polling. Returns "" when the service declares no
// healthcheck; such services have nothing to wait on.
func (m *Monitor) Watch(def api.ModuleDefinition) string {
	if def.Healthcheck == nil {
		return ""
	}

	handle := uuid.NewString()
	m.setVerdict(handle, api.HealthPending)

	retries := def.Healthcheck.Retries
	if retries == 0 {
		retries = m.config.DefaultRetries
	}
	interval := m.config.DefaultInterval
	if def.Healthcheck.IntervalSeconds > 0 {
		interval = time.Duration(def.Healthcheck.IntervalSeconds) * time.Second
	}

	go m.watch(handle, def, retries, interval)
	return handle
}

// Status returns the recorded verdict for a handle.
func (m *Monitor) Status(handle string) (api.HealthStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.verdicts[handle]
	return status, ok
}

func (m *Monitor) watch(handle string, def api.ModuleDefinition, retries int, interval time.Duration) {
	for attempt := 0; attempt < retries; attempt++ {
		healthy, err := m.attempt(def)
		if err != nil {
			// The probe could not run at all: that is a configuration
			// problem, not an unhealthy service.
			m.logger.Error("healthcheck probe failed to run",
				"module", def.Name,
				"error", err,
			)
			m.setVerdict(handle, api.HealthError)
			return
		}
		if healthy {
			m.setVerdict(handle, api.HealthSuccessful)
			return
		}
		// No sleep after the final attempt; the verdict is already in.
		if attempt+1 < retries {
			time.Sleep(interval)
		}
	}

	m.logger.Warn("healthcheck retries exceeded", "module", def.Name, "retries", retries)
	m.setVerdict(handle, api.HealthRetriesExceeded)
}

// attempt runs one probe of the declared type. A failed attempt is not an
// error; errors mean the probe is unrunnable.
func (m *Monitor) attempt(def api.ModuleDefinition) (bool, error) {
	hc := def.Healthcheck
	switch hc.Type {
	case module.ProbeNet:
		addr := net.JoinHostPort(hc.Host, strconv.Itoa(hc.Port))
		return m.dial(addr, dialTimeout) == nil, nil
	case "", module.ProbeExec:
		result, err := m.run(context.Background(), hc.Command, hc.WorkingDir, def.Environment)
		if err != nil {
			return false, err
		}
		return result.Success(), nil
	default:
		return false, fmt.Errorf("unknown healthcheck type %q", hc.Type)
	}
}

const dialTimeout = 2 * time.Second

func dialProbe(addr string, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (m *Monitor) setVerdict(handle string, status api.HealthStatus) {
	m.mu.Lock()
	m.verdicts[handle] = status
	m.mu.Unlock()
}
