// Package collector implements the activity observer: foreground-app and
// idle-time sampling via platform probes, with gopsutil resolving the
// foreground PID to a process identity.
package collector

import (
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/eliteGoblin/timewarden/internal/domain"
)

// PollingCollector samples the foreground application and elapsed idle time
// using best-effort platform probes. Probe failure yields a sample with no
// app rather than an error: the sessionizer treats that as "no determinable
// foreground app".
type PollingCollector struct {
	logger *zap.Logger
}

// NewPollingCollector creates a collector for the current platform.
func NewPollingCollector(logger *zap.Logger) *PollingCollector {
	return &PollingCollector{logger: logger}
}

// Sample returns one observation of the foreground app and idle time.
func (c *PollingCollector) Sample() domain.Sample {
	sample := domain.Sample{IdleSeconds: c.idleSeconds()}

	pid, title, ok := c.foregroundWindow()
	if !ok {
		return sample
	}

	app := &domain.AppInfo{WindowTitle: title}
	if proc, err := process.NewProcess(pid); err == nil {
		if name, err := proc.Name(); err == nil {
			app.ProcessName = name
		}
	}
	if app.ProcessName == "" {
		// Process may have exited between the probe and the lookup;
		// fall back to the window title as the identity.
		if title == "" {
			return sample
		}
		app.ProcessName = title
	}

	sample.App = app
	return sample
}

// Ensure PollingCollector implements domain.ActivityCollector.
var _ domain.ActivityCollector = (*PollingCollector)(nil)
