package collector

import (
	"sync"

	"github.com/eliteGoblin/timewarden/internal/domain"
)

// StaticCollector returns a fixed, settable sample. Used by tests and by
// dry-run scenarios where no platform probe is available.
type StaticCollector struct {
	mu     sync.Mutex
	sample domain.Sample
}

// NewStaticCollector creates a collector reporting no app and zero idle time.
func NewStaticCollector() *StaticCollector {
	return &StaticCollector{}
}

// Set replaces the sample returned by subsequent calls.
func (c *StaticCollector) Set(sample domain.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sample = sample
}

// SetApp is a convenience for reporting a non-idle foreground app.
func (c *StaticCollector) SetApp(processName string) {
	c.Set(domain.Sample{App: &domain.AppInfo{ProcessName: processName}})
}

// Sample returns the current fixed sample.
func (c *StaticCollector) Sample() domain.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sample
}

var _ domain.ActivityCollector = (*StaticCollector)(nil)
