//go:build !darwin && !linux

package collector

// Unsupported platforms report no foreground app and no idle time; the
// sessionizer stays Inactive.

func (c *PollingCollector) foregroundWindow() (int32, string, bool) {
	return 0, "", false
}

func (c *PollingCollector) idleSeconds() uint64 {
	return 0
}
