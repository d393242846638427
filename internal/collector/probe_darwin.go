//go:build darwin

package collector

import (
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// foregroundWindow returns the PID and name of the frontmost application
// process via System Events.
func (c *PollingCollector) foregroundWindow() (int32, string, bool) {
	out, err := exec.Command("osascript",
		"-e", `tell application "System Events" to get {unix id, name} of first application process whose frontmost is true`,
	).Output()
	if err != nil {
		c.logger.Debug("foreground probe failed", zap.Error(err))
		return 0, "", false
	}

	// Output: "1234, Safari"
	fields := strings.SplitN(strings.TrimSpace(string(out)), ",", 2)
	if len(fields) != 2 {
		return 0, "", false
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 32)
	if err != nil {
		return 0, "", false
	}
	return int32(pid), strings.TrimSpace(fields[1]), true
}

// idleSeconds reads HIDIdleTime (nanoseconds) from the IOHIDSystem registry.
func (c *PollingCollector) idleSeconds() uint64 {
	out, err := exec.Command("ioreg", "-c", "IOHIDSystem", "-d", "4").Output()
	if err != nil {
		c.logger.Debug("idle probe failed", zap.Error(err))
		return 0
	}

	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "HIDIdleTime") {
			continue
		}
		parts := strings.Split(line, "=")
		if len(parts) != 2 {
			continue
		}
		ns, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			continue
		}
		return ns / 1_000_000_000
	}
	return 0
}
