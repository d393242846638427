//go:build linux

package collector

import (
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// foregroundWindow resolves the active X11 window to a PID and title via
// xdotool. Wayland sessions without XWayland report no foreground app.
func (c *PollingCollector) foregroundWindow() (int32, string, bool) {
	out, err := exec.Command("xdotool", "getactivewindow", "getwindowpid").Output()
	if err != nil {
		c.logger.Debug("foreground probe failed", zap.Error(err))
		return 0, "", false
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 32)
	if err != nil {
		return 0, "", false
	}

	title := ""
	if out, err := exec.Command("xdotool", "getactivewindow", "getwindowname").Output(); err == nil {
		title = strings.TrimSpace(string(out))
	}
	return int32(pid), title, true
}

// idleSeconds reads the X11 idle time (milliseconds) via xprintidle.
func (c *PollingCollector) idleSeconds() uint64 {
	out, err := exec.Command("xprintidle").Output()
	if err != nil {
		c.logger.Debug("idle probe failed", zap.Error(err))
		return 0
	}
	ms, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0
	}
	return ms / 1000
}
