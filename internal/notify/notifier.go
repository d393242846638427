// Package notify delivers user-facing alerts via the platform's desktop
// notification mechanism.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"github.com/eliteGoblin/timewarden/internal/domain"
)

// DesktopNotifier shells out to osascript (macOS) or notify-send (Linux).
// Delivery is best-effort: failures are logged and swallowed, never
// surfaced to the caller.
type DesktopNotifier struct {
	logger *zap.Logger
}

// NewDesktopNotifier creates a notifier for the current platform.
func NewDesktopNotifier(logger *zap.Logger) *DesktopNotifier {
	return &DesktopNotifier{logger: logger}
}

// Notify displays a desktop notification.
func (n *DesktopNotifier) Notify(title, body string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.Command("osascript", "-e", script)
	case "linux":
		cmd = exec.Command("notify-send", title, body)
	default:
		n.logger.Debug("notifications unsupported on platform",
			zap.String("os", runtime.GOOS))
		return
	}

	if err := cmd.Run(); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("title", title),
			zap.Error(err))
		return
	}
	n.logger.Info("notification delivered", zap.String("title", title))
}

// NopNotifier discards notifications. Used when alerts are disabled in
// configuration.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(title, body string) {}

var (
	_ domain.Notifier = (*DesktopNotifier)(nil)
	_ domain.Notifier = NopNotifier{}
)
