/* pkg/logger/paths.go */

package logger

import (
	"runtime"

	"github.com/opsdep/appdctl/pkg/shared"
	"github.com/opsdep/appdctl/pkg/xdg"
)

// PlatformLogPaths returns candidate log paths in order of priority.
func PlatformLogPaths() []string {
	switch runtime.GOOS {
	case "linux":
		return []string{
			shared.AppdctlLogs, // preferred when running as root
			xdg.StatePath(shared.AppdctlID, "appdctl.log"), // per-user fallback, e.g. the agent user running probes
			shared.AppdctlLogsPWD,
			"/tmp/appdctl/appdctl.log",
		}
	case "darwin":
		return []string{
			xdg.StatePath(shared.AppdctlID, "appdctl.log"),
			shared.AppdctlLogsPWD,
		}
	default:
		return []string{shared.AppdctlLogsPWD}
	}
}
