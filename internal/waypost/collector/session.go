package collector

import (
	"runtime"

	"github.com/google/uuid"
)

// NewSessionID generates the identifier reused for all session-scoped events
// during one process lifetime.
func NewSessionID() string {
	return uuid.New().String()
}

// DetectDeviceClass derives a coarse device classification from the runtime
// platform. Callers may override it through Options.DeviceClass.
func DetectDeviceClass() string {
	switch runtime.GOOS {
	case "android", "ios":
		return "mobile"
	case "darwin", "windows":
		return "desktop"
	case "linux", "freebsd", "openbsd", "netbsd":
		return "server"
	default:
		return "unknown"
	}
}
