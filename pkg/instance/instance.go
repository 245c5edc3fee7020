package instance

import (
	"os"

	"github.com/angelmondragon/stayregistry-backend/pkg/env"
)

// ID names the running process in logs: STAYREG_INSTANCE_ID, then the
// platform dyno name, then the host name, then fallback.
func ID(fallback string) string {
	if id := env.Lookup("", "STAYREG_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
