package instance

import (
	"os"

	"github.com/farmlink/farmlink-backend/pkg/env"
)

// ID names the running process in logs and lock ownership. It prefers
// FARMLINK_INSTANCE_ID, then the host name, then "local".
func ID() string {
	if id := env.Get("FARMLINK_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
