package config

import (
	"time"
)

// Timeouts holds the Hetzner Cloud API timeouts used by the hcloud provisioner.
// These values can be customized via environment variables.
type Timeouts struct {
	ServerCreate      time.Duration // Timeout for server creation operations
	Lookup            time.Duration // Timeout for read-only lookups
	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - HCLOUD_TIMEOUT_SERVER_CREATE (default: 10m)
//   - HCLOUD_TIMEOUT_LOOKUP (default: 30s)
//   - HCLOUD_RETRY_MAX_ATTEMPTS (default: 5)
//   - HCLOUD_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		ServerCreate:      parseDuration("HCLOUD_TIMEOUT_SERVER_CREATE", 10*time.Minute),
		Lookup:            parseDuration("HCLOUD_TIMEOUT_LOOKUP", 30*time.Second),
		RetryMaxAttempts:  parseInt("HCLOUD_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("HCLOUD_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}
