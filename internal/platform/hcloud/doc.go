// Package hcloud wraps the Hetzner Cloud API calls the operator needs to
// create and find replacement servers.
//
// Calls that fail transiently (locked resources, rate limiting, unavailable
// capacity) are retried with exponential backoff inside the configured
// timeouts. Invalid input is returned immediately.
//
// Timeouts and retry parameters are read from the environment via
// config.LoadTimeouts:
//
//   - HCLOUD_TIMEOUT_SERVER_CREATE: server creation timeout (default: 10m)
//   - HCLOUD_TIMEOUT_LOOKUP: read-only lookup timeout (default: 30s)
//   - HCLOUD_RETRY_MAX_ATTEMPTS: maximum retry attempts (default: 5)
//   - HCLOUD_RETRY_INITIAL_DELAY: initial retry delay (default: 1s)
package hcloud
