// Package retry retries short, synchronous cloud API calls with capped
// exponential backoff.
//
// It is used inside a single reconcile for calls that may fail transiently,
// such as Hetzner Cloud server creation. Long-running waits belong in the
// controller's requeue loop instead.
package retry
