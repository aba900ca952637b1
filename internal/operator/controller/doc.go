// Package controller implements the Kubernetes controller for NodeRefresh
// custom resources.
//
// The controller drives a per-resource state machine persisted in status:
// Idle -> Provisioning -> Draining -> Validating, repeated for every target
// node, ending in Completed or Failed. Each reconcile performs one
// non-blocking step and requeues for the next one, so all waiting (eviction
// backoff, health pauses, provisioning polls, schedules) is expressed as
// RequeueAfter.
//
// Status writes are skipped when nothing changed. Eviction counts staged by
// the drain engine are committed only after the status write that carries
// them succeeds, so a conflicting write neither loses nor doubles them.
package controller
