// Package provisioning ensures replacement capacity exists before a node is
// drained.
//
// A Hook is asked, once per reconcile, whether capacity for the node being
// refreshed is ready. Hooks never block: they start whatever work is needed
// and report NotReady until it finishes. The Gate wraps a Hook with the
// per-call timeout and the overall provisioning deadline.
//
// # Providers
//
//   - none: capacity is managed elsewhere, always Ready.
//   - capacity: Ready once a schedulable Ready node exists beyond the target set.
//   - hcloud: creates one Hetzner Cloud server per refreshed node and waits for
//     it to join the cluster.
package provisioning
