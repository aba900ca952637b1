package provisioning

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/noderefresh/node-refresh-operator/internal/nodes"
)

// CapacityHook waits until the cluster has more schedulable Ready nodes than
// schedulable target nodes, meaning at least one node outside the target set
// can take the evicted pods. It never creates nodes itself; an external
// autoscaler is expected to react to pending pods.
type CapacityHook struct {
	client client.Reader
}

// NewCapacityHook creates a CapacityHook reading nodes through c.
func NewCapacityHook(c client.Reader) *CapacityHook {
	return &CapacityHook{client: c}
}

// Name implements Hook.
func (h *CapacityHook) Name() string { return "capacity" }

// EnsureCapacity implements Hook.
func (h *CapacityHook) EnsureCapacity(ctx context.Context, target Target) (Status, error) {
	list := &corev1.NodeList{}
	if err := h.client.List(ctx, list); err != nil {
		return StatusNotReady, Transient(fmt.Errorf("failed to list nodes: %w", err))
	}

	ready, targets := 0, 0
	for i := range list.Items {
		n := &list.Items[i]
		if n.Spec.Unschedulable {
			continue
		}
		if nodes.IsReady(n) {
			ready++
		}
		if nodes.Matches(n.Labels, target.Selector) {
			targets++
		}
	}
	if ready > targets {
		return StatusReady, nil
	}
	return StatusNotReady, nil
}
