package controller

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
	"github.com/noderefresh/node-refresh-operator/internal/drain"
	"github.com/noderefresh/node-refresh-operator/internal/health"
)

const (
	kindReplicaSet  = "ReplicaSet"
	kindStatefulSet = "StatefulSet"
	kindDeployment  = "Deployment"
)

// validateNode checks that the cluster recovered from draining the current
// node. It returns the unmet conditions; none means the node is refreshed.
func (r *NodeRefreshReconciler) validateNode(ctx context.Context, nr *refreshv1.NodeRefresh) ([]string, error) {
	var problems []string
	node := nr.Status.CurrentNode

	report, err := r.health.Evaluate(ctx, health.Scope{Namespaces: nr.Spec.HealthNamespaces()})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate health: %w", err)
	}
	r.recordHealth(nr.Name, report.Percent)
	if threshold := nr.Spec.HealthThreshold(); !report.Meets(threshold) {
		problems = append(problems, fmt.Sprintf("cluster health %s is below threshold %d%%", report, threshold))
	}

	remaining, err := r.engine.MovablePods(ctx, node)
	if err != nil {
		return nil, err
	}
	// Pods whose eviction was given up on are already counted as failed moves
	exhausted := r.exhaustedPods(nr.Name, node)
	stuck := 0
	for _, p := range remaining {
		if !exhausted[p.UID] {
			stuck++
		}
	}
	if stuck > 0 {
		problems = append(problems, fmt.Sprintf("%d movable pods still on node %s", stuck, node))
	}

	for _, ref := range nr.Status.EvictedWorkloads {
		ready, detail, err := r.workloadReady(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !ready {
			problems = append(problems, detail)
		}
	}
	return problems, nil
}

// workloadReady reports whether the controller of evicted pods has all its
// replicas ready again. A ReplicaSet owned by a Deployment is judged by the
// Deployment. Deleted owners and other kinds count as ready.
func (r *NodeRefreshReconciler) workloadReady(ctx context.Context, ref refreshv1.WorkloadReference) (bool, string, error) {
	key := client.ObjectKey{Namespace: ref.Namespace, Name: ref.Name}

	switch ref.Kind {
	case kindReplicaSet:
		rs := &appsv1.ReplicaSet{}
		if found, err := r.getOwner(ctx, key, rs); !found || err != nil {
			return true, "", err
		}
		if d := metav1.GetControllerOf(rs); d != nil && d.Kind == kindDeployment {
			return r.workloadReady(ctx, refreshv1.WorkloadReference{Kind: kindDeployment, Namespace: ref.Namespace, Name: d.Name})
		}
		return replicasReady(ref, rs.Spec.Replicas, rs.Status.ReadyReplicas)

	case kindStatefulSet:
		sts := &appsv1.StatefulSet{}
		if found, err := r.getOwner(ctx, key, sts); !found || err != nil {
			return true, "", err
		}
		return replicasReady(ref, sts.Spec.Replicas, sts.Status.ReadyReplicas)

	case kindDeployment:
		d := &appsv1.Deployment{}
		if found, err := r.getOwner(ctx, key, d); !found || err != nil {
			return true, "", err
		}
		return replicasReady(ref, d.Spec.Replicas, d.Status.ReadyReplicas)

	default:
		return true, "", nil
	}
}

// exhaustedPods returns the pods of node whose eviction attempts ran out.
func (r *NodeRefreshReconciler) exhaustedPods(name, node string) map[types.UID]bool {
	out := map[types.UID]bool{}
	t, ok := r.trackers.Get(name)
	if !ok || t.Node() != node {
		return out
	}
	for _, a := range t.Attempts() {
		if a.State == drain.AttemptFailed {
			out[a.UID] = true
		}
	}
	return out
}

func (r *NodeRefreshReconciler) getOwner(ctx context.Context, key client.ObjectKey, obj client.Object) (bool, error) {
	if err := r.Get(ctx, key, obj); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return true, nil
}

func replicasReady(ref refreshv1.WorkloadReference, desired *int32, ready int32) (bool, string, error) {
	want := int32(1)
	if desired != nil {
		want = *desired
	}
	if ready >= want {
		return true, "", nil
	}
	return false, fmt.Sprintf("%s %s/%s has %d/%d ready replicas", ref.Kind, ref.Namespace, ref.Name, ready, want), nil
}
