// Package health measures how much of the cluster's workload is Ready.
package health

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/noderefresh/node-refresh-operator/internal/pods"
)

// Scope narrows the pods considered. An empty scope covers every non-system namespace.
type Scope struct {
	Namespaces []string
}

// Report is the outcome of one evaluation.
type Report struct {
	Ready   int
	Total   int
	Percent int
}

// Meets reports whether the measured percentage is at least threshold.
func (r Report) Meets(threshold int) bool {
	return r.Percent >= threshold
}

func (r Report) String() string {
	return fmt.Sprintf("%d%% (%d/%d pods ready)", r.Percent, r.Ready, r.Total)
}

// Evaluator computes workload health from live pod state. It never writes.
type Evaluator struct {
	client client.Reader
}

// NewEvaluator creates an Evaluator reading through c.
func NewEvaluator(c client.Reader) *Evaluator {
	return &Evaluator{client: c}
}

// Evaluate returns floor(ready*100/total) over the workload pods in scope.
// Zero pods in scope counts as fully healthy.
func (e *Evaluator) Evaluate(ctx context.Context, scope Scope) (Report, error) {
	var items []corev1.Pod
	if len(scope.Namespaces) == 0 {
		list := &corev1.PodList{}
		if err := e.client.List(ctx, list); err != nil {
			return Report{}, fmt.Errorf("failed to list pods: %w", err)
		}
		items = list.Items
	} else {
		for _, ns := range scope.Namespaces {
			list := &corev1.PodList{}
			if err := e.client.List(ctx, list, client.InNamespace(ns)); err != nil {
				return Report{}, fmt.Errorf("failed to list pods in namespace %s: %w", ns, err)
			}
			items = append(items, list.Items...)
		}
	}

	return Compute(pods.Filter(items, pods.Workload(scope.Namespaces...))), nil
}

// Compute builds a Report from already filtered pods.
func Compute(items []corev1.Pod) Report {
	r := Report{Total: len(items)}
	for i := range items {
		if pods.IsReady(&items[i]) {
			r.Ready++
		}
	}
	if r.Total == 0 {
		r.Percent = 100
		return r
	}
	r.Percent = r.Ready * 100 / r.Total
	return r
}
