// Package pods classifies pods for eviction and health evaluation.
package pods

import (
	"slices"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const kindDaemonSet = "DaemonSet"

// SystemNamespaces are never drained and never counted by the health gate.
var SystemNamespaces = []string{metav1.NamespaceSystem, metav1.NamespacePublic}

// A FilterFunc returns true if the supplied pod passes the filter.
type FilterFunc func(p *corev1.Pod) bool

// MirrorPodFilter passes pods that were created through the API server rather
// than from a static manifest on the node.
func MirrorPodFilter(p *corev1.Pod) bool {
	_, mirror := p.GetAnnotations()[corev1.MirrorPodAnnotationKey]
	return !mirror
}

// DaemonSetPodFilter passes pods not controlled by a DaemonSet. DaemonSet pods
// tolerate the unschedulable taint and would be recreated on the same node.
func DaemonSetPodFilter(p *corev1.Pod) bool {
	c := metav1.GetControllerOf(p)
	return c == nil || c.Kind != kindDaemonSet
}

// SystemNamespaceFilter passes pods outside kube-system and kube-public.
func SystemNamespaceFilter(p *corev1.Pod) bool {
	return !slices.Contains(SystemNamespaces, p.Namespace)
}

// ActivePodFilter passes pods that are neither finished nor being deleted.
func ActivePodFilter(p *corev1.Pod) bool {
	if p.DeletionTimestamp != nil {
		return false
	}
	return p.Status.Phase != corev1.PodSucceeded && p.Status.Phase != corev1.PodFailed
}

// NamespaceFilter passes pods in one of namespaces. No namespaces passes everything.
func NamespaceFilter(namespaces ...string) FilterFunc {
	return func(p *corev1.Pod) bool {
		return len(namespaces) == 0 || slices.Contains(namespaces, p.Namespace)
	}
}

// All returns a FilterFunc that passes only if every filter passes.
func All(filters ...FilterFunc) FilterFunc {
	return func(p *corev1.Pod) bool {
		for _, fn := range filters {
			if !fn(p) {
				return false
			}
		}
		return true
	}
}

// Movable selects the pods an eviction run is responsible for.
var Movable = All(MirrorPodFilter, DaemonSetPodFilter, SystemNamespaceFilter, ActivePodFilter)

// Workload selects the pods the health gate protects, optionally scoped to namespaces.
func Workload(namespaces ...string) FilterFunc {
	return All(MirrorPodFilter, DaemonSetPodFilter, SystemNamespaceFilter, ActivePodFilter, NamespaceFilter(namespaces...))
}

// Filter returns the pods passing fn, preserving order.
func Filter(items []corev1.Pod, fn FilterFunc) []corev1.Pod {
	out := make([]corev1.Pod, 0, len(items))
	for i := range items {
		if fn(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// IsReady reports whether the pod's Ready condition is True.
func IsReady(p *corev1.Pod) bool {
	for _, c := range p.Status.Conditions {
		if c.Type == corev1.PodReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}
