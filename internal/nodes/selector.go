// Package nodes resolves the nodes a refresh run targets.
package nodes

import (
	"context"
	"fmt"
	"slices"
	"sort"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Candidate is a node eligible for refresh.
type Candidate struct {
	Name          string
	Labels        map[string]string
	Unschedulable bool
	Ready         bool
}

// Selector lists target nodes. Each call re-reads the cluster.
type Selector struct {
	client client.Reader
}

// NewSelector creates a Selector reading through c.
func NewSelector(c client.Reader) *Selector {
	return &Selector{client: c}
}

// Candidates returns the nodes matching every pair in selector, excluding the
// names in refreshed, ordered by name.
func (s *Selector) Candidates(ctx context.Context, selector map[string]string, refreshed []string) ([]Candidate, error) {
	if len(selector) == 0 {
		return nil, fmt.Errorf("empty node selector")
	}

	list := &corev1.NodeList{}
	if err := s.client.List(ctx, list, client.MatchingLabels(selector)); err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	out := make([]Candidate, 0, len(list.Items))
	for i := range list.Items {
		n := &list.Items[i]
		if !Matches(n.Labels, selector) || slices.Contains(refreshed, n.Name) {
			continue
		}
		out = append(out, FromNode(n))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Matches reports whether labels contains every key/value pair in selector.
func Matches(labels, selector map[string]string) bool {
	for k, v := range selector {
		if got, ok := labels[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// FromNode converts a Node into a Candidate.
func FromNode(n *corev1.Node) Candidate {
	return Candidate{
		Name:          n.Name,
		Labels:        n.Labels,
		Unschedulable: n.Spec.Unschedulable,
		Ready:         IsReady(n),
	}
}

// IsReady reports whether the node's Ready condition is True.
func IsReady(n *corev1.Node) bool {
	for _, c := range n.Status.Conditions {
		if c.Type == corev1.NodeReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}
