package labels

import (
	"sort"
	"strings"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

// KeyManagedBy identifies the management system.
const KeyManagedBy = "noderefresh.io/managed-by"

// ManagedByOperator is the value of KeyManagedBy on everything the operator creates.
const ManagedByOperator = "node-refresh-operator"

// LabelBuilder provides a fluent interface for building resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder for resources owned by the named NodeRefresh.
func NewLabelBuilder(owner string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			refreshv1.LabelOwner: owner,
			KeyManagedBy:         ManagedByOperator,
		},
	}
}

// WithRun adds the refresh run ID.
func (lb *LabelBuilder) WithRun(runID string) *LabelBuilder {
	if runID != "" {
		lb.labels[refreshv1.LabelRunID] = runID
	}
	return lb
}

// WithReplaces records the node a resource stands in for.
func (lb *LabelBuilder) WithReplaces(node string) *LabelBuilder {
	if node != "" {
		lb.labels[refreshv1.LabelReplaces] = node
	}
	return lb
}

// Merge adds all labels from extra. Reserved keys set by the builder win.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		if _, reserved := lb.labels[k]; reserved {
			continue
		}
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// Selector renders labels as a comma separated equality selector with sorted keys.
func Selector(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}

// SelectorForReplacement selects the resource created for node by owner.
func SelectorForReplacement(owner, node string) string {
	return Selector(map[string]string{
		refreshv1.LabelOwner:    owner,
		refreshv1.LabelReplaces: node,
	})
}
