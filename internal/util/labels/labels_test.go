package labels

import (
	"testing"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

func TestNewLabelBuilder(t *testing.T) {
	t.Parallel()
	labels := NewLabelBuilder("weekly").Build()

	if labels[refreshv1.LabelOwner] != "weekly" {
		t.Errorf("expected owner label %q, got %q", "weekly", labels[refreshv1.LabelOwner])
	}
	if labels[KeyManagedBy] != ManagedByOperator {
		t.Errorf("expected %s=%q, got %q", KeyManagedBy, ManagedByOperator, labels[KeyManagedBy])
	}
	if len(labels) != 2 {
		t.Errorf("expected 2 labels, got %d", len(labels))
	}
}

func TestBuilderChain(t *testing.T) {
	t.Parallel()
	labels := NewLabelBuilder("weekly").
		WithRun("run-1").
		WithReplaces("worker-a").
		Merge(map[string]string{"team": "platform", refreshv1.LabelOwner: "other"}).
		Build()

	want := map[string]string{
		refreshv1.LabelOwner:    "weekly",
		refreshv1.LabelRunID:    "run-1",
		refreshv1.LabelReplaces: "worker-a",
		KeyManagedBy:            ManagedByOperator,
		"team":                  "platform",
	}
	if len(labels) != len(want) {
		t.Fatalf("expected %d labels, got %v", len(want), labels)
	}
	for k, v := range want {
		if labels[k] != v {
			t.Errorf("expected %s=%q, got %q", k, v, labels[k])
		}
	}
}

func TestEmptyValuesSkipped(t *testing.T) {
	t.Parallel()
	labels := NewLabelBuilder("weekly").WithRun("").WithReplaces("").Build()
	if _, ok := labels[refreshv1.LabelRunID]; ok {
		t.Error("empty run ID should not be set")
	}
	if _, ok := labels[refreshv1.LabelReplaces]; ok {
		t.Error("empty node should not be set")
	}
}

func TestBuildReturnsCopy(t *testing.T) {
	t.Parallel()
	lb := NewLabelBuilder("weekly")
	first := lb.Build()
	first["mutated"] = "yes"
	if _, ok := lb.Build()["mutated"]; ok {
		t.Error("Build should return an independent copy")
	}
}

func TestSelectors(t *testing.T) {
	t.Parallel()
	got := Selector(map[string]string{"b": "2", "a": "1"})
	if got != "a=1,b=2" {
		t.Errorf("expected sorted selector, got %q", got)
	}

	got = SelectorForReplacement("weekly", "worker-a")
	want := "noderefresh.io/owner=weekly,noderefresh.io/replaces=worker-a"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
