package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"k8s.io/apimachinery/pkg/util/validation"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
	"github.com/noderefresh/node-refresh-operator/internal/schedule"
)

// WizardResult holds the answers collected by the init wizard.
type WizardResult struct {
	Name             string
	TargetLabels     string
	MaxPods          string
	MinHealth        string
	Schedule         string
	GracePeriod      string
	ProvisionTimeout string
	Namespaces       string
}

// defaultWizardResult pre-fills every answer with the schema default.
func defaultWizardResult() *WizardResult {
	return &WizardResult{
		MaxPods:          strconv.Itoa(int(refreshv1.DefaultMaxPodsToMoveAtOnce)),
		MinHealth:        strconv.Itoa(int(refreshv1.DefaultMinHealthThreshold)),
		GracePeriod:      strconv.FormatInt(refreshv1.DefaultGracePeriodSeconds, 10),
		ProvisionTimeout: strconv.Itoa(int(refreshv1.DefaultNodeProvisionTimeout)),
	}
}

// RunWizard asks for the NodeRefresh settings interactively.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := defaultWizardResult()

	form := huh.NewForm(
		// Target
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("Name of the NodeRefresh resource").
				Placeholder("workers").
				Value(&result.Name).
				Validate(validateName),

			huh.NewInput().
				Title("Target node labels").
				Description("Comma-separated key=value pairs. Every pair must match.").
				Placeholder("node-role.kubernetes.io/worker=").
				Value(&result.TargetLabels).
				Validate(func(s string) error {
					_, err := parseLabels(s)
					return err
				}),
		),

		// Safety
		huh.NewGroup(
			huh.NewInput().
				Title("Pods to move at once").
				Description("Upper bound on concurrent evictions").
				Value(&result.MaxPods).
				Validate(validateIntRange(1, 1000)),

			huh.NewInput().
				Title("Minimum health (%)").
				Description("Eviction pauses while fewer workload pods are Ready").
				Value(&result.MinHealth).
				Validate(validateIntRange(0, 100)),

			huh.NewInput().
				Title("Grace period (seconds)").
				Description("Termination grace period for evicted pods").
				Value(&result.GracePeriod).
				Validate(validateIntRange(0, 86400)),

			huh.NewInput().
				Title("Provisioning timeout (seconds)").
				Description("How long to wait for replacement capacity").
				Value(&result.ProvisionTimeout).
				Validate(validateIntRange(1, 86400)),
		),

		// Optional
		huh.NewGroup(
			huh.NewInput().
				Title("Refresh schedule (optional)").
				Description("5-field cron expression in UTC. Leave empty to run once.").
				Placeholder("0 3 * * 0").
				Value(&result.Schedule).
				Validate(schedule.Validate),

			huh.NewInput().
				Title("Health namespaces (optional)").
				Description("Comma-separated. Empty means all non-system namespaces.").
				Value(&result.Namespaces),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

// ToNodeRefresh converts the wizard answers into a NodeRefresh manifest.
func (r *WizardResult) ToNodeRefresh() (*refreshv1.NodeRefresh, error) {
	labels, err := parseLabels(r.TargetLabels)
	if err != nil {
		return nil, err
	}
	maxPods, err := atoiOr(r.MaxPods, int(refreshv1.DefaultMaxPodsToMoveAtOnce))
	if err != nil {
		return nil, fmt.Errorf("pods to move at once: %w", err)
	}
	minHealth, err := atoiOr(r.MinHealth, int(refreshv1.DefaultMinHealthThreshold))
	if err != nil {
		return nil, fmt.Errorf("minimum health: %w", err)
	}
	grace, err := atoiOr(r.GracePeriod, int(refreshv1.DefaultGracePeriodSeconds))
	if err != nil {
		return nil, fmt.Errorf("grace period: %w", err)
	}
	timeout, err := atoiOr(r.ProvisionTimeout, int(refreshv1.DefaultNodeProvisionTimeout))
	if err != nil {
		return nil, fmt.Errorf("provisioning timeout: %w", err)
	}

	health := int32(minHealth)
	grace64 := int64(grace)
	nr := &refreshv1.NodeRefresh{
		Spec: refreshv1.NodeRefreshSpec{
			TargetNodeLabels:     labels,
			MaxPodsToMoveAtOnce:  int32(maxPods),
			MinHealthThreshold:   &health,
			RefreshSchedule:      strings.TrimSpace(r.Schedule),
			GracePeriodSeconds:   &grace64,
			NodeProvisionTimeout: int32(timeout),
		},
	}
	nr.APIVersion = refreshv1.GroupVersion.String()
	nr.Kind = "NodeRefresh"
	nr.Name = strings.TrimSpace(r.Name)

	if ns := splitList(r.Namespaces); len(ns) > 0 {
		nr.Spec.HealthScope = &refreshv1.HealthScope{Namespaces: ns}
	}

	if err := validateName(nr.Name); err != nil {
		return nil, err
	}
	if err := nr.Spec.Validate(); err != nil {
		return nil, err
	}
	if err := schedule.Validate(nr.Spec.RefreshSchedule); err != nil {
		return nil, err
	}
	return nr, nil
}

// parseLabels parses "k1=v1,k2=v2". A key without "=" selects an empty value.
func parseLabels(s string) (map[string]string, error) {
	labels := make(map[string]string)
	for _, pair := range splitList(s) {
		key, value, _ := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if errs := validation.IsQualifiedName(key); len(errs) > 0 {
			return nil, fmt.Errorf("invalid label key %q: %s", key, strings.Join(errs, "; "))
		}
		if errs := validation.IsValidLabelValue(value); len(errs) > 0 {
			return nil, fmt.Errorf("invalid label value %q: %s", value, strings.Join(errs, "; "))
		}
		labels[key] = value
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("at least one target label is required")
	}
	return labels, nil
}

func validateName(s string) error {
	if s == "" {
		return fmt.Errorf("name is required")
	}
	if errs := validation.IsDNS1123Subdomain(s); len(errs) > 0 {
		return fmt.Errorf("invalid name %q: %s", s, strings.Join(errs, "; "))
	}
	return nil
}

func validateIntRange(lo, hi int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func atoiOr(s string, fallback int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
