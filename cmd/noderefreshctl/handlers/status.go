package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/table"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"sigs.k8s.io/controller-runtime/pkg/client"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
	"github.com/noderefresh/node-refresh-operator/internal/ui/tui"
)

// watchInterval is the refresh period of the non-interactive watch loop.
var watchInterval = 5 * time.Second

// RefreshSummary is the machine-readable view of one NodeRefresh.
type RefreshSummary struct {
	Name                  string   `json:"name"`
	Phase                 string   `json:"phase"`
	Paused                bool     `json:"paused,omitempty"`
	Message               string   `json:"message,omitempty"`
	RunID                 string   `json:"runID,omitempty"`
	CurrentNode           string   `json:"currentNode,omitempty"`
	NodesRefreshed        []string `json:"nodesRefreshed,omitempty"`
	TotalNodes            int32    `json:"totalNodes"`
	PodsMovedSuccessfully int32    `json:"podsMovedSuccessfully"`
	PodsMovesFailed       int32    `json:"podsMovesFailed"`
	HealthGate            string   `json:"healthGate,omitempty"`
	LastRefreshTime       string   `json:"lastRefreshTime,omitempty"`
	NextRefreshTime       string   `json:"nextRefreshTime,omitempty"`
}

// Status handles the status command.
//
// Without a name every NodeRefresh is listed. With a name the resource is shown
// in detail, or as a live dashboard when watching on a terminal.
func Status(ctx context.Context, kubeconfig, name string, watch, jsonOutput bool) error {
	k8sClient, err := newKubeClient(kubeconfig)
	if err != nil {
		return err
	}

	if name != "" && watch && !jsonOutput && isInteractiveTTY() {
		return tui.RunStatusTUI(ctx, k8sClient, name, false)
	}

	show := func() error {
		if name == "" {
			return showAll(ctx, k8sClient, jsonOutput)
		}
		return showOne(ctx, k8sClient, name, jsonOutput)
	}

	if !watch {
		return show()
	}
	return statusWatch(ctx, show, jsonOutput)
}

// statusWatch redraws the status until ctx is canceled.
func statusWatch(ctx context.Context, show func() error, jsonOutput bool) error {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	if err := show(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !jsonOutput {
				fmt.Print("\033[H\033[2J")
			}
			if err := show(); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		}
	}
}

func showAll(ctx context.Context, k8sClient client.Client, jsonOutput bool) error {
	list := &refreshv1.NodeRefreshList{}
	if err := k8sClient.List(ctx, list); err != nil {
		return fmt.Errorf("failed to list NodeRefresh resources: %w", err)
	}

	summaries := make([]RefreshSummary, 0, len(list.Items))
	for i := range list.Items {
		summaries = append(summaries, summarize(&list.Items[i]))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })

	if jsonOutput {
		return printJSON(summaries)
	}
	if len(summaries) == 0 {
		fmt.Println("No NodeRefresh resources found.")
		return nil
	}
	fmt.Println(renderTable(summaries))
	return nil
}

func showOne(ctx context.Context, k8sClient client.Client, name string, jsonOutput bool) error {
	nr := &refreshv1.NodeRefresh{}
	if err := k8sClient.Get(ctx, client.ObjectKey{Name: name}, nr); err != nil {
		if apierrors.IsNotFound(err) {
			return fmt.Errorf("NodeRefresh %q not found", name)
		}
		return fmt.Errorf("failed to get NodeRefresh %q: %w", name, err)
	}

	if jsonOutput {
		return printJSON(summarize(nr))
	}
	if isInteractiveTTY() {
		fmt.Print(tui.RenderStatusOnce(name, tui.StatusMsg{
			Status:     nr.Status,
			Paused:     nr.Spec.Paused,
			Generation: nr.Generation,
		}))
		return nil
	}
	printSummary(summarize(nr))
	return nil
}

// summarize flattens a NodeRefresh into a RefreshSummary.
func summarize(nr *refreshv1.NodeRefresh) RefreshSummary {
	st := nr.Status
	s := RefreshSummary{
		Name:                  nr.Name,
		Phase:                 string(st.Phase),
		Paused:                nr.Spec.Paused,
		Message:               st.Message,
		RunID:                 st.RunID,
		CurrentNode:           st.CurrentNode,
		NodesRefreshed:        st.NodesRefreshed,
		TotalNodes:            st.TotalNodes,
		PodsMovedSuccessfully: st.PodsMovedSuccessfully,
		PodsMovesFailed:       st.PodsMovesFailed,
	}
	if s.Phase == "" {
		s.Phase = "Pending"
	}
	if c := meta.FindStatusCondition(st.Conditions, refreshv1.ConditionHealthGate); c != nil {
		s.HealthGate = string(c.Status)
	}
	if st.LastRefreshTime != nil {
		s.LastRefreshTime = st.LastRefreshTime.UTC().Format(time.RFC3339)
	}
	if st.NextRefreshTime != nil {
		s.NextRefreshTime = st.NextRefreshTime.UTC().Format(time.RFC3339)
	}
	return s
}

func renderTable(summaries []RefreshSummary) string {
	t := table.New().
		Headers("NAME", "PHASE", "PROGRESS", "CURRENT", "MOVED", "FAILED", "NEXT")
	for _, s := range summaries {
		phase := s.Phase
		if s.Paused {
			phase += " (paused)"
		}
		t.Row(
			s.Name,
			phaseIndicator(s.Phase)+" "+phase,
			fmt.Sprintf("%d/%d", len(s.NodesRefreshed), s.TotalNodes),
			valueOr(s.CurrentNode, "-"),
			fmt.Sprintf("%d", s.PodsMovedSuccessfully),
			fmt.Sprintf("%d", s.PodsMovesFailed),
			valueOr(s.NextRefreshTime, "-"),
		)
	}
	return t.Render()
}

func printSummary(s RefreshSummary) {
	fmt.Println()
	fmt.Printf("NodeRefresh: %s\n", s.Name)
	fmt.Println(strings.Repeat("=", len("NodeRefresh: ")+len(s.Name)))
	fmt.Printf("  %s Phase:    %s", phaseIndicator(s.Phase), s.Phase)
	if s.Paused {
		fmt.Print(" (paused)")
	}
	fmt.Println()
	if s.Message != "" {
		fmt.Printf("  Message:  %s\n", s.Message)
	}
	if s.RunID != "" {
		fmt.Printf("  Run:      %s\n", s.RunID)
	}
	fmt.Printf("  Progress: %d/%d nodes\n", len(s.NodesRefreshed), s.TotalNodes)
	if s.CurrentNode != "" {
		fmt.Printf("  Current:  %s\n", s.CurrentNode)
	}
	if len(s.NodesRefreshed) > 0 {
		fmt.Printf("  Done:     %s\n", strings.Join(s.NodesRefreshed, ", "))
	}
	fmt.Printf("  Pods:     %d moved, %d failed\n", s.PodsMovedSuccessfully, s.PodsMovesFailed)
	if s.HealthGate == "False" {
		fmt.Println("  Health:   below threshold, eviction paused")
	}
	if s.LastRefreshTime != "" {
		fmt.Printf("  Last:     %s\n", s.LastRefreshTime)
	}
	if s.NextRefreshTime != "" {
		fmt.Printf("  Next:     %s\n", s.NextRefreshTime)
	}
	fmt.Println()
}

// phaseIndicator returns a short marker for a refresh phase.
func phaseIndicator(phase string) string {
	switch refreshv1.RefreshPhase(phase) {
	case refreshv1.PhaseCompleted:
		return "[OK]"
	case refreshv1.PhaseFailed:
		return "[!!]"
	case refreshv1.PhaseProvisioning, refreshv1.PhaseDraining, refreshv1.PhaseValidating:
		return "[..]"
	default:
		return "[  ]"
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
