package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"k8s.io/apimachinery/pkg/api/meta"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	if m.Fetched {
		renderProgressBar(&b, m)
		renderRun(&b, m)
		renderNodes(&b, m)
		renderPods(&b, m)
		renderConditions(&b, m)
	}
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render(fmt.Sprintf("noderefresh: %s", m.Name)))

	status := " "
	phase := m.Status.Phase
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case !m.Fetched:
		status += dimStyle.Render("Loading...")
	case m.Paused:
		status += warningStyle.Render("Paused")
	case phase == "":
		status += dimStyle.Render("Pending")
	case phase.IsActive():
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + phaseStyle(phase).Render(string(phase))
	default:
		status += phaseStyle(phase).Render(string(phase))
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m.Status)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	fmt.Fprintf(b, "  %s %d%%  %d/%d nodes\n", bar, int(progress*100),
		len(m.Status.NodesRefreshed), m.Status.TotalNodes)
}

func renderRun(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Run"))
	b.WriteString("\n")

	st := m.Status
	rows := [][2]string{
		{"Run ID", valueOr(st.RunID, "-")},
		{"Message", valueOr(st.Message, "-")},
	}
	if st.StartTime != nil {
		rows = append(rows, [2]string{"Started", timeAgo(m.clock(), st.StartTime.Time)})
	}
	if st.LastRefreshTime != nil {
		rows = append(rows, [2]string{"Last refresh", timeAgo(m.clock(), st.LastRefreshTime.Time)})
	}
	if st.NextRefreshTime != nil {
		rows = append(rows, [2]string{"Next refresh", st.NextRefreshTime.UTC().Format(time.RFC3339)})
	}
	for _, row := range rows {
		fmt.Fprintf(b, "    %-14s %s\n", dimStyle.Render(row[0]), row[1])
	}
}

func renderNodes(b *strings.Builder, m Model) {
	st := m.Status
	if len(st.NodesRefreshed) == 0 && st.CurrentNode == "" {
		return
	}

	b.WriteString(sectionStyle.Render("  Nodes"))
	b.WriteString("\n")

	for _, name := range st.NodesRefreshed {
		fmt.Fprintf(b, "    %s %s\n", readyStyle.Render(checkMark), readyStyle.Render(name))
	}

	if st.CurrentNode == "" {
		return
	}
	icon, style := nodePhaseIcon(st.Phase, m.SpinnerFrame)
	detail := string(st.Phase)
	switch st.Phase {
	case refreshv1.PhaseProvisioning:
		if st.ProvisioningStartTime != nil {
			detail += " " + formatDuration(m.clock().Sub(st.ProvisioningStartTime.Time))
		}
	case refreshv1.PhaseDraining:
		if st.DrainStartTime != nil {
			detail += " " + formatDuration(m.clock().Sub(st.DrainStartTime.Time))
		}
	case refreshv1.PhaseValidating:
		if st.ValidationAttempts > 0 {
			detail += fmt.Sprintf(" (attempt %d)", st.ValidationAttempts+1)
		}
	}
	fmt.Fprintf(b, "    %s %-30s %s\n", style(icon), style(st.CurrentNode), dimStyle.Render(detail))
}

func renderPods(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Pods"))
	b.WriteString("\n")

	fmt.Fprintf(b, "    %s %-14s %d\n", readyStyle.Render(checkMark), "Moved", m.Status.PodsMovedSuccessfully)
	icon, style := checkMark, sf(dimStyle)
	if m.Status.PodsMovesFailed > 0 {
		icon, style = crossMark, sf(failedStyle)
	}
	fmt.Fprintf(b, "    %s %-14s %d\n", style(icon), "Failed", m.Status.PodsMovesFailed)
}

func renderConditions(b *strings.Builder, m Model) {
	if len(m.Status.Conditions) == 0 {
		return
	}

	b.WriteString(sectionStyle.Render("  Conditions"))
	b.WriteString("\n")

	for _, t := range []string{refreshv1.ConditionProgressing, refreshv1.ConditionHealthGate} {
		c := meta.FindStatusCondition(m.Status.Conditions, t)
		if c == nil {
			continue
		}
		icon, style := pending, sf(dimStyle)
		switch {
		case t == refreshv1.ConditionHealthGate && c.Status == "False":
			icon, style = warnMark, sf(warningStyle)
		case c.Status == "True":
			icon, style = checkMark, sf(readyStyle)
		}
		fmt.Fprintf(b, "    %s %-14s %s\n", style(icon), style(t), dimStyle.Render(c.Reason+": "+c.Message))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	parts := []string{fmt.Sprintf("elapsed: %s", formatDuration(m.clock().Sub(m.StartTime)))}
	if !m.LastFetch.IsZero() {
		parts = append(parts, fmt.Sprintf("updated: %s", timeAgo(m.clock(), m.LastFetch)))
	}
	pulse := ""
	if !m.Done && m.Status.Phase.IsActive() {
		pulse = "  |  " + currentSpinner(m.SpinnerFrame) + " refreshing"
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s%s  |  q: quit", strings.Join(parts, "  |  "), pulse)))
	b.WriteString("\n")
}

// Helper functions

func nodePhaseIcon(phase refreshv1.RefreshPhase, frame int) (string, styleFunc) {
	switch phase {
	case refreshv1.PhaseFailed:
		return crossMark, sf(failedStyle)
	case refreshv1.PhaseCompleted:
		return checkMark, sf(readyStyle)
	default:
		return currentSpinner(frame), sf(activeStyle)
	}
}

func currentSpinner(frame int) string {
	if len(spinnerFrames) == 0 {
		return spinner
	}
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

// calculateProgress returns the refreshed fraction of the run's target nodes.
func calculateProgress(st refreshv1.NodeRefreshStatus) float64 {
	if st.Phase == refreshv1.PhaseCompleted {
		return 1.0
	}
	if st.TotalNodes <= 0 {
		return 0
	}
	progress := float64(len(st.NodesRefreshed)) / float64(st.TotalNodes)
	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func timeAgo(now, t time.Time) string {
	return formatDuration(now.Sub(t)) + " ago"
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
