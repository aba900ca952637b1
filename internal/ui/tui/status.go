package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

// PollInterval is how often the dashboard re-reads the resource.
const PollInterval = 3 * time.Second

// RunStatusTUI shows a live dashboard for the named NodeRefresh until the user quits.
// With exitOnFinish it also returns once the run completes or fails.
func RunStatusTUI(ctx context.Context, k8sClient client.Client, name string, exitOnFinish bool) error {
	m := NewStatusModel(name)
	m.ExitOnFinish = exitOnFinish

	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		ticker := time.NewTicker(PollInterval)
		defer ticker.Stop()

		// Fetch immediately with a short timeout to avoid hanging
		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		p.Send(FetchStatus(fetchCtx, k8sClient, name))
		cancel()

		for {
			select {
			case <-ctx.Done():
				p.Send(ErrMsg{Err: ctx.Err()})
				return
			case <-ticker.C:
				p.Send(FetchStatus(ctx, k8sClient, name))
			}
		}
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	if fm.Err != nil {
		return fm.Err
	}
	return nil
}

// FetchStatus reads the named NodeRefresh and converts it into a StatusMsg.
func FetchStatus(ctx context.Context, k8sClient client.Client, name string) StatusMsg {
	nr := &refreshv1.NodeRefresh{}
	if err := k8sClient.Get(ctx, client.ObjectKey{Name: name}, nr); err != nil {
		if apierrors.IsNotFound(err) {
			return StatusMsg{NotFound: true}
		}
		return StatusMsg{FetchErr: err.Error()}
	}
	return StatusMsg{
		Status:     nr.Status,
		Paused:     nr.Spec.Paused,
		Generation: nr.Generation,
	}
}

// RenderStatusOnce renders the dashboard a single time (non-watch mode).
func RenderStatusOnce(name string, msg StatusMsg) string {
	m := NewStatusModel(name)
	m.updateStatus(msg)
	return renderView(m)
}
