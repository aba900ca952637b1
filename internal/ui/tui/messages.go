// Package tui provides a Bubble Tea-based terminal dashboard for NodeRefresh runs.
package tui

import refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"

// StatusMsg carries the latest NodeRefresh status fetched from the cluster.
type StatusMsg struct {
	Status     refreshv1.NodeRefreshStatus
	Paused     bool
	Generation int64
	NotFound   bool
	FetchErr   string
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that watching is over.
type DoneMsg struct{}
