// Package report summarizes finished refresh runs and archives them to
// object storage as zstd-compressed JSON.
package report

import (
	"time"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

// Report is the archived summary of one run.
type Report struct {
	Name           string    `json:"name"`
	RunID          string    `json:"runID"`
	Phase          string    `json:"phase"`
	Message        string    `json:"message,omitempty"`
	StartedAt      time.Time `json:"startedAt,omitzero"`
	FinishedAt     time.Time `json:"finishedAt"`
	Duration       string    `json:"duration,omitempty"`
	TotalNodes     int32     `json:"totalNodes"`
	NodesRefreshed []string  `json:"nodesRefreshed"`
	// FailedNode is set when the run stopped while processing a node.
	FailedNode            string `json:"failedNode,omitempty"`
	PodsMovedSuccessfully int32  `json:"podsMovedSuccessfully"`
	PodsMovesFailed       int32  `json:"podsMovesFailed"`
}

// FromStatus builds the report of the run recorded in nr's status.
func FromStatus(nr *refreshv1.NodeRefresh, finished time.Time) Report {
	st := nr.Status
	r := Report{
		Name:                  nr.Name,
		RunID:                 st.RunID,
		Phase:                 string(st.Phase),
		Message:               st.Message,
		FinishedAt:            finished.UTC(),
		TotalNodes:            st.TotalNodes,
		NodesRefreshed:        append([]string{}, st.NodesRefreshed...),
		PodsMovedSuccessfully: st.PodsMovedSuccessfully,
		PodsMovesFailed:       st.PodsMovesFailed,
	}
	if st.Phase == refreshv1.PhaseFailed {
		r.FailedNode = st.CurrentNode
	}
	if st.StartTime != nil {
		r.StartedAt = st.StartTime.UTC()
		r.Duration = finished.Sub(st.StartTime.Time).Round(time.Second).String()
	}
	return r
}
