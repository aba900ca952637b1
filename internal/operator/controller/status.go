package controller

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

// Event reasons
const (
	EventReasonRunStarted          = "RunStarted"
	EventReasonRunCompleted        = "RunCompleted"
	EventReasonRunFailed           = "RunFailed"
	EventReasonInvalidSpec         = "InvalidSpec"
	EventReasonProvisioning        = "Provisioning"
	EventReasonProvisioningTimeout = "ProvisioningTimeout"
	EventReasonProvisioningFailed  = "ProvisioningFailed"
	EventReasonDraining            = "Draining"
	EventReasonHealthGateClosed    = "HealthGateClosed"
	EventReasonEvictionFailed      = "PodEvictionFailed"
	EventReasonNodeRefreshed       = "NodeRefreshed"
	EventReasonNodeSkipped         = "NodeSkipped"
	EventReasonValidationFailed    = "ValidationFailed"
	EventReasonScheduled           = "Scheduled"
)

type pendingEvent struct {
	eventType string
	reason    string
	message   string
}

// step carries the desired state of one reconcile and the side effects that
// may only happen once that state is persisted.
type step struct {
	nr  *refreshv1.NodeRefresh
	now time.Time

	events []pendingEvent
	// finished is set when the run reached Completed or Failed in this step.
	finished bool
	// forgetTracker drops the eviction tracker after the write.
	forgetTracker bool
	// refreshed is the node that passed validation in this step.
	refreshed string
}

func newStep(nr *refreshv1.NodeRefresh, now time.Time) *step {
	return &step{nr: nr, now: now.UTC().Truncate(time.Second)}
}

func (s *step) status() *refreshv1.NodeRefreshStatus {
	return &s.nr.Status
}

func (s *step) timestamp() *metav1.Time {
	t := metav1.NewTime(s.now)
	return &t
}

func (s *step) normal(reason, format string, args ...any) {
	s.events = append(s.events, pendingEvent{corev1.EventTypeNormal, reason, fmt.Sprintf(format, args...)})
}

func (s *step) warning(reason, format string, args ...any) {
	s.events = append(s.events, pendingEvent{corev1.EventTypeWarning, reason, fmt.Sprintf(format, args...)})
}

func (s *step) setCondition(condType string, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&s.nr.Status.Conditions, metav1.Condition{
		Type:               condType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: s.nr.Generation,
		LastTransitionTime: metav1.NewTime(s.now),
	})
}

// progressing records the phase on the Progressing condition.
func (s *step) progressing(active bool, reason, message string) {
	status := metav1.ConditionFalse
	if active {
		status = metav1.ConditionTrue
	}
	s.setCondition(refreshv1.ConditionProgressing, status, reason, message)
}

// writeStatus persists desired.Status unless it is semantically equal to
// current.Status. It reports whether a write happened.
func (r *NodeRefreshReconciler) writeStatus(ctx context.Context, current, desired *refreshv1.NodeRefresh) (bool, error) {
	if equality.Semantic.DeepEqual(current.Status, desired.Status) {
		return false, nil
	}
	if err := r.Status().Update(ctx, desired); err != nil {
		return false, err
	}
	return true, nil
}

// flush emits the step's events once its status is persisted.
func (r *NodeRefreshReconciler) flush(s *step) {
	if r.Recorder == nil {
		return
	}
	for _, e := range s.events {
		r.Recorder.Event(s.nr, e.eventType, e.reason, e.message)
	}
}
