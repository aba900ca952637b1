package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
	"github.com/noderefresh/node-refresh-operator/internal/drain"
	"github.com/noderefresh/node-refresh-operator/internal/health"
	"github.com/noderefresh/node-refresh-operator/internal/nodes"
	"github.com/noderefresh/node-refresh-operator/internal/provisioning"
	"github.com/noderefresh/node-refresh-operator/internal/schedule"
)

const msgNoNodes = "No nodes match the target labels"

// reconcile advances the state machine of s.nr by one step. A returned error
// discards the step: nothing is written and the request is retried.
func (r *NodeRefreshReconciler) reconcile(ctx context.Context, s *step) (ctrl.Result, error) {
	nr := s.nr
	st := s.status()

	if err := validateSpec(&nr.Spec); err != nil {
		return r.rejectSpec(ctx, s, err), nil
	}

	if st.Phase == "" {
		st.Phase = refreshv1.PhaseIdle
	}

	// A spec change after a finished run starts over
	if st.Phase.IsTerminal() && nr.Generation != st.ObservedGeneration {
		r.resetForSpecChange(ctx, s)
	}

	switch st.Phase {
	case refreshv1.PhaseIdle:
		return r.reconcileIdle(ctx, s)
	case refreshv1.PhaseProvisioning:
		return r.reconcileProvisioning(ctx, s)
	case refreshv1.PhaseDraining:
		return r.reconcileDraining(ctx, s)
	case refreshv1.PhaseValidating:
		return r.reconcileValidating(ctx, s)
	case refreshv1.PhaseCompleted, refreshv1.PhaseFailed:
		return r.reconcileFinished(ctx, s)
	default:
		return ctrl.Result{}, fmt.Errorf("unknown phase %q", st.Phase)
	}
}

func validateSpec(spec *refreshv1.NodeRefreshSpec) error {
	errs := []error{spec.Validate()}
	if spec.RefreshSchedule != "" {
		if err := schedule.Validate(spec.RefreshSchedule); err != nil {
			errs = append(errs, fmt.Errorf("refreshSchedule: %w", err))
		}
	}
	return errors.Join(errs...)
}

// rejectSpec fails the run once per invalid spec. It does not requeue: the
// next spec change triggers a reconcile.
func (r *NodeRefreshReconciler) rejectSpec(ctx context.Context, s *step, err error) ctrl.Result {
	st := s.status()
	msg := "Invalid spec: " + strings.ReplaceAll(err.Error(), "\n", "; ")

	if st.Phase == refreshv1.PhaseFailed && st.Message == msg {
		return ctrl.Result{}
	}

	log.FromContext(ctx).Info("rejecting invalid spec", "error", err)
	s.warning(EventReasonInvalidSpec, "%s", msg)
	r.fail(s, refreshv1.ReasonInvalidSpec, msg)
	st.NextRefreshTime = nil
	return ctrl.Result{}
}

func (r *NodeRefreshReconciler) resetForSpecChange(ctx context.Context, s *step) {
	st := s.status()
	log.FromContext(ctx).Info("spec changed after run finished, resetting", "generation", s.nr.Generation)

	st.Phase = refreshv1.PhaseIdle
	st.CurrentNode = ""
	clearNodeProgress(st)
	st.NextRefreshTime = r.nextRun(s)
	s.forgetTracker = true
}

func (r *NodeRefreshReconciler) reconcileIdle(ctx context.Context, s *step) (ctrl.Result, error) {
	st := s.status()
	if next := st.NextRefreshTime; next != nil && s.now.Before(next.Time) {
		st.Message = fmt.Sprintf("Next refresh scheduled at %s", next.UTC().Format(time.RFC3339))
		return ctrl.Result{RequeueAfter: next.Sub(s.now)}, nil
	}
	return r.startRun(ctx, s)
}

// startRun resets run counters, snapshots the target nodes and begins with the first one.
func (r *NodeRefreshReconciler) startRun(ctx context.Context, s *step) (ctrl.Result, error) {
	nr := s.nr
	st := s.status()

	candidates, err := r.selector.Candidates(ctx, nr.Spec.TargetNodeLabels, nil)
	if err != nil {
		return ctrl.Result{}, err
	}

	st.RunID = uuid.NewString()
	st.StartTime = s.timestamp()
	st.NodesRefreshed = nil
	st.PendingNodes = nil
	st.TotalNodes = int32(len(candidates))
	st.PodsMovedSuccessfully = 0
	st.PodsMovesFailed = 0
	st.NextRefreshTime = nil
	st.CurrentNode = ""
	clearNodeProgress(st)
	meta.RemoveStatusCondition(&st.Conditions, refreshv1.ConditionHealthGate)
	s.forgetTracker = true

	log.FromContext(ctx).Info("starting refresh run", "runID", st.RunID, "nodes", len(candidates))
	s.normal(EventReasonRunStarted, "Starting refresh run %s for %d nodes", st.RunID, len(candidates))

	if len(candidates) == 0 {
		r.complete(s, msgNoNodes)
		return ctrl.Result{}, nil
	}

	for _, c := range candidates[1:] {
		st.PendingNodes = append(st.PendingNodes, c.Name)
	}
	r.beginNode(s, candidates[0].Name)
	return ctrl.Result{Requeue: true}, nil
}

func (r *NodeRefreshReconciler) beginNode(s *step, name string) {
	st := s.status()
	st.Phase = refreshv1.PhaseProvisioning
	st.CurrentNode = name
	clearNodeProgress(st)
	st.ProvisioningStartTime = s.timestamp()

	msg := fmt.Sprintf("Ensuring replacement capacity for node %s", name)
	st.Message = msg
	s.progressing(true, refreshv1.ReasonNodeProvisioning, msg)
	s.normal(EventReasonProvisioning, "%s", msg)
}

func (r *NodeRefreshReconciler) reconcileProvisioning(ctx context.Context, s *step) (ctrl.Result, error) {
	nr := s.nr
	st := s.status()
	node := st.CurrentNode

	exists, err := r.nodeExists(ctx, node)
	if err != nil {
		return ctrl.Result{}, err
	}
	if !exists {
		return r.skipNode(ctx, s)
	}

	if st.ProvisioningStartTime == nil {
		st.ProvisioningStartTime = s.timestamp()
	}
	timeout := nr.Spec.ProvisionTimeout()
	target := provisioning.Target{
		Node:     node,
		Owner:    nr.Name,
		RunID:    st.RunID,
		Selector: nr.Spec.TargetNodeLabels,
	}

	d, err := r.gate.Check(ctx, target, st.ProvisioningStartTime.Time, timeout)
	if err != nil {
		msg := fmt.Sprintf("Provisioning replacement capacity for node %s failed: %v", node, err)
		s.warning(EventReasonProvisioningFailed, "%s", msg)
		r.fail(s, refreshv1.ReasonProvisioningFailed, msg)
		return ctrl.Result{}, nil
	}

	switch {
	case d.Ready:
		r.recordProvisioningDuration(nr.Name, r.hook.Name(), d.Elapsed.Seconds())
		st.Phase = refreshv1.PhaseDraining
		st.DrainStartTime = s.timestamp()
		msg := fmt.Sprintf("Draining node %s", node)
		st.Message = msg
		s.progressing(true, refreshv1.ReasonNodeDraining, msg)
		s.normal(EventReasonDraining, "%s", msg)
		return ctrl.Result{Requeue: true}, nil

	case d.TimedOut:
		msg := fmt.Sprintf("Timed out after %s waiting for replacement capacity for node %s", timeout, node)
		s.warning(EventReasonProvisioningTimeout, "%s", msg)
		r.fail(s, refreshv1.ReasonProvisioningTimeout, msg)
		return ctrl.Result{}, nil
	}

	msg := fmt.Sprintf("Waiting for replacement capacity for node %s", node)
	if d.Detail != "" {
		msg += ": " + d.Detail
	}
	st.Message = msg

	wait := r.cfg.ProvisionPollInterval
	if remaining := timeout - d.Elapsed; remaining > 0 && remaining < wait {
		wait = remaining
	}
	if wait < time.Second {
		wait = time.Second
	}
	return ctrl.Result{RequeueAfter: wait}, nil
}

func (r *NodeRefreshReconciler) reconcileDraining(ctx context.Context, s *step) (ctrl.Result, error) {
	nr := s.nr
	st := s.status()
	node := st.CurrentNode
	threshold := nr.Spec.HealthThreshold()

	tracker := r.trackers.For(nr.Name, nr.UID, node)
	res, err := r.engine.Step(ctx, drain.Request{
		Node:               node,
		MaxBatch:           nr.Spec.MaxBatchSize(),
		GracePeriodSeconds: nr.Spec.GracePeriod(),
		HealthThreshold:    threshold,
		HealthScope:        health.Scope{Namespaces: nr.Spec.HealthNamespaces()},
		Tracker:            tracker,
	})
	if errors.Is(err, drain.ErrNodeNotFound) {
		return r.skipNode(ctx, s)
	}
	if err != nil {
		return ctrl.Result{}, err
	}

	// Counts staged since the last persisted write
	succeeded, failed, owners := tracker.Staged()
	st.PodsMovedSuccessfully += int32(succeeded)
	st.PodsMovesFailed += int32(failed)
	st.EvictedWorkloads = drain.Owners(st.EvictedWorkloads, owners)

	r.recordEvictions(nr.Name, len(res.Evicted), len(res.Exhausted))
	for _, pod := range res.Exhausted {
		s.warning(EventReasonEvictionFailed, "Giving up on evicting pod %s from node %s", pod, node)
	}

	if res.Health != nil {
		r.recordHealth(nr.Name, res.Health.Percent)
		if res.Paused {
			msg := fmt.Sprintf("Cluster health %s is below threshold %d%%", res.Health, threshold)
			if !meta.IsStatusConditionFalse(st.Conditions, refreshv1.ConditionHealthGate) {
				s.warning(EventReasonHealthGateClosed, "%s", msg)
			}
			s.setCondition(refreshv1.ConditionHealthGate, metav1.ConditionFalse, refreshv1.ReasonHealthBelowMinimum, msg)
		} else {
			s.setCondition(refreshv1.ConditionHealthGate, metav1.ConditionTrue, refreshv1.ReasonHealthy,
				fmt.Sprintf("Cluster health %s meets threshold %d%%", res.Health, threshold))
		}
	}

	if res.Done {
		// The tracker is kept until validation so exhausted pods are known
		st.Phase = refreshv1.PhaseValidating
		st.ValidationAttempts = 0
		st.LastValidationTime = nil
		msg := fmt.Sprintf("Node %s drained, validating workloads", node)
		st.Message = msg
		s.progressing(true, refreshv1.ReasonNodeValidating, msg)
		return ctrl.Result{Requeue: true}, nil
	}

	st.Message = res.Message
	if res.RequeueAfter <= 0 {
		return ctrl.Result{Requeue: true}, nil
	}
	return ctrl.Result{RequeueAfter: res.RequeueAfter}, nil
}

func (r *NodeRefreshReconciler) reconcileValidating(ctx context.Context, s *step) (ctrl.Result, error) {
	nr := s.nr
	st := s.status()
	node := st.CurrentNode
	interval := r.cfg.ValidationInterval

	if last := st.LastValidationTime; last != nil {
		if due := last.Add(interval); s.now.Before(due) {
			return ctrl.Result{RequeueAfter: due.Sub(s.now)}, nil
		}
	}

	exists, err := r.nodeExists(ctx, node)
	if err != nil {
		return ctrl.Result{}, err
	}
	if !exists {
		return r.skipNode(ctx, s)
	}

	problems, err := r.validateNode(ctx, nr)
	if err != nil {
		return ctrl.Result{}, err
	}

	if len(problems) == 0 {
		st.NodesRefreshed = append(st.NodesRefreshed, node)
		s.refreshed = node
		s.normal(EventReasonNodeRefreshed, "Node %s refreshed (%d/%d)", node, len(st.NodesRefreshed), st.TotalNodes)
		log.FromContext(ctx).Info("node refreshed", "node", node, "refreshed", len(st.NodesRefreshed), "total", st.TotalNodes)
		return r.advance(ctx, s, "")
	}

	st.ValidationAttempts++
	st.LastValidationTime = s.timestamp()
	detail := strings.Join(problems, "; ")

	maxAttempts := r.cfg.MaxValidationAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if int(st.ValidationAttempts) >= maxAttempts {
		msg := fmt.Sprintf("Validation of node %s failed after %d attempts: %s", node, st.ValidationAttempts, detail)
		s.warning(EventReasonValidationFailed, "%s", msg)
		r.fail(s, refreshv1.ReasonValidationFailed, msg)
		return ctrl.Result{}, nil
	}

	st.Message = fmt.Sprintf("Validating node %s (attempt %d/%d): %s", node, st.ValidationAttempts, maxAttempts, detail)
	return ctrl.Result{RequeueAfter: interval}, nil
}

// skipNode drops a node that disappeared mid-run. It no longer counts toward
// totalNodes, so a finished run still has len(nodesRefreshed) == totalNodes.
func (r *NodeRefreshReconciler) skipNode(ctx context.Context, s *step) (ctrl.Result, error) {
	st := s.status()
	node := st.CurrentNode
	note := fmt.Sprintf("Node %s no longer exists, skipped", node)

	if st.TotalNodes > 0 {
		st.TotalNodes--
	}
	s.forgetTracker = true
	log.FromContext(ctx).Info("node disappeared during refresh, skipping", "node", node)
	s.warning(EventReasonNodeSkipped, "%s", note)
	return r.advance(ctx, s, note)
}

// advance moves to the next pending node or completes the run. Only nodes
// snapshotted at run start are refreshed; nodes that joined since are left
// alone. note is prefixed to the resulting message.
func (r *NodeRefreshReconciler) advance(ctx context.Context, s *step, note string) (ctrl.Result, error) {
	nr := s.nr
	st := s.status()

	var next string
	for len(st.PendingNodes) > 0 {
		name := st.PendingNodes[0]
		st.PendingNodes = st.PendingNodes[1:]

		targeted, err := r.stillTargeted(ctx, name, nr.Spec.TargetNodeLabels)
		if err != nil {
			return ctrl.Result{}, err
		}
		if targeted {
			next = name
			break
		}
		// Targets that vanished before their turn are dropped from the total
		if st.TotalNodes > 0 {
			st.TotalNodes--
		}
		log.FromContext(ctx).Info("pending node no longer targeted, skipping", "node", name)
	}
	if len(st.PendingNodes) == 0 {
		st.PendingNodes = nil
	}

	if next == "" {
		msg := fmt.Sprintf("Successfully refreshed %d nodes", len(st.NodesRefreshed))
		if note != "" {
			msg = note + "; " + msg
		}
		r.complete(s, msg)
		return ctrl.Result{}, nil
	}

	r.beginNode(s, next)
	if note != "" {
		st.Message = note + "; " + st.Message
	}
	return ctrl.Result{Requeue: true}, nil
}

// complete ends the run successfully.
func (r *NodeRefreshReconciler) complete(s *step, msg string) {
	st := s.status()
	st.Phase = refreshv1.PhaseCompleted
	st.CurrentNode = ""
	st.PendingNodes = nil
	clearNodeProgress(st)
	st.LastRefreshTime = s.timestamp()
	st.NextRefreshTime = r.nextRun(s)
	st.Message = msg

	s.progressing(false, refreshv1.ReasonRunCompleted, msg)
	s.normal(EventReasonRunCompleted, "%s", msg)
	s.finished = true
	s.forgetTracker = true
}

// fail ends the run. CurrentNode is kept so the stuck node stays visible.
func (r *NodeRefreshReconciler) fail(s *step, reason, msg string) {
	st := s.status()
	st.Phase = refreshv1.PhaseFailed
	st.LastRefreshTime = s.timestamp()
	st.NextRefreshTime = r.nextRun(s)
	st.Message = msg

	s.progressing(false, reason, msg)
	s.warning(EventReasonRunFailed, "%s", msg)
	s.finished = true
	s.forgetTracker = true
}

// reconcileFinished handles Completed and Failed. Without a schedule both are final.
func (r *NodeRefreshReconciler) reconcileFinished(ctx context.Context, s *step) (ctrl.Result, error) {
	nr := s.nr
	st := s.status()

	if nr.Spec.RefreshSchedule == "" {
		return ctrl.Result{}, nil
	}
	if st.NextRefreshTime == nil {
		st.NextRefreshTime = r.nextRun(s)
		if st.NextRefreshTime == nil {
			return ctrl.Result{}, nil
		}
	}
	next := st.NextRefreshTime.Time

	if st.Phase == refreshv1.PhaseCompleted {
		msg := fmt.Sprintf("Next refresh scheduled at %s", next.UTC().Format(time.RFC3339))
		st.Phase = refreshv1.PhaseIdle
		st.Message = msg
		s.progressing(false, refreshv1.ReasonWaitingForSchedule, msg)
		s.normal(EventReasonScheduled, "%s", msg)
		return ctrl.Result{RequeueAfter: max(next.Sub(s.now), time.Second)}, nil
	}

	if s.now.Before(next) {
		return ctrl.Result{RequeueAfter: next.Sub(s.now)}, nil
	}
	log.FromContext(ctx).Info("scheduled run due after failure", "scheduledAt", next)
	st.Phase = refreshv1.PhaseIdle
	return r.startRun(ctx, s)
}

// nextRun returns the next scheduled instant after s.now, or nil without a usable schedule.
func (r *NodeRefreshReconciler) nextRun(s *step) *metav1.Time {
	expr := s.nr.Spec.RefreshSchedule
	if expr == "" {
		return nil
	}
	next, err := schedule.Next(expr, s.now)
	if err != nil {
		return nil
	}
	t := metav1.NewTime(next)
	return &t
}

func (r *NodeRefreshReconciler) nodeExists(ctx context.Context, name string) (bool, error) {
	node := &corev1.Node{}
	if err := r.Get(ctx, client.ObjectKey{Name: name}, node); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get node %s: %w", name, err)
	}
	return true, nil
}

// stillTargeted reports whether the node exists and still carries the target labels.
func (r *NodeRefreshReconciler) stillTargeted(ctx context.Context, name string, selector map[string]string) (bool, error) {
	node := &corev1.Node{}
	if err := r.Get(ctx, client.ObjectKey{Name: name}, node); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get node %s: %w", name, err)
	}
	return nodes.Matches(node.Labels, selector), nil
}

func clearNodeProgress(st *refreshv1.NodeRefreshStatus) {
	st.ProvisioningStartTime = nil
	st.DrainStartTime = nil
	st.ValidationAttempts = 0
	st.LastValidationTime = nil
	st.EvictedWorkloads = nil
}
