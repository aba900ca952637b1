package controller

import (
	"context"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
	"github.com/noderefresh/node-refresh-operator/internal/config"
	"github.com/noderefresh/node-refresh-operator/internal/drain"
	"github.com/noderefresh/node-refresh-operator/internal/health"
	"github.com/noderefresh/node-refresh-operator/internal/nodes"
	"github.com/noderefresh/node-refresh-operator/internal/provisioning"
	"github.com/noderefresh/node-refresh-operator/internal/report"
)

// NodeRefreshReconciler reconciles a NodeRefresh object.
type NodeRefreshReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder

	cfg           config.ControllerConfig
	clock         clock.PassiveClock
	selector      *nodes.Selector
	health        drain.HealthChecker
	evictor       drain.Evictor
	engine        *drain.Engine
	hook          provisioning.Hook
	gate          *provisioning.Gate
	trackers      *drain.Store
	archiver      report.Archiver
	enableMetrics bool
}

// Option configures a NodeRefreshReconciler.
type Option func(*NodeRefreshReconciler)

// WithControllerConfig sets intervals, attempt limits and concurrency.
func WithControllerConfig(cfg config.ControllerConfig) Option {
	return func(r *NodeRefreshReconciler) { r.cfg = cfg }
}

// WithClock sets the clock used for every time decision.
func WithClock(c clock.PassiveClock) Option {
	return func(r *NodeRefreshReconciler) { r.clock = c }
}

// WithEvictor replaces the eviction API client, e.g. to add rate limiting.
func WithEvictor(e drain.Evictor) Option {
	return func(r *NodeRefreshReconciler) { r.evictor = e }
}

// WithHealthChecker replaces the workload health evaluator.
func WithHealthChecker(h drain.HealthChecker) Option {
	return func(r *NodeRefreshReconciler) { r.health = h }
}

// WithProvisioningHook sets the capacity provider consulted before each drain.
func WithProvisioningHook(h provisioning.Hook) Option {
	return func(r *NodeRefreshReconciler) { r.hook = h }
}

// WithArchiver sets where finished run reports are stored.
func WithArchiver(a report.Archiver) Option {
	return func(r *NodeRefreshReconciler) { r.archiver = a }
}

// WithTrackerStore shares an eviction tracker store.
func WithTrackerStore(s *drain.Store) Option {
	return func(r *NodeRefreshReconciler) { r.trackers = s }
}

// WithMetrics enables or disables Prometheus metrics.
func WithMetrics(enable bool) Option {
	return func(r *NodeRefreshReconciler) { r.enableMetrics = enable }
}

// NewNodeRefreshReconciler creates a new NodeRefreshReconciler.
func NewNodeRefreshReconciler(c client.Client, scheme *runtime.Scheme, recorder record.EventRecorder, opts ...Option) *NodeRefreshReconciler {
	r := &NodeRefreshReconciler{
		Client:        c,
		Scheme:        scheme,
		Recorder:      recorder,
		cfg:           config.Default().Controller,
		clock:         clock.RealClock{},
		enableMetrics: true,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.health == nil {
		r.health = health.NewEvaluator(c)
	}
	if r.hook == nil {
		r.hook = provisioning.NoneHook{}
	}
	if r.trackers == nil {
		r.trackers = drain.NewStore()
	}
	if r.archiver == nil {
		r.archiver = report.Discard{}
	}
	r.selector = nodes.NewSelector(c)
	r.gate = provisioning.NewGate(r.hook,
		provisioning.WithGateClock(r.clock),
		provisioning.WithCallTimeout(r.cfg.HookCallTimeout),
	)

	engineOpts := []drain.Option{
		drain.WithClock(r.clock),
		drain.WithHealthChecker(r.health),
		drain.WithBatchInterval(r.cfg.BatchInterval),
		drain.WithHealthRecheckInterval(r.cfg.HealthRecheckInterval),
	}
	if r.evictor != nil {
		engineOpts = append(engineOpts, drain.WithEvictor(r.evictor))
	}
	r.engine = drain.NewEngine(c, engineOpts...)
	return r
}

// +kubebuilder:rbac:groups=noderefresh.io,resources=noderefreshes,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=noderefresh.io,resources=noderefreshes/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=nodes,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=pods/eviction,verbs=create
// +kubebuilder:rbac:groups=apps,resources=replicasets;statefulsets;deployments,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch
// +kubebuilder:rbac:groups=coordination.k8s.io,resources=leases,verbs=get;list;watch;create;update;patch

// Reconcile runs one step of the refresh state machine for a NodeRefresh.
func (r *NodeRefreshReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)
	started := time.Now()

	current := &refreshv1.NodeRefresh{}
	if err := r.Get(ctx, req.NamespacedName, current); err != nil {
		if apierrors.IsNotFound(err) {
			// Deleted: drop in-memory eviction state, an in-flight batch is abandoned
			r.trackers.Forget(req.Name)
			r.forgetMetrics(req.Name)
			return ctrl.Result{}, nil
		}
		logger.Error(err, "unable to fetch NodeRefresh")
		return ctrl.Result{}, err
	}

	if current.Spec.Paused {
		logger.Info("refresh is paused, skipping reconciliation")
		return ctrl.Result{}, nil
	}

	desired := current.DeepCopy()
	s := newStep(desired, r.clock.Now())
	logger = logger.WithValues("phase", current.Status.Phase, "runID", current.Status.RunID)
	ctx = log.IntoContext(ctx, logger)

	result, err := r.reconcile(ctx, s)
	if err != nil {
		logger.Error(err, "reconcile step failed")
		r.recordReconcile(req.Name, "error", time.Since(started).Seconds())
		return ctrl.Result{}, err
	}
	desired.Status.ObservedGeneration = desired.Generation

	written, err := r.writeStatus(ctx, current, desired)
	if err != nil {
		if apierrors.IsConflict(err) {
			// Staged counts stay uncommitted and are re-applied on the fresh object
			logger.V(1).Info("status update conflict, requeueing")
			r.recordReconcile(req.Name, "conflict", time.Since(started).Seconds())
			return ctrl.Result{Requeue: true}, nil
		}
		logger.Error(err, "failed to update status")
		r.recordReconcile(req.Name, "error", time.Since(started).Seconds())
		return ctrl.Result{}, err
	}

	if t, ok := r.trackers.Get(desired.Name); ok {
		t.Commit()
	}
	if s.forgetTracker {
		r.trackers.Forget(desired.Name)
	}
	r.afterWrite(ctx, s)

	if written && current.Status.Phase != desired.Status.Phase {
		logger.Info("phase transition", "from", current.Status.Phase, "to", desired.Status.Phase,
			"node", desired.Status.CurrentNode)
	}
	r.recordPhase(desired.Name, desired.Status.Phase)

	r.recordReconcile(req.Name, "success", time.Since(started).Seconds())
	return result, nil
}

// afterWrite performs the side effects of a persisted step.
func (r *NodeRefreshReconciler) afterWrite(ctx context.Context, s *step) {
	r.flush(s)
	if s.refreshed != "" {
		r.recordNodeRefreshed(s.nr.Name)
	}
	if !s.finished {
		return
	}

	r.recordRunFinished(s.nr.Name, s.nr.Status.Phase)
	rep := report.FromStatus(s.nr, s.now)
	if err := r.archiver.Archive(ctx, rep); err != nil {
		log.FromContext(ctx).Error(err, "failed to archive run report", "runID", rep.RunID)
	}
}

// SetupWithManager sets up the controller with the Manager.
func (r *NodeRefreshReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if err := drain.IndexPodsByNode(context.Background(), mgr.GetFieldIndexer()); err != nil {
		return err
	}

	maxConcurrent := r.cfg.MaxConcurrentReconciles
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return ctrl.NewControllerManagedBy(mgr).
		For(&refreshv1.NodeRefresh{}).
		// Watch target nodes so label, readiness and cordon changes are seen promptly
		Watches(&corev1.Node{},
			handler.EnqueueRequestsFromMapFunc(r.requestsForNode),
			builder.WithPredicates(nodeChangePredicate()),
		).
		WithOptions(controller.Options{MaxConcurrentReconciles: maxConcurrent}).
		Complete(r)
}

// requestsForNode maps a node to every NodeRefresh that targets or processes it.
func (r *NodeRefreshReconciler) requestsForNode(ctx context.Context, obj client.Object) []reconcile.Request {
	node, ok := obj.(*corev1.Node)
	if !ok {
		return nil
	}

	list := &refreshv1.NodeRefreshList{}
	if err := r.List(ctx, list); err != nil {
		log.FromContext(ctx).Error(err, "failed to list NodeRefresh resources for node event", "node", node.Name)
		return nil
	}

	var requests []reconcile.Request
	for i := range list.Items {
		nr := &list.Items[i]
		if nr.Status.CurrentNode == node.Name || nodes.Matches(node.Labels, nr.Spec.TargetNodeLabels) {
			requests = append(requests, reconcile.Request{NamespacedName: types.NamespacedName{Name: nr.Name}})
		}
	}
	return requests
}

// nodeChangePredicate ignores node heartbeats and keeps changes that matter
// to a refresh: labels, schedulability and readiness.
func nodeChangePredicate() predicate.Funcs {
	return predicate.Funcs{
		UpdateFunc: func(e event.UpdateEvent) bool {
			oldNode, ok1 := e.ObjectOld.(*corev1.Node)
			newNode, ok2 := e.ObjectNew.(*corev1.Node)
			if !ok1 || !ok2 {
				return false
			}
			return !nodes.Matches(oldNode.Labels, newNode.Labels) ||
				len(oldNode.Labels) != len(newNode.Labels) ||
				oldNode.Spec.Unschedulable != newNode.Spec.Unschedulable ||
				nodes.IsReady(oldNode) != nodes.IsReady(newNode)
		},
	}
}
