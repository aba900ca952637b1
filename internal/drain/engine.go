// Package drain evicts pods from a node in bounded, health-gated batches.
package drain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
	"github.com/noderefresh/node-refresh-operator/internal/backoff"
	"github.com/noderefresh/node-refresh-operator/internal/health"
	"github.com/noderefresh/node-refresh-operator/internal/pods"
)

// PodNodeNameField is the field index used to list pods bound to a node.
const PodNodeNameField = "spec.nodeName"

const (
	defaultBatchInterval         = 10 * time.Second
	defaultHealthRecheckInterval = 30 * time.Second
)

// ErrNodeNotFound is returned when the node to drain no longer exists.
var ErrNodeNotFound = errors.New("node not found")

// HealthChecker measures workload health before a batch starts.
type HealthChecker interface {
	Evaluate(ctx context.Context, scope health.Scope) (health.Report, error)
}

// Request describes one drain step.
type Request struct {
	Node               string
	MaxBatch           int
	GracePeriodSeconds int64
	HealthThreshold    int
	HealthScope        health.Scope
	Tracker            *Tracker
}

// Result is the outcome of one drain step.
type Result struct {
	// Done is true once every movable pod reached a terminal outcome.
	Done bool
	// Paused is true when the health gate held back a batch.
	Paused bool
	// Health is set when the gate was evaluated.
	Health *health.Report
	// RequeueAfter is when the next step should run.
	RequeueAfter time.Duration
	Message      string

	// Evicted and Exhausted name the pods that reached a terminal outcome in this step.
	Evicted   []string
	Exhausted []string
	// Calls is the number of eviction requests issued in this step.
	Calls int
}

// Engine drives the eviction of one node per call to Step.
type Engine struct {
	client   client.Client
	evictor  Evictor
	health   HealthChecker
	strategy backoff.Strategy
	clock    clock.PassiveClock

	batchInterval         time.Duration
	healthRecheckInterval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithEvictor replaces the eviction API client.
func WithEvictor(e Evictor) Option {
	return func(en *Engine) { en.evictor = e }
}

// WithHealthChecker replaces the health evaluator.
func WithHealthChecker(h HealthChecker) Option {
	return func(en *Engine) { en.health = h }
}

// WithStrategy replaces the retry schedule.
func WithStrategy(s backoff.Strategy) Option {
	return func(en *Engine) { en.strategy = s }
}

// WithClock sets the clock used for backoff decisions.
func WithClock(c clock.PassiveClock) Option {
	return func(en *Engine) { en.clock = c }
}

// WithBatchInterval sets the pause between a finished batch and the next health check.
func WithBatchInterval(d time.Duration) Option {
	return func(en *Engine) { en.batchInterval = d }
}

// WithHealthRecheckInterval sets how long to wait while the health gate is closed.
func WithHealthRecheckInterval(d time.Duration) Option {
	return func(en *Engine) { en.healthRecheckInterval = d }
}

// NewEngine creates an Engine evicting through c.
func NewEngine(c client.Client, opts ...Option) *Engine {
	e := &Engine{
		client:                c,
		strategy:              backoff.NewDefault(),
		clock:                 clock.RealClock{},
		batchInterval:         defaultBatchInterval,
		healthRecheckInterval: defaultHealthRecheckInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.evictor == nil {
		e.evictor = NewAPIEvictor(c, nil)
	}
	if e.health == nil {
		e.health = health.NewEvaluator(c)
	}
	return e
}

// Step performs at most one batch worth of evictions and returns without
// waiting on backoff or health recovery.
func (e *Engine) Step(ctx context.Context, req Request) (Result, error) {
	logger := log.FromContext(ctx).WithValues("node", req.Node)

	if req.Tracker == nil {
		return Result{}, fmt.Errorf("no eviction tracker for node %s", req.Node)
	}
	if err := e.Cordon(ctx, req.Node); err != nil {
		return Result{}, err
	}

	movable, err := e.MovablePods(ctx, req.Node)
	if err != nil {
		return Result{}, err
	}
	byUID := make(map[types.UID]*corev1.Pod, len(movable))
	for _, p := range movable {
		byUID[p.UID] = p
	}
	t := req.Tracker
	t.sync(byUID)

	now := e.clock.Now()

	if t.inFlight() {
		due := t.due(now)
		if len(due) == 0 {
			return e.waitForRetry(t, now), nil
		}
		res := Result{}
		e.evict(ctx, req, t, due, byUID, &res)
		e.finishStep(t, now, &res)
		logger.V(1).Info("retried evictions", "calls", res.Calls, "evicted", len(res.Evicted), "exhausted", len(res.Exhausted))
		return res, nil
	}

	remaining := t.unattempted(movable)
	if len(remaining) == 0 {
		succeeded, failed := t.totals()
		return Result{
			Done:    true,
			Message: fmt.Sprintf("Node %s drained: %d pods evicted, %d failed", req.Node, succeeded, failed),
		}, nil
	}

	if wait := t.waitUntil(); now.Before(wait) {
		return Result{
			RequeueAfter: wait.Sub(now),
			Message:      progressMessage(t),
		}, nil
	}

	report, err := e.health.Evaluate(ctx, req.HealthScope)
	if err != nil {
		return Result{}, fmt.Errorf("failed to evaluate health: %w", err)
	}
	if !report.Meets(req.HealthThreshold) {
		logger.Info("health below threshold, pausing eviction", "health", report.Percent, "threshold", req.HealthThreshold)
		return Result{
			Paused:       true,
			Health:       &report,
			RequeueAfter: e.healthRecheckInterval,
			Message: fmt.Sprintf("Draining node %s paused: cluster health %d%% is below threshold %d%%",
				req.Node, report.Percent, req.HealthThreshold),
		}, nil
	}

	size := req.MaxBatch
	if size < 1 {
		size = 1
	}
	batch := remaining
	if len(batch) > size {
		batch = batch[:size]
	}
	t.startBatch(batch, now)

	uids := make([]types.UID, 0, len(batch))
	for _, p := range batch {
		uids = append(uids, p.UID)
	}
	res := Result{Health: &report}
	e.evict(ctx, req, t, uids, byUID, &res)
	e.finishStep(t, now, &res)
	logger.Info("evicted batch", "size", len(batch), "evicted", len(res.Evicted), "health", report.Percent)
	return res, nil
}

// evict issues the evictions for uids concurrently, bounded by the batch size.
func (e *Engine) evict(ctx context.Context, req Request, t *Tracker, uids []types.UID, byUID map[types.UID]*corev1.Pod, res *Result) {
	logger := log.FromContext(ctx)
	limit := req.MaxBatch
	if limit < 1 {
		limit = 1
	}

	type outcome struct {
		uid  types.UID
		name string
		out  Outcome
		err  error
	}
	results := make([]outcome, len(uids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, uid := range uids {
		pod := byUID[uid]
		g.Go(func() error {
			out, err := e.evictor.Evict(gctx, pod, req.GracePeriodSeconds)
			results[i] = outcome{uid: uid, name: pod.Namespace + "/" + pod.Name, out: out, err: err}
			return nil
		})
	}
	_ = g.Wait()

	now := e.clock.Now()
	for _, r := range results {
		res.Calls++
		state := t.record(r.uid, r.out, r.err, now, e.strategy)
		switch state {
		case AttemptSucceeded:
			res.Evicted = append(res.Evicted, r.name)
		case AttemptFailed:
			res.Exhausted = append(res.Exhausted, r.name)
			logger.Info("giving up on pod eviction", "pod", r.name, "error", r.err)
		case AttemptPending:
			logger.V(1).Info("eviction will be retried", "pod", r.name, "outcome", r.out, "error", r.err)
		}
	}
}

// finishStep decides the requeue after evictions ran.
func (e *Engine) finishStep(t *Tracker, now time.Time, res *Result) {
	if t.inFlight() {
		w := e.waitForRetry(t, now)
		res.RequeueAfter = w.RequeueAfter
		res.Message = w.Message
		return
	}
	t.settle(now.Add(e.batchInterval))
	res.RequeueAfter = e.batchInterval
	res.Message = progressMessage(t)
}

func progressMessage(t *Tracker) string {
	succeeded, failed := t.totals()
	return fmt.Sprintf("Draining node %s: %d pods evicted, %d failed", t.Node(), succeeded, failed)
}

func (e *Engine) waitForRetry(t *Tracker, now time.Time) Result {
	next, _ := t.earliest()
	wait := next.Sub(now)
	if wait < time.Second {
		wait = time.Second
	}
	return Result{
		RequeueAfter: wait,
		Message:      fmt.Sprintf("Draining node %s: waiting to retry %d blocked evictions", t.Node(), t.pending()),
	}
}

// Cordon marks the node unschedulable. It is a no-op when already cordoned.
func (e *Engine) Cordon(ctx context.Context, name string) error {
	node := &corev1.Node{}
	if err := e.client.Get(ctx, client.ObjectKey{Name: name}, node); err != nil {
		if apierrors.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, name)
		}
		return fmt.Errorf("failed to get node %s: %w", name, err)
	}
	if node.Spec.Unschedulable {
		return nil
	}

	patch := client.MergeFrom(node.DeepCopy())
	node.Spec.Unschedulable = true
	if err := e.client.Patch(ctx, node, patch); err != nil {
		return fmt.Errorf("failed to cordon node %s: %w", name, err)
	}
	log.FromContext(ctx).Info("cordoned node", "node", name)
	return nil
}

// MovablePods lists the pods on node that a drain must evict.
func (e *Engine) MovablePods(ctx context.Context, node string) ([]*corev1.Pod, error) {
	list := &corev1.PodList{}
	if err := e.client.List(ctx, list, client.MatchingFields{PodNodeNameField: node}); err != nil {
		return nil, fmt.Errorf("failed to list pods on node %s: %w", node, err)
	}
	items := pods.Filter(list.Items, pods.Movable)
	out := make([]*corev1.Pod, 0, len(items))
	for i := range items {
		out = append(out, &items[i])
	}
	return out, nil
}

// IndexPodsByNode registers the spec.nodeName field index used by MovablePods.
func IndexPodsByNode(ctx context.Context, indexer client.FieldIndexer) error {
	return indexer.IndexField(ctx, &corev1.Pod{}, PodNodeNameField, PodNodeName)
}

// PodNodeName extracts the node name for the pod field index.
func PodNodeName(obj client.Object) []string {
	pod, ok := obj.(*corev1.Pod)
	if !ok || pod.Spec.NodeName == "" {
		return nil
	}
	return []string{pod.Spec.NodeName}
}

// Owners returns the distinct workload owners in refs, preserving first-seen order.
func Owners(existing, refs []refreshv1.WorkloadReference) []refreshv1.WorkloadReference {
	out := append([]refreshv1.WorkloadReference(nil), existing...)
	for _, r := range refs {
		dup := false
		for _, o := range out {
			if o == r {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}
