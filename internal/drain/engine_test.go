package drain

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	clocktesting "k8s.io/utils/clock/testing"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/noderefresh/node-refresh-operator/internal/health"
)

var podsGR = schema.GroupResource{Resource: "pods"}

// scriptedEvictor returns queued outcomes per pod name and Evicted once the queue is empty.
type scriptedEvictor struct {
	mu      sync.Mutex
	script  map[string][]Outcome
	calls   []string
	maxSeen int
	active  int
}

func (s *scriptedEvictor) Evict(_ context.Context, pod *corev1.Pod, _ int64) (Outcome, error) {
	s.mu.Lock()
	s.calls = append(s.calls, pod.Name)
	s.active++
	if s.active > s.maxSeen {
		s.maxSeen = s.active
	}
	out := OutcomeEvicted
	if q := s.script[pod.Name]; len(q) > 0 {
		out = q[0]
		s.script[pod.Name] = q[1:]
	}
	s.mu.Unlock()

	time.Sleep(time.Millisecond)

	s.mu.Lock()
	s.active--
	s.mu.Unlock()

	switch out {
	case OutcomePDBBlocked:
		return out, apierrors.NewTooManyRequests("Cannot evict pod as it would violate the pod's disruption budget.", 0)
	case OutcomeGone:
		return out, apierrors.NewNotFound(podsGR, pod.Name)
	case OutcomeRetryable:
		return out, apierrors.NewConflict(podsGR, pod.Name, fmt.Errorf("conflict"))
	}
	return out, nil
}

func (s *scriptedEvictor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type staticHealth struct {
	mu      sync.Mutex
	percent int
	checks  int
}

func (h *staticHealth) Evaluate(context.Context, health.Scope) (health.Report, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks++
	return health.Report{Ready: h.percent, Total: 100, Percent: h.percent}, nil
}

func (h *staticHealth) set(p int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.percent = p
}

func testNode(name string) *corev1.Node {
	return &corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: name}}
}

func testPod(node, name string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: "shop",
			Name:      name,
			UID:       types.UID("uid-" + name),
			OwnerReferences: []metav1.OwnerReference{
				{APIVersion: "apps/v1", Kind: "ReplicaSet", Name: "web-abc", Controller: ptr.To(true)},
			},
		},
		Spec:   corev1.PodSpec{NodeName: node},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func newTestClient(t *testing.T, objs ...client.Object) client.Client {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	return fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(objs...).
		WithIndex(&corev1.Pod{}, PodNodeNameField, PodNodeName).
		Build()
}

type harness struct {
	engine  *Engine
	evictor *scriptedEvictor
	health  *staticHealth
	clock   *clocktesting.FakeClock
	tracker *Tracker
	client  client.Client
}

func newHarness(t *testing.T, objs ...client.Object) *harness {
	t.Helper()
	h := &harness{
		evictor: &scriptedEvictor{script: map[string][]Outcome{}},
		health:  &staticHealth{percent: 100},
		clock:   clocktesting.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		tracker: NewStore().For("refresh", "owner-uid", "node-1"),
		client:  newTestClient(t, objs...),
	}
	h.engine = NewEngine(h.client,
		WithEvictor(h.evictor),
		WithHealthChecker(h.health),
		WithClock(h.clock),
		WithBatchInterval(10*time.Second),
		WithHealthRecheckInterval(30*time.Second),
	)
	return h
}

func (h *harness) step(t *testing.T, maxBatch int) Result {
	t.Helper()
	res, err := h.engine.Step(context.Background(), Request{
		Node:               "node-1",
		MaxBatch:           maxBatch,
		GracePeriodSeconds: 300,
		HealthThreshold:    80,
		Tracker:            h.tracker,
	})
	require.NoError(t, err)
	return res
}

func TestStepDrainsInBatches(t *testing.T) {
	t.Parallel()

	objs := []client.Object{testNode("node-1")}
	for i := 1; i <= 6; i++ {
		objs = append(objs, testPod("node-1", fmt.Sprintf("web-%d", i)))
	}
	objs = append(objs, testPod("node-2", "elsewhere"))
	h := newHarness(t, objs...)

	for batch := 1; batch <= 3; batch++ {
		res := h.step(t, 2)
		assert.False(t, res.Done)
		assert.Equal(t, 2, res.Calls, "batch %d", batch)
		assert.Len(t, res.Evicted, 2)
		assert.Equal(t, 10*time.Second, res.RequeueAfter)
		assert.Equal(t, batch, h.health.checks, "each batch is preceded by a health check")

		// An early reconcile must not start the next batch.
		again := h.step(t, 2)
		assert.Equal(t, 0, again.Calls)
		assert.Equal(t, res.Message, again.Message)

		h.clock.Step(10 * time.Second)
	}

	res := h.step(t, 2)
	assert.True(t, res.Done)
	assert.Equal(t, 6, h.evictor.callCount())
	assert.LessOrEqual(t, h.evictor.maxSeen, 2)
	assert.NotContains(t, h.evictor.calls, "elsewhere")

	succeeded, failed, owners := h.tracker.Staged()
	assert.Equal(t, 6, succeeded)
	assert.Equal(t, 0, failed)
	assert.Len(t, owners, 6)

	node := &corev1.Node{}
	require.NoError(t, h.client.Get(context.Background(), client.ObjectKey{Name: "node-1"}, node))
	assert.True(t, node.Spec.Unschedulable)
}

func TestStepPausesBelowHealthThreshold(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testNode("node-1"), testPod("node-1", "a"), testPod("node-1", "b"))
	h.health.set(50)

	res := h.step(t, 1)
	assert.True(t, res.Paused)
	assert.Equal(t, 0, res.Calls)
	assert.Equal(t, 30*time.Second, res.RequeueAfter)
	assert.Contains(t, res.Message, "below threshold")

	h.health.set(90)
	res = h.step(t, 1)
	assert.False(t, res.Paused)
	assert.Equal(t, 1, res.Calls)

	h.clock.Step(10 * time.Second)
	h.health.set(79)
	res = h.step(t, 1)
	assert.True(t, res.Paused)
	assert.Equal(t, 0, res.Calls)
	assert.Equal(t, 1, h.evictor.callCount())
}

func TestStepRetriesBlockedEvictionOnSchedule(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testNode("node-1"), testPod("node-1", "web-1"))
	h.evictor.script["web-1"] = []Outcome{OutcomePDBBlocked, OutcomePDBBlocked, OutcomePDBBlocked}
	start := h.clock.Now()

	res := h.step(t, 2)
	assert.Equal(t, 1, res.Calls)
	assert.Equal(t, 30*time.Second, res.RequeueAfter)

	// Nothing happens before the backoff expires.
	res = h.step(t, 2)
	assert.Equal(t, 0, res.Calls)
	assert.Equal(t, 30*time.Second, res.RequeueAfter)

	for _, wait := range []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second} {
		h.clock.Step(wait)
		res = h.step(t, 2)
		assert.Equal(t, 1, res.Calls)
	}
	assert.Equal(t, []string{"shop/web-1"}, res.Evicted)
	assert.Equal(t, 210*time.Second, h.clock.Now().Sub(start))

	succeeded, failed, _ := h.tracker.Staged()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 4, h.evictor.callCount())
}

func TestStepExhaustsRetries(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testNode("node-1"), testPod("node-1", "stuck"), testPod("node-1", "free"))
	h.evictor.script["stuck"] = []Outcome{
		OutcomePDBBlocked, OutcomeRetryable, OutcomePDBBlocked, OutcomePDBBlocked, OutcomePDBBlocked, OutcomePDBBlocked,
	}

	res := h.step(t, 2)
	assert.Equal(t, []string{"shop/free"}, res.Evicted)

	delays := []time.Duration{30, 60, 120, 300, 600}
	for _, d := range delays {
		assert.Equal(t, d*time.Second, res.RequeueAfter)
		h.clock.Step(d * time.Second)
		res = h.step(t, 2)
		assert.Equal(t, 1, res.Calls)
	}
	assert.Equal(t, []string{"shop/stuck"}, res.Exhausted)
	assert.Equal(t, 7, h.evictor.callCount(), "free once, stuck once plus five retries")

	h.clock.Step(10 * time.Second)
	res = h.step(t, 2)
	assert.True(t, res.Done)
	assert.Contains(t, res.Message, "1 pods evicted, 1 failed")

	succeeded, failed, _ := h.tracker.Staged()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	for _, a := range h.tracker.Attempts() {
		assert.LessOrEqual(t, a.Failures, 6)
	}
}

func TestStepDropsGonePods(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testNode("node-1"), testPod("node-1", "gone"))
	h.evictor.script["gone"] = []Outcome{OutcomeGone}

	res := h.step(t, 1)
	assert.Empty(t, res.Evicted)
	assert.Empty(t, res.Exhausted)

	succeeded, failed, _ := h.tracker.Staged()
	assert.Zero(t, succeeded)
	assert.Zero(t, failed)
}

func TestStepDropsPendingAttemptWhenPodDisappears(t *testing.T) {
	t.Parallel()

	pod := testPod("node-1", "web-1")
	h := newHarness(t, testNode("node-1"), pod)
	h.evictor.script["web-1"] = []Outcome{OutcomePDBBlocked}

	res := h.step(t, 1)
	assert.Equal(t, 1, res.Calls)

	require.NoError(t, h.client.Delete(context.Background(), pod))
	h.clock.Step(30 * time.Second)

	res = h.step(t, 1)
	assert.Equal(t, 0, res.Calls)
	assert.True(t, res.Done)
	assert.Empty(t, h.tracker.Attempts())
}

func TestStepSkipsUnmovablePods(t *testing.T) {
	t.Parallel()

	daemon := testPod("node-1", "agent")
	daemon.OwnerReferences = []metav1.OwnerReference{{Kind: "DaemonSet", Name: "agent", Controller: ptr.To(true)}}
	system := testPod("node-1", "coredns")
	system.Namespace = "kube-system"

	h := newHarness(t, testNode("node-1"), daemon, system)
	res := h.step(t, 5)
	assert.True(t, res.Done)
	assert.Equal(t, 0, h.evictor.callCount())
}

func TestStepNodeNotFound(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.engine.Step(context.Background(), Request{Node: "node-1", MaxBatch: 1, Tracker: h.tracker})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestCommitClearsStagedCounts(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testNode("node-1"), testPod("node-1", "a"))
	h.step(t, 1)

	succeeded, _, _ := h.tracker.Staged()
	assert.Equal(t, 1, succeeded)

	h.tracker.Commit()
	succeeded, failed, owners := h.tracker.Staged()
	assert.Zero(t, succeeded)
	assert.Zero(t, failed)
	assert.Empty(t, owners)
}

func TestStoreReplacesTrackerForOtherNode(t *testing.T) {
	t.Parallel()

	s := NewStore()
	a := s.For("refresh", "uid-1", "node-1")
	assert.Same(t, a, s.For("refresh", "uid-1", "node-1"))

	b := s.For("refresh", "uid-1", "node-2")
	assert.NotSame(t, a, b)

	c := s.For("refresh", "uid-2", "node-2")
	assert.NotSame(t, b, c)

	s.Forget("refresh")
	_, ok := s.Get("refresh")
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestOwnersDeduplicates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testNode("node-1"), testPod("node-1", "a"), testPod("node-1", "b"))
	h.step(t, 2)
	_, _, owners := h.tracker.Staged()
	assert.Len(t, Owners(nil, owners), 1)
}
