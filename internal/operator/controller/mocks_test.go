package controller

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/record"
	clocktesting "k8s.io/utils/clock/testing"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
	"github.com/noderefresh/node-refresh-operator/internal/config"
	"github.com/noderefresh/node-refresh-operator/internal/drain"
	"github.com/noderefresh/node-refresh-operator/internal/health"
	"github.com/noderefresh/node-refresh-operator/internal/provisioning"
	"github.com/noderefresh/node-refresh-operator/internal/report"
)

const testRefreshName = "workers"

var (
	podsGR   = schema.GroupResource{Resource: "pods"}
	testTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
)

// MockEvictor deletes evicted pods from the fake cluster and replays scripted
// outcomes per pod name. Pods without a script are evicted on the first call.
type MockEvictor struct {
	mu     sync.Mutex
	client client.Client
	script map[string][]drain.Outcome
	calls  map[string]int
	active int
	peak   int
}

func (m *MockEvictor) Evict(ctx context.Context, pod *corev1.Pod, _ int64) (drain.Outcome, error) {
	m.mu.Lock()
	m.calls[pod.Name]++
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
	out := drain.OutcomeEvicted
	if q := m.script[pod.Name]; len(q) > 0 {
		out = q[0]
		m.script[pod.Name] = q[1:]
	}
	m.mu.Unlock()

	time.Sleep(time.Millisecond)
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	switch out {
	case drain.OutcomePDBBlocked:
		return out, apierrors.NewTooManyRequests("Cannot evict pod as it would violate the pod's disruption budget.", 0)
	case drain.OutcomeRetryable:
		return out, apierrors.NewConflict(podsGR, pod.Name, fmt.Errorf("conflict"))
	case drain.OutcomeGone:
		return out, apierrors.NewNotFound(podsGR, pod.Name)
	}
	if err := m.client.Delete(ctx, pod); err != nil && !apierrors.IsNotFound(err) {
		return drain.OutcomeRetryable, err
	}
	return out, nil
}

func (m *MockEvictor) Calls(pod string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[pod]
}

func (m *MockEvictor) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// MockHealth reports a settable health percentage.
type MockHealth struct {
	mu      sync.Mutex
	percent int
	checks  int
}

func (m *MockHealth) Evaluate(context.Context, health.Scope) (health.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	return health.Report{Ready: m.percent, Total: 100, Percent: m.percent}, nil
}

func (m *MockHealth) Set(p int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.percent = p
}

func (m *MockHealth) Checks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checks
}

// MockHook is a provisioning provider with a fixed answer.
type MockHook struct {
	mu      sync.Mutex
	status  provisioning.Status
	err     error
	targets []provisioning.Target
}

func (m *MockHook) Name() string { return "mock" }

func (m *MockHook) EnsureCapacity(_ context.Context, target provisioning.Target) (provisioning.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, target)
	return m.status, m.err
}

func (m *MockHook) Set(status provisioning.Status, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	m.err = err
}

// MockArchiver keeps archived reports in memory.
type MockArchiver struct {
	mu      sync.Mutex
	reports []report.Report
}

func (m *MockArchiver) Archive(_ context.Context, r report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

func (m *MockArchiver) Reports() []report.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]report.Report(nil), m.reports...)
}

func setupTestScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, refreshv1.AddToScheme(scheme))
	return scheme
}

func testControllerConfig() config.ControllerConfig {
	cfg := config.Default().Controller
	cfg.MaxValidationAttempts = 3
	return cfg
}

// testEnv bundles a reconciler over a fake cluster with controllable time.
type testEnv struct {
	t          *testing.T
	client     client.Client
	reconciler *NodeRefreshReconciler
	clock      *clocktesting.FakeClock
	recorder   *record.FakeRecorder
	evictor    *MockEvictor
	health     *MockHealth
	hook       *MockHook
	archiver   *MockArchiver
}

type envOption func(*fake.ClientBuilder)

func withInterceptor(funcs interceptor.Funcs) envOption {
	return func(b *fake.ClientBuilder) { b.WithInterceptorFuncs(funcs) }
}

func newTestEnv(t *testing.T, cfg config.ControllerConfig, objs []client.Object, opts ...envOption) *testEnv {
	t.Helper()

	builder := fake.NewClientBuilder().
		WithScheme(setupTestScheme(t)).
		WithObjects(objs...).
		WithStatusSubresource(&refreshv1.NodeRefresh{}).
		WithIndex(&corev1.Pod{}, drain.PodNodeNameField, drain.PodNodeName)
	for _, opt := range opts {
		opt(builder)
	}
	c := builder.Build()

	e := &testEnv{
		t:        t,
		client:   c,
		clock:    clocktesting.NewFakeClock(testTime),
		recorder: record.NewFakeRecorder(200),
		evictor:  &MockEvictor{client: c, script: map[string][]drain.Outcome{}, calls: map[string]int{}},
		health:   &MockHealth{percent: 100},
		hook:     &MockHook{status: provisioning.StatusReady},
		archiver: &MockArchiver{},
	}
	e.reconciler = NewNodeRefreshReconciler(c, c.Scheme(), e.recorder,
		WithControllerConfig(cfg),
		WithClock(e.clock),
		WithEvictor(e.evictor),
		WithHealthChecker(e.health),
		WithProvisioningHook(e.hook),
		WithArchiver(e.archiver),
		WithMetrics(false),
	)
	return e
}

func (e *testEnv) reconcile() ctrl.Result {
	e.t.Helper()
	res, err := e.reconciler.Reconcile(context.Background(), ctrl.Request{
		NamespacedName: types.NamespacedName{Name: testRefreshName},
	})
	require.NoError(e.t, err)
	return res
}

func (e *testEnv) get() *refreshv1.NodeRefresh {
	e.t.Helper()
	nr := &refreshv1.NodeRefresh{}
	require.NoError(e.t, e.client.Get(context.Background(), client.ObjectKey{Name: testRefreshName}, nr))
	return nr
}

// runUntil reconciles, following RequeueAfter with the fake clock, until
// done returns true. It fails the test after limit reconciles.
func (e *testEnv) runUntil(limit int, done func(*refreshv1.NodeRefresh) bool) *refreshv1.NodeRefresh {
	e.t.Helper()
	for i := 0; i < limit; i++ {
		res := e.reconcile()
		nr := e.get()
		if done(nr) {
			return nr
		}
		if res.RequeueAfter > 0 {
			e.clock.Step(res.RequeueAfter)
		}
	}
	nr := e.get()
	require.FailNowf(e.t, "condition not reached", "phase %s after %d reconciles: %s", nr.Status.Phase, limit, nr.Status.Message)
	return nil
}

func (e *testEnv) events() []string {
	var out []string
	for {
		select {
		case ev := <-e.recorder.Events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func inPhase(phase refreshv1.RefreshPhase) func(*refreshv1.NodeRefresh) bool {
	return func(nr *refreshv1.NodeRefresh) bool { return nr.Status.Phase == phase }
}

func newRefresh(mutate ...func(*refreshv1.NodeRefresh)) *refreshv1.NodeRefresh {
	nr := &refreshv1.NodeRefresh{
		ObjectMeta: metav1.ObjectMeta{Name: testRefreshName, Generation: 1, UID: "refresh-uid"},
		Spec: refreshv1.NodeRefreshSpec{
			TargetNodeLabels:    map[string]string{"pool": "workers"},
			MaxPodsToMoveAtOnce: 2,
			MinHealthThreshold:  ptr.To(int32(80)),
		},
	}
	for _, m := range mutate {
		m(nr)
	}
	return nr
}

func workerNode(name string) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: map[string]string{"pool": "workers"}},
		Status: corev1.NodeStatus{Conditions: []corev1.NodeCondition{
			{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
		}},
	}
}

func workloadPod(node, name, rs string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: "shop",
			Name:      name,
			UID:       types.UID("uid-" + name),
			OwnerReferences: []metav1.OwnerReference{
				{APIVersion: "apps/v1", Kind: "ReplicaSet", Name: rs, UID: types.UID("uid-" + rs), Controller: ptr.To(true)},
			},
		},
		Spec:   corev1.PodSpec{NodeName: node},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}
}
