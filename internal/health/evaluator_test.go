package health

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

func newPod(ns, name string, ready bool) *corev1.Pod {
	status := corev1.ConditionFalse
	if ready {
		status = corev1.ConditionTrue
	}
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
		Status: corev1.PodStatus{
			Phase:      corev1.PodRunning,
			Conditions: []corev1.PodCondition{{Type: corev1.PodReady, Status: status}},
		},
	}
}

func newClient(t *testing.T, objs ...client.Object) client.Client {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	return fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build()
}

func TestEvaluateRoundsDown(t *testing.T) {
	t.Parallel()

	c := newClient(t,
		newPod("shop", "a", true),
		newPod("shop", "b", true),
		newPod("shop", "c", false),
	)

	r, err := NewEvaluator(c).Evaluate(context.Background(), Scope{})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Ready)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 66, r.Percent)
	assert.True(t, r.Meets(66))
	assert.False(t, r.Meets(67))
}

func TestEvaluateNoPodsIsHealthy(t *testing.T) {
	t.Parallel()

	r, err := NewEvaluator(newClient(t)).Evaluate(context.Background(), Scope{})
	require.NoError(t, err)
	assert.Equal(t, 100, r.Percent)
	assert.True(t, r.Meets(100))
}

func TestEvaluateExcludesSystemAndDaemonPods(t *testing.T) {
	t.Parallel()

	daemon := newPod("shop", "agent", false)
	daemon.OwnerReferences = []metav1.OwnerReference{{Kind: "DaemonSet", Name: "agent", Controller: ptr.To(true)}}
	done := newPod("shop", "job", false)
	done.Status.Phase = corev1.PodSucceeded

	c := newClient(t,
		newPod("shop", "web", true),
		newPod("kube-system", "coredns", false),
		daemon,
		done,
	)

	r, err := NewEvaluator(c).Evaluate(context.Background(), Scope{})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Total)
	assert.Equal(t, 100, r.Percent)
}

func TestEvaluateNamespaceScope(t *testing.T) {
	t.Parallel()

	c := newClient(t,
		newPod("shop", "a", true),
		newPod("billing", "b", false),
		newPod("billing", "c", false),
	)

	r, err := NewEvaluator(c).Evaluate(context.Background(), Scope{Namespaces: []string{"shop"}})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Total)
	assert.Equal(t, 100, r.Percent)

	r, err = NewEvaluator(c).Evaluate(context.Background(), Scope{})
	require.NoError(t, err)
	assert.Equal(t, 33, r.Percent)
}

func TestCompute(t *testing.T) {
	t.Parallel()

	items := make([]corev1.Pod, 0, 10)
	for i := range 10 {
		items = append(items, *newPod("ns", fmt.Sprintf("p%d", i), i < 8))
	}
	r := Compute(items)
	assert.Equal(t, 80, r.Percent)
	assert.Equal(t, "80% (8/10 pods ready)", r.String())
}
