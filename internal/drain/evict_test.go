package drain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{name: "success", err: nil, want: OutcomeEvicted},
		{name: "pdb", err: apierrors.NewTooManyRequests("disruption budget", 10), want: OutcomePDBBlocked},
		{name: "not found", err: apierrors.NewNotFound(podsGR, "x"), want: OutcomeGone},
		{name: "conflict", err: apierrors.NewConflict(podsGR, "x", errors.New("changed")), want: OutcomeRetryable},
		{name: "throttled", err: apierrors.NewServerTimeout(podsGR, "create", 1), want: OutcomeRetryable},
		{name: "unavailable", err: apierrors.NewServiceUnavailable("down"), want: OutcomeRetryable},
		{name: "forbidden", err: apierrors.NewForbidden(podsGR, "x", errors.New("webhook")), want: OutcomeRetryable},
		{name: "network", err: errors.New("connection reset"), want: OutcomeRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestAPIEvictorUsesEvictionSubresource(t *testing.T) {
	t.Parallel()

	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))

	pod := testPod("node-1", "web-1")
	pod.Spec.TerminationGracePeriodSeconds = ptr.To[int64](30)

	var seen *policyv1.Eviction
	c := fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(pod).
		WithInterceptorFuncs(interceptor.Funcs{
			SubResourceCreate: func(ctx context.Context, c client.Client, subResourceName string, obj client.Object, subResource client.Object, opts ...client.SubResourceCreateOption) error {
				if subResourceName != "eviction" {
					return errors.New("unexpected subresource " + subResourceName)
				}
				seen = subResource.(*policyv1.Eviction)
				return apierrors.NewTooManyRequests("Cannot evict pod as it would violate the pod's disruption budget.", 0)
			},
		}).
		Build()

	out, err := NewAPIEvictor(c, nil).Evict(context.Background(), pod, 300)
	assert.Equal(t, OutcomePDBBlocked, out)
	assert.True(t, apierrors.IsTooManyRequests(err))

	require.NotNil(t, seen)
	assert.Equal(t, "web-1", seen.Name)
	assert.Equal(t, "shop", seen.Namespace)
	assert.Equal(t, int64(30), *seen.DeleteOptions.GracePeriodSeconds, "pod grace period is shorter than requested")
	require.NotNil(t, seen.DeleteOptions.Preconditions)
	assert.Equal(t, pod.UID, *seen.DeleteOptions.Preconditions.UID)
}

func TestGracePeriod(t *testing.T) {
	t.Parallel()

	p := &corev1.Pod{}
	assert.Equal(t, int64(300), *gracePeriod(p, 300))

	p.Spec.TerminationGracePeriodSeconds = ptr.To[int64](600)
	assert.Equal(t, int64(300), *gracePeriod(p, 300))

	p.Spec.TerminationGracePeriodSeconds = ptr.To[int64](10)
	assert.Equal(t, int64(10), *gracePeriod(p, 300))
}

func TestOutcomeRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, OutcomePDBBlocked.Retryable())
	assert.True(t, OutcomeRetryable.Retryable())
	assert.False(t, OutcomeEvicted.Retryable())
	assert.False(t, OutcomeGone.Retryable())
}
