package drain

import (
	"context"

	"golang.org/x/time/rate"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Outcome classifies the response to one eviction request.
type Outcome string

const (
	// OutcomeEvicted means the API server accepted the eviction.
	OutcomeEvicted Outcome = "Evicted"
	// OutcomePDBBlocked means a PodDisruptionBudget refused the eviction (429).
	OutcomePDBBlocked Outcome = "PDBBlocked"
	// OutcomeRetryable means a transient error worth retrying later.
	OutcomeRetryable Outcome = "Retryable"
	// OutcomeGone means the pod no longer exists or already terminated.
	OutcomeGone Outcome = "Gone"
)

// Retryable reports whether the eviction should go through backoff.
func (o Outcome) Retryable() bool {
	return o == OutcomePDBBlocked || o == OutcomeRetryable
}

// Evictor requests the eviction of a single pod.
type Evictor interface {
	Evict(ctx context.Context, pod *corev1.Pod, gracePeriodSeconds int64) (Outcome, error)
}

// APIEvictor evicts through the policy/v1 Eviction subresource, which honors
// PodDisruptionBudgets.
type APIEvictor struct {
	client  client.Client
	limiter *rate.Limiter
}

// NewAPIEvictor creates an APIEvictor. A nil limiter disables rate limiting.
func NewAPIEvictor(c client.Client, limiter *rate.Limiter) *APIEvictor {
	return &APIEvictor{client: c, limiter: limiter}
}

// Evict returns the outcome and the underlying error for anything but success.
func (e *APIEvictor) Evict(ctx context.Context, pod *corev1.Pod, gracePeriodSeconds int64) (Outcome, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return OutcomeRetryable, err
		}
	}

	eviction := &policyv1.Eviction{
		ObjectMeta: metav1.ObjectMeta{
			Name:      pod.Name,
			Namespace: pod.Namespace,
		},
		DeleteOptions: &metav1.DeleteOptions{
			GracePeriodSeconds: gracePeriod(pod, gracePeriodSeconds),
		},
	}
	if pod.UID != "" {
		// Never evict a replacement pod that reused the name.
		uid := pod.UID
		eviction.DeleteOptions.Preconditions = &metav1.Preconditions{UID: &uid}
	}

	err := e.client.SubResource("eviction").Create(ctx, pod, eviction)
	return Classify(err), err
}

// Classify maps an eviction API error to an Outcome. Anything that is not a
// success or a missing pod is retried, so a stuck pod ends up counted as failed
// instead of silently skipped.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeEvicted
	case apierrors.IsTooManyRequests(err):
		return OutcomePDBBlocked
	case apierrors.IsNotFound(err), apierrors.IsGone(err):
		return OutcomeGone
	default:
		return OutcomeRetryable
	}
}

// gracePeriod never extends a pod's own terminationGracePeriodSeconds.
func gracePeriod(pod *corev1.Pod, requested int64) *int64 {
	if own := pod.Spec.TerminationGracePeriodSeconds; own != nil && *own < requested {
		v := *own
		return &v
	}
	return &requested
}
