package drain

import (
	"sort"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
	"github.com/noderefresh/node-refresh-operator/internal/backoff"
)

// AttemptState is the progress of one pod's eviction.
type AttemptState string

const (
	AttemptPending   AttemptState = "Pending"
	AttemptSucceeded AttemptState = "Succeeded"
	AttemptFailed    AttemptState = "Failed"
)

// Attempt tracks the eviction of one pod during one node's drain.
type Attempt struct {
	Namespace string
	Name      string
	UID       types.UID
	// Failures is the number of retryable failures so far.
	Failures     int
	NextEligible time.Time
	State        AttemptState
	LastError    string
	Owner        *refreshv1.WorkloadReference
}

// Key returns namespace/name.
func (a *Attempt) Key() string {
	return a.Namespace + "/" + a.Name
}

// Tracker holds the eviction attempts for the node being drained by one
// NodeRefresh. Counts are staged until the owning status write succeeds.
type Tracker struct {
	mu sync.Mutex

	owner    types.UID
	node     string
	attempts map[types.UID]*Attempt
	batch    []types.UID

	// notBefore delays the next batch after one finishes.
	notBefore time.Time

	stagedSucceeded int
	stagedFailed    int
	stagedOwners    []refreshv1.WorkloadReference
}

func newTracker(owner types.UID, node string) *Tracker {
	return &Tracker{
		owner:    owner,
		node:     node,
		attempts: make(map[types.UID]*Attempt),
	}
}

// Node returns the node this tracker belongs to.
func (t *Tracker) Node() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.node
}

// sync drops pending attempts whose pod is no longer present.
func (t *Tracker) sync(present map[types.UID]*corev1.Pod) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.batch[:0]
	for _, uid := range t.batch {
		a := t.attempts[uid]
		if a.State == AttemptPending {
			if _, ok := present[uid]; !ok {
				delete(t.attempts, uid)
				continue
			}
		}
		kept = append(kept, uid)
	}
	t.batch = kept
}

// inFlight reports whether the current batch still has pending attempts.
func (t *Tracker) inFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pendingLocked() > 0
}

func (t *Tracker) pendingLocked() int {
	n := 0
	for _, uid := range t.batch {
		if t.attempts[uid].State == AttemptPending {
			n++
		}
	}
	return n
}

func (t *Tracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pendingLocked()
}

// totals counts terminal attempts for the node.
func (t *Tracker) totals() (succeeded, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, a := range t.attempts {
		switch a.State {
		case AttemptSucceeded:
			succeeded++
		case AttemptFailed:
			failed++
		}
	}
	return succeeded, failed
}

// due returns the pending attempts eligible at now.
func (t *Tracker) due(now time.Time) []types.UID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []types.UID
	for _, uid := range t.batch {
		a := t.attempts[uid]
		if a.State == AttemptPending && !now.Before(a.NextEligible) {
			out = append(out, uid)
		}
	}
	return out
}

// earliest returns the soonest NextEligible among pending attempts.
func (t *Tracker) earliest() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var first time.Time
	found := false
	for _, uid := range t.batch {
		a := t.attempts[uid]
		if a.State != AttemptPending {
			continue
		}
		if !found || a.NextEligible.Before(first) {
			first = a.NextEligible
			found = true
		}
	}
	return first, found
}

// unattempted returns pods that were never part of a batch, ordered by namespace/name.
func (t *Tracker) unattempted(items []*corev1.Pod) []*corev1.Pod {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []*corev1.Pod
	for _, p := range items {
		if _, ok := t.attempts[p.UID]; !ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// startBatch registers pods as a new batch. Any previous batch must be settled.
func (t *Tracker) startBatch(batch []*corev1.Pod, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.batch = t.batch[:0]
	for _, p := range batch {
		t.attempts[p.UID] = &Attempt{
			Namespace:    p.Namespace,
			Name:         p.Name,
			UID:          p.UID,
			NextEligible: now,
			State:        AttemptPending,
			Owner:        ownerOf(p),
		}
		t.batch = append(t.batch, p.UID)
	}
}

// record applies an eviction outcome. It returns the attempt state afterwards.
func (t *Tracker) record(uid types.UID, outcome Outcome, err error, now time.Time, strategy backoff.Strategy) AttemptState {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.attempts[uid]
	if !ok {
		return ""
	}

	switch {
	case outcome == OutcomeEvicted:
		a.State = AttemptSucceeded
		a.LastError = ""
		t.stagedSucceeded++
		if a.Owner != nil {
			t.stagedOwners = append(t.stagedOwners, *a.Owner)
		}
	case outcome == OutcomeGone:
		// Not a failure; the pod is no longer ours to move.
		delete(t.attempts, uid)
		for i, b := range t.batch {
			if b == uid {
				t.batch = append(t.batch[:i], t.batch[i+1:]...)
				break
			}
		}
		return ""
	case outcome.Retryable():
		a.Failures++
		if err != nil {
			a.LastError = err.Error()
		}
		next, exhausted := backoff.NextAttempt(strategy, a.Failures, now)
		if exhausted {
			a.State = AttemptFailed
			t.stagedFailed++
		} else {
			a.NextEligible = next
		}
	}
	return a.State
}

// settle marks the end of a batch and blocks the next one until notBefore.
func (t *Tracker) settle(notBefore time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notBefore = notBefore
}

func (t *Tracker) waitUntil() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.notBefore
}

// Staged returns counts and owners recorded since the last Commit.
func (t *Tracker) Staged() (succeeded, failed int, owners []refreshv1.WorkloadReference) {
	t.mu.Lock()
	defer t.mu.Unlock()
	owners = make([]refreshv1.WorkloadReference, len(t.stagedOwners))
	copy(owners, t.stagedOwners)
	return t.stagedSucceeded, t.stagedFailed, owners
}

// Commit clears staged counts once they are persisted.
func (t *Tracker) Commit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stagedSucceeded = 0
	t.stagedFailed = 0
	t.stagedOwners = nil
}

// Attempts returns a snapshot of all attempts ordered by namespace/name.
func (t *Tracker) Attempts() []Attempt {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Attempt, 0, len(t.attempts))
	for _, a := range t.attempts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func ownerOf(p *corev1.Pod) *refreshv1.WorkloadReference {
	c := metav1.GetControllerOf(p)
	if c == nil {
		return nil
	}
	return &refreshv1.WorkloadReference{Kind: c.Kind, Namespace: p.Namespace, Name: c.Name}
}

// Store keeps one Tracker per NodeRefresh, keyed by name. Trackers are never
// shared between resources.
type Store struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{trackers: make(map[string]*Tracker)}
}

// For returns the tracker of the named resource for node. A tracker left over
// from another node or from a deleted resource with the same name is replaced.
func (s *Store) For(name string, owner types.UID, node string) *Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[name]
	if !ok || t.owner != owner || t.Node() != node {
		t = newTracker(owner, node)
		s.trackers[name] = t
	}
	return t
}

// Get returns the tracker of the named resource, if any.
func (s *Store) Get(name string) (*Tracker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[name]
	return t, ok
}

// Forget discards the tracker of the named resource.
func (s *Store) Forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trackers, name)
}

// Len returns the number of tracked resources.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trackers)
}
