package provisioning

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const defaultCallTimeout = 30 * time.Second

// Decision is the outcome of one Gate check.
type Decision struct {
	Ready    bool
	TimedOut bool
	// Elapsed is the time spent provisioning so far.
	Elapsed time.Duration
	// Detail describes the last transient failure, if any.
	Detail string
}

// Gate enforces the provisioning deadline around a Hook.
type Gate struct {
	hook        Hook
	clock       clock.PassiveClock
	callTimeout time.Duration
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateClock sets the clock used to measure elapsed time.
func WithGateClock(c clock.PassiveClock) GateOption {
	return func(g *Gate) { g.clock = c }
}

// WithCallTimeout bounds each EnsureCapacity call.
func WithCallTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.callTimeout = d
		}
	}
}

// NewGate wraps hook.
func NewGate(hook Hook, opts ...GateOption) *Gate {
	g := &Gate{hook: hook, clock: clock.RealClock{}, callTimeout: defaultCallTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check asks the hook once. Capacity that becomes ready is accepted even past
// the deadline; otherwise the run times out once timeout has elapsed since started.
// Non-transient hook errors are returned as is.
func (g *Gate) Check(ctx context.Context, target Target, started time.Time, timeout time.Duration) (Decision, error) {
	logger := log.FromContext(ctx).WithValues("node", target.Node, "provider", g.hook.Name())

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	status, err := g.hook.EnsureCapacity(callCtx, target)
	cancel()

	d := Decision{Elapsed: g.clock.Since(started)}
	if d.Elapsed < 0 {
		d.Elapsed = 0
	}

	switch {
	case err != nil && !IsTransient(err):
		return d, fmt.Errorf("provider %s failed for node %s: %w", g.hook.Name(), target.Node, err)
	case err != nil:
		logger.V(1).Info("transient provisioning error", "error", err)
		d.Detail = err.Error()
	case status == StatusReady:
		d.Ready = true
		return d, nil
	}

	if d.Elapsed >= timeout {
		d.TimedOut = true
	}
	return d, nil
}
