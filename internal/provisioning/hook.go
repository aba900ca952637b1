package provisioning

import (
	"context"
	"errors"
	"fmt"
)

// Status is the answer of a Hook.
type Status string

const (
	// StatusReady means the node may be drained.
	StatusReady Status = "Ready"
	// StatusNotReady means capacity is still being prepared.
	StatusNotReady Status = "NotReady"
)

// Target identifies the node capacity is needed for.
type Target struct {
	// Node is the node about to be drained.
	Node string
	// Owner is the name of the NodeRefresh driving the run.
	Owner string
	// RunID identifies the refresh run.
	RunID string
	// Selector is the NodeRefresh target label set.
	Selector map[string]string
}

// Hook is implemented by capacity providers.
type Hook interface {
	Name() string
	// EnsureCapacity starts or checks provisioning for target without blocking.
	EnsureCapacity(ctx context.Context, target Target) (Status, error)
}

// TransientError marks a hook failure that should be retried on the next poll.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err so the Gate treats it as NotReady.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is a TransientError or a timeout of the call itself.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t) || errors.Is(err, context.DeadlineExceeded)
}
