package v1

import (
	"errors"
	"fmt"
	"time"
)

// MaxBatchSize returns MaxPodsToMoveAtOnce or its default.
func (s *NodeRefreshSpec) MaxBatchSize() int {
	if s.MaxPodsToMoveAtOnce <= 0 {
		return int(DefaultMaxPodsToMoveAtOnce)
	}
	return int(s.MaxPodsToMoveAtOnce)
}

// HealthThreshold returns MinHealthThreshold or its default.
func (s *NodeRefreshSpec) HealthThreshold() int {
	if s.MinHealthThreshold == nil {
		return int(DefaultMinHealthThreshold)
	}
	return int(*s.MinHealthThreshold)
}

// GracePeriod returns GracePeriodSeconds or its default.
func (s *NodeRefreshSpec) GracePeriod() int64 {
	if s.GracePeriodSeconds == nil {
		return DefaultGracePeriodSeconds
	}
	return *s.GracePeriodSeconds
}

// ProvisionTimeout returns NodeProvisionTimeout as a duration.
func (s *NodeRefreshSpec) ProvisionTimeout() time.Duration {
	if s.NodeProvisionTimeout <= 0 {
		return time.Duration(DefaultNodeProvisionTimeout) * time.Second
	}
	return time.Duration(s.NodeProvisionTimeout) * time.Second
}

// HealthNamespaces returns the namespaces the health gate is scoped to.
func (s *NodeRefreshSpec) HealthNamespaces() []string {
	if s.HealthScope == nil {
		return nil
	}
	return s.HealthScope.Namespaces
}

// Validate checks the spec for values the schema cannot express or that were
// written without schema validation.
func (s *NodeRefreshSpec) Validate() error {
	var errs []error
	if len(s.TargetNodeLabels) == 0 {
		errs = append(errs, errors.New("targetNodeLabels must contain at least one label"))
	}
	for k := range s.TargetNodeLabels {
		if k == "" {
			errs = append(errs, errors.New("targetNodeLabels contains an empty key"))
		}
	}
	if s.MaxPodsToMoveAtOnce < 0 {
		errs = append(errs, fmt.Errorf("maxPodsToMoveAtOnce must be positive, got %d", s.MaxPodsToMoveAtOnce))
	}
	if t := s.HealthThreshold(); t < 0 || t > 100 {
		errs = append(errs, fmt.Errorf("minHealthThreshold must be between 0 and 100, got %d", t))
	}
	if s.GracePeriod() < 0 {
		errs = append(errs, fmt.Errorf("gracePeriodSeconds must not be negative, got %d", s.GracePeriod()))
	}
	if s.NodeProvisionTimeout < 0 {
		errs = append(errs, fmt.Errorf("nodeProvisionTimeout must be positive, got %d", s.NodeProvisionTimeout))
	}
	return errors.Join(errs...)
}
