// Package schedule computes refresh due times from cron expressions.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the standard 5-field format (minute hour day month weekday)
// and descriptors such as @daily or @every 6h.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ErrEmptyExpression is returned when no schedule is configured.
var ErrEmptyExpression = errors.New("empty cron expression")

// Parse parses expr into a cron schedule.
func Parse(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, ErrEmptyExpression
	}
	s, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return s, nil
}

// Validate reports whether expr is a usable schedule. An empty expression is valid.
func Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := Parse(expr)
	return err
}

// Next returns the first instant strictly after now matching expr, in UTC.
func Next(expr string, now time.Time) (time.Time, error) {
	s, err := Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	next := s.Next(now.UTC())
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("schedule %q never fires after %s", expr, now.UTC().Format(time.RFC3339))
	}
	return next, nil
}

// NextN returns the next n instants after now matching expr.
func NextN(expr string, now time.Time, n int) ([]time.Time, error) {
	s, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, n)
	t := now.UTC()
	for range n {
		t = s.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out, nil
}
