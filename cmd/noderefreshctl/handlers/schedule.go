package handlers

import (
	"fmt"
	"time"

	"github.com/noderefresh/node-refresh-operator/internal/schedule"
)

// now is replaced in tests.
var now = time.Now

// Schedule prints the next count times expr fires, in UTC.
func Schedule(expr string, count int) error {
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}

	start := now().UTC()
	times, err := schedule.NextN(expr, start, count)
	if err != nil {
		return err
	}
	if len(times) == 0 {
		return fmt.Errorf("schedule %q never fires", expr)
	}

	fmt.Printf("Next %d runs of %q (UTC):\n", len(times), expr)
	for i, t := range times {
		fmt.Printf("  %2d. %s  (in %s)\n", i+1, t.Format(time.RFC3339), t.Sub(start).Round(time.Minute))
	}
	return nil
}
