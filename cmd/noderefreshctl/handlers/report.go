package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss/table"

	"github.com/noderefresh/node-refresh-operator/internal/config"
	"github.com/noderefresh/node-refresh-operator/internal/platform/s3"
	"github.com/noderefresh/node-refresh-operator/internal/report"
)

// reportReader reads archived run reports.
type reportReader interface {
	RunIDs(ctx context.Context, name string) ([]string, error)
	Get(ctx context.Context, name, runID string) (report.Report, error)
}

// Factory function variables for report - can be replaced in tests.
var (
	loadConfig = config.Load

	newReportReader = func(ctx context.Context, cfg config.ReportConfig) (reportReader, error) {
		client, err := s3.NewClient(ctx, s3.Options{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return report.NewS3Archiver(client, cfg.Bucket, cfg.Prefix), nil
	}
)

// errNoReportStore is returned when no bucket is configured.
var errNoReportStore = errors.New("no report bucket configured: set report.url in the config file or NODE_REFRESH_REPORT_URL")

func openReports(ctx context.Context, configPath string) (reportReader, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Report.Bucket == "" {
		return nil, errNoReportStore
	}
	return newReportReader(ctx, cfg.Report)
}

// ReportList prints the archived runs of the named NodeRefresh.
func ReportList(ctx context.Context, configPath, name string, jsonOutput bool) error {
	reader, err := openReports(ctx, configPath)
	if err != nil {
		return err
	}

	ids, err := reader.RunIDs(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]report.Report, 0, len(ids))
	for _, id := range ids {
		r, err := reader.Get(ctx, name, id)
		if err != nil {
			return fmt.Errorf("failed to read report %s: %w", id, err)
		}
		reports = append(reports, r)
	}

	if jsonOutput {
		return printJSON(reports)
	}
	if len(reports) == 0 {
		fmt.Printf("No reports archived for %s.\n", name)
		return nil
	}

	t := table.New().Headers("RUN", "PHASE", "NODES", "MOVED", "FAILED", "FINISHED", "DURATION")
	for _, r := range reports {
		t.Row(
			r.RunID,
			phaseIndicator(r.Phase)+" "+r.Phase,
			fmt.Sprintf("%d/%d", len(r.NodesRefreshed), r.TotalNodes),
			fmt.Sprintf("%d", r.PodsMovedSuccessfully),
			fmt.Sprintf("%d", r.PodsMovesFailed),
			r.FinishedAt.UTC().Format(time.RFC3339),
			valueOr(r.Duration, "-"),
		)
	}
	fmt.Println(t.Render())
	return nil
}

// ReportShow prints one archived run.
func ReportShow(ctx context.Context, configPath, name, runID string, jsonOutput bool) error {
	reader, err := openReports(ctx, configPath)
	if err != nil {
		return err
	}

	r, err := reader.Get(ctx, name, runID)
	if err != nil {
		return fmt.Errorf("failed to read report %s: %w", runID, err)
	}

	if jsonOutput {
		return printJSON(r)
	}

	fmt.Println()
	fmt.Printf("Run %s of %s\n", r.RunID, r.Name)
	fmt.Println("------------------------------")
	fmt.Printf("  %s Phase:    %s\n", phaseIndicator(r.Phase), r.Phase)
	if r.Message != "" {
		fmt.Printf("  Message:  %s\n", r.Message)
	}
	if !r.StartedAt.IsZero() {
		fmt.Printf("  Started:  %s\n", r.StartedAt.UTC().Format(time.RFC3339))
	}
	fmt.Printf("  Finished: %s\n", r.FinishedAt.UTC().Format(time.RFC3339))
	if r.Duration != "" {
		fmt.Printf("  Duration: %s\n", r.Duration)
	}
	fmt.Printf("  Nodes:    %d/%d\n", len(r.NodesRefreshed), r.TotalNodes)
	for _, n := range r.NodesRefreshed {
		fmt.Printf("    [OK] %s\n", n)
	}
	if r.FailedNode != "" {
		fmt.Printf("    [!!] %s\n", r.FailedNode)
	}
	fmt.Printf("  Pods:     %d moved, %d failed\n", r.PodsMovedSuccessfully, r.PodsMovesFailed)
	fmt.Println()
	return nil
}
