// Package main is the entrypoint for the node-refresh-operator.
package main

import (
	"context"
	"flag"
	"os"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"

	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
	"github.com/noderefresh/node-refresh-operator/internal/config"
	"github.com/noderefresh/node-refresh-operator/internal/drain"
	"github.com/noderefresh/node-refresh-operator/internal/logging"
	"github.com/noderefresh/node-refresh-operator/internal/operator/controller"
	"github.com/noderefresh/node-refresh-operator/internal/platform/s3"
	"github.com/noderefresh/node-refresh-operator/internal/provisioning"
	"github.com/noderefresh/node-refresh-operator/internal/report"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")

	// Version is set at build time
	Version = "dev"
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(refreshv1.AddToScheme(scheme))
}

func main() {
	var (
		configPath           string
		metricsAddr          string
		probeAddr            string
		enableLeaderElection bool
		leaderElectionID     string
	)

	flag.StringVar(&configPath, "config", "", "Path to the operator configuration file.")
	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.BoolVar(&enableLeaderElection, "leader-elect", true, "Enable leader election for controller manager.")
	flag.StringVar(&leaderElectionID, "leader-election-id", "node-refresh-operator", "The name of the leader election resource.")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		// The logger is not configured yet
		_, _ = os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, zl, err := logging.NewLogr(cfg.Logging, logging.Options{
		Development: os.Getenv("DEBUG") == "true",
	})
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()
	ctrl.SetLogger(logger)

	setupLog.Info("starting node-refresh-operator", "version", Version,
		"provisioner", cfg.Provisioning.Provider, "reports", cfg.Report.Enabled)

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: metricsAddr,
		},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       leaderElectionID,
		// LeaderElectionReleaseOnCancel defines if the leader should step down voluntarily
		// when the Manager ends. This requires the binary to immediately end when the
		// Manager is stopped, otherwise, this setting is unsafe.
		LeaderElectionReleaseOnCancel: true,
	})
	if err != nil {
		setupLog.Error(err, "unable to create manager")
		os.Exit(1)
	}

	hook, err := provisioning.New(cfg.Provisioning, mgr.GetClient())
	if err != nil {
		setupLog.Error(err, "unable to create provisioning hook")
		os.Exit(1)
	}

	ctx := ctrl.SetupSignalHandler()

	archiver, err := newArchiver(ctx, cfg.Report)
	if err != nil {
		setupLog.Error(err, "unable to set up report archiving")
		os.Exit(1)
	}

	// One limiter shared by every resource bounds the load on the API server
	limiter := rate.NewLimiter(rate.Limit(cfg.Controller.EvictionQPS), cfg.Controller.EvictionBurst)

	if err = controller.NewNodeRefreshReconciler(
		mgr.GetClient(),
		mgr.GetScheme(),
		mgr.GetEventRecorderFor("noderefresh-controller"),
		controller.WithControllerConfig(cfg.Controller),
		controller.WithEvictor(drain.NewAPIEvictor(mgr.GetClient(), limiter)),
		controller.WithProvisioningHook(hook),
		controller.WithArchiver(archiver),
	).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "NodeRefresh")
		os.Exit(1)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}

// newArchiver returns the S3 archiver when reports are enabled.
func newArchiver(ctx context.Context, cfg config.ReportConfig) (report.Archiver, error) {
	if !cfg.Enabled {
		return report.Discard{}, nil
	}

	client, err := s3.NewClient(ctx, s3.Options{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(ctx, cfg.Bucket); err != nil {
		return nil, err
	}
	setupLog.Info("archiving run reports", "bucket", cfg.Bucket, "prefix", cfg.Prefix)
	return report.NewS3Archiver(client, cfg.Bucket, cfg.Prefix), nil
}
