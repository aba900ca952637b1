package config

import "time"

// Provisioning provider names.
const (
	ProviderNone     = "none"
	ProviderCapacity = "capacity"
	ProviderHCloud   = "hcloud"
)

// Config is the operator configuration.
type Config struct {
	Controller   ControllerConfig   `yaml:"controller"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Report       ReportConfig       `yaml:"report"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ControllerConfig tunes the reconciliation loop.
type ControllerConfig struct {
	// MaxConcurrentReconciles is the number of NodeRefresh resources reconciled in parallel.
	MaxConcurrentReconciles int `yaml:"maxConcurrentReconciles"`

	// ValidationInterval is the wait between validation checks of a drained node.
	ValidationInterval time.Duration `yaml:"validationInterval"`

	// MaxValidationAttempts is how many failed validations fail the run.
	MaxValidationAttempts int `yaml:"maxValidationAttempts"`

	// HealthRecheckInterval is the wait while the health gate holds back eviction.
	HealthRecheckInterval time.Duration `yaml:"healthRecheckInterval"`

	// BatchInterval is the pause between two eviction batches.
	BatchInterval time.Duration `yaml:"batchInterval"`

	// ProvisionPollInterval is the wait between provisioning hook calls.
	ProvisionPollInterval time.Duration `yaml:"provisionPollInterval"`

	// HookCallTimeout bounds a single provisioning hook call.
	HookCallTimeout time.Duration `yaml:"hookCallTimeout"`

	// EvictionQPS and EvictionBurst rate limit eviction requests across all resources.
	EvictionQPS   float64 `yaml:"evictionQPS"`
	EvictionBurst int     `yaml:"evictionBurst"`
}

// ProvisioningConfig selects how replacement capacity is ensured.
type ProvisioningConfig struct {
	// Provider is one of none, capacity or hcloud.
	Provider string       `yaml:"provider"`
	HCloud   HCloudConfig `yaml:"hcloud"`
}

// HCloudConfig describes replacement servers created on Hetzner Cloud.
type HCloudConfig struct {
	// Token is read from HCLOUD_TOKEN only.
	Token      string            `yaml:"-"`
	ServerType string            `yaml:"serverType"`
	Image      string            `yaml:"image"`
	Location   string            `yaml:"location"`
	NamePrefix string            `yaml:"namePrefix"`
	SSHKeys    []string          `yaml:"sshKeys"`
	NetworkID  int64             `yaml:"networkID"`
	UserData   string            `yaml:"userData"`
	Labels     map[string]string `yaml:"labels"`
}

// ReportConfig controls archiving of run reports to S3-compatible storage.
type ReportConfig struct {
	Enabled bool `yaml:"enabled"`
	// URL may be given instead of Endpoint/Region/Bucket, in the form
	// bucket.region.your-objectstorage.com.
	URL       string `yaml:"url"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// LoggingConfig configures the operator logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is json, console or auto.
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Controller: ControllerConfig{
			MaxConcurrentReconciles: 4,
			ValidationInterval:      30 * time.Second,
			MaxValidationAttempts:   10,
			HealthRecheckInterval:   30 * time.Second,
			BatchInterval:           10 * time.Second,
			ProvisionPollInterval:   15 * time.Second,
			HookCallTimeout:         30 * time.Second,
			EvictionQPS:             5,
			EvictionBurst:           10,
		},
		Provisioning: ProvisioningConfig{
			Provider: ProviderNone,
			HCloud: HCloudConfig{
				ServerType: "cx22",
				Image:      "ubuntu-24.04",
				Location:   "fsn1",
				NamePrefix: "refresh",
			},
		},
		Report: ReportConfig{
			Prefix: "noderefresh",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}
