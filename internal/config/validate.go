package config

import (
	"errors"
	"fmt"
	"slices"
)

// ValidLocations contains all valid Hetzner Cloud datacenter locations.
// https://docs.hetzner.com/cloud/general/locations/
var ValidLocations = map[string]bool{
	"nbg1": true, // Nuremberg, Germany
	"fsn1": true, // Falkenstein, Germany
	"hel1": true, // Helsinki, Finland
	"ash":  true, // Ashburn, USA
	"hil":  true, // Hillsboro, USA
	"sin":  true, // Singapore
}

var (
	validProviders  = []string{ProviderNone, ProviderCapacity, ProviderHCloud}
	validLogFormats = []string{"json", "console", "auto"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
)

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	var errs []error

	ctl := c.Controller
	if ctl.MaxConcurrentReconciles < 1 {
		errs = append(errs, fmt.Errorf("controller.maxConcurrentReconciles must be at least 1, got %d", ctl.MaxConcurrentReconciles))
	}
	if ctl.MaxValidationAttempts < 1 {
		errs = append(errs, fmt.Errorf("controller.maxValidationAttempts must be at least 1, got %d", ctl.MaxValidationAttempts))
	}
	for name, d := range map[string]int64{
		"validationInterval":    int64(ctl.ValidationInterval),
		"healthRecheckInterval": int64(ctl.HealthRecheckInterval),
		"provisionPollInterval": int64(ctl.ProvisionPollInterval),
		"hookCallTimeout":       int64(ctl.HookCallTimeout),
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("controller.%s must be positive", name))
		}
	}
	if ctl.BatchInterval < 0 {
		errs = append(errs, errors.New("controller.batchInterval must not be negative"))
	}
	if ctl.EvictionQPS < 0 || ctl.EvictionBurst < 0 {
		errs = append(errs, errors.New("controller eviction rate limits must not be negative"))
	}

	if !slices.Contains(validProviders, c.Provisioning.Provider) {
		errs = append(errs, fmt.Errorf("provisioning.provider must be one of %v, got %q", validProviders, c.Provisioning.Provider))
	}
	if c.Provisioning.Provider == ProviderHCloud {
		if err := c.Provisioning.HCloud.validate(); err != nil {
			errs = append(errs, fmt.Errorf("provisioning.hcloud: %w", err))
		}
	}

	if c.Report.Enabled {
		if c.Report.Bucket == "" || c.Report.Endpoint == "" {
			errs = append(errs, errors.New("report requires bucket and endpoint (or url) when enabled"))
		}
		if c.Report.AccessKey == "" || c.Report.SecretKey == "" {
			errs = append(errs, errors.New("report requires S3 credentials when enabled"))
		}
	}

	if !slices.Contains(validLogFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of %v, got %q", validLogFormats, c.Logging.Format))
	}
	if !slices.Contains(validLogLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %v, got %q", validLogLevels, c.Logging.Level))
	}

	return errors.Join(errs...)
}

func (h HCloudConfig) validate() error {
	var errs []error
	if h.Token == "" {
		errs = append(errs, errors.New("HCLOUD_TOKEN is required"))
	}
	if h.ServerType == "" {
		errs = append(errs, errors.New("serverType is required"))
	}
	if h.Image == "" {
		errs = append(errs, errors.New("image is required"))
	}
	if !ValidLocations[h.Location] {
		errs = append(errs, fmt.Errorf("invalid location %q", h.Location))
	}
	return errors.Join(errs...)
}
