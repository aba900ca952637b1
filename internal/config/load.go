package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every override variable.
const envPrefix = "NODE_REFRESH_"

// Load builds the configuration from defaults, the optional YAML file at path
// and environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Report.URL != "" {
		bucket, region, endpoint, err := ParseObjectStorageURL(cfg.Report.URL)
		if err != nil {
			return nil, err
		}
		cfg.Report.Bucket, cfg.Report.Region, cfg.Report.Endpoint = bucket, region, endpoint
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides cfg from environment variables. Unset or malformed
// variables leave the current value untouched.
func applyEnv(cfg *Config) {
	c := &cfg.Controller
	c.MaxConcurrentReconciles = parseInt(envPrefix+"MAX_CONCURRENT_RECONCILES", c.MaxConcurrentReconciles)
	c.ValidationInterval = parseDuration(envPrefix+"VALIDATION_INTERVAL", c.ValidationInterval)
	c.MaxValidationAttempts = parseInt(envPrefix+"MAX_VALIDATION_ATTEMPTS", c.MaxValidationAttempts)
	c.HealthRecheckInterval = parseDuration(envPrefix+"HEALTH_RECHECK_INTERVAL", c.HealthRecheckInterval)
	c.BatchInterval = parseDuration(envPrefix+"BATCH_INTERVAL", c.BatchInterval)
	c.ProvisionPollInterval = parseDuration(envPrefix+"PROVISION_POLL_INTERVAL", c.ProvisionPollInterval)
	c.HookCallTimeout = parseDuration(envPrefix+"HOOK_CALL_TIMEOUT", c.HookCallTimeout)
	c.EvictionQPS = parseFloat(envPrefix+"EVICTION_QPS", c.EvictionQPS)
	c.EvictionBurst = parseInt(envPrefix+"EVICTION_BURST", c.EvictionBurst)

	p := &cfg.Provisioning
	p.Provider = parseString(envPrefix+"PROVISIONER", p.Provider)
	p.HCloud.Token = parseString("HCLOUD_TOKEN", p.HCloud.Token)
	p.HCloud.ServerType = parseString(envPrefix+"HCLOUD_SERVER_TYPE", p.HCloud.ServerType)
	p.HCloud.Image = parseString(envPrefix+"HCLOUD_IMAGE", p.HCloud.Image)
	p.HCloud.Location = parseString(envPrefix+"HCLOUD_LOCATION", p.HCloud.Location)

	r := &cfg.Report
	r.Enabled = parseBool(envPrefix+"REPORT_ENABLED", r.Enabled)
	r.URL = parseString(envPrefix+"REPORT_URL", r.URL)
	r.Bucket = parseString(envPrefix+"REPORT_BUCKET", r.Bucket)
	r.AccessKey = parseString(envPrefix+"S3_ACCESS_KEY", r.AccessKey)
	r.SecretKey = parseString(envPrefix+"S3_SECRET_KEY", r.SecretKey)

	l := &cfg.Logging
	l.Level = parseString(envPrefix+"LOG_LEVEL", l.Level)
	l.Format = parseString(envPrefix+"LOG_FORMAT", l.Format)
}

// ParseObjectStorageURL splits a Hetzner Object Storage URL of the form
// [https://]bucket.region.your-objectstorage.com into its parts.
func ParseObjectStorageURL(raw string) (bucket, region, endpoint string, err error) {
	host := strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	host = strings.TrimSuffix(strings.TrimSuffix(host, "/"), ".")

	parts := strings.SplitN(host, ".", 3)
	if len(parts) != 3 || parts[2] != "your-objectstorage.com" || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("invalid object storage URL %q: expected bucket.region.your-objectstorage.com", raw)
	}
	return parts[0], parts[1], "https://" + parts[1] + ".your-objectstorage.com", nil
}

func parseString(envVar, defaultVal string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultVal
}

func parseBool(envVar string, defaultVal bool) bool {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseFloat(envVar string, defaultVal float64) float64 {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
