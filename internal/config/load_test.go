package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Controller.MaxConcurrentReconciles)
	assert.Equal(t, 30*time.Second, cfg.Controller.ValidationInterval)
	assert.Equal(t, 10, cfg.Controller.MaxValidationAttempts)
	assert.Equal(t, ProviderNone, cfg.Provisioning.Provider)
	assert.False(t, cfg.Report.Enabled)
	assert.Equal(t, "auto", cfg.Logging.Format)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
controller:
  maxValidationAttempts: 3
  batchInterval: 1m
provisioning:
  provider: capacity
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Controller.MaxValidationAttempts)
	assert.Equal(t, time.Minute, cfg.Controller.BatchInterval)
	assert.Equal(t, 30*time.Second, cfg.Controller.HealthRecheckInterval, "unset fields keep defaults")
	assert.Equal(t, ProviderCapacity, cfg.Provisioning.Provider)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "controller:\n  maxConcurrentReconciles: 2\n")
	t.Setenv("NODE_REFRESH_MAX_CONCURRENT_RECONCILES", "8")
	t.Setenv("NODE_REFRESH_EVICTION_QPS", "2.5")
	t.Setenv("NODE_REFRESH_LOG_FORMAT", "console")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Controller.MaxConcurrentReconciles)
	assert.InDelta(t, 2.5, cfg.Controller.EvictionQPS, 0.001)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadHCloudRequiresToken(t *testing.T) {
	t.Setenv("HCLOUD_TOKEN", "")
	t.Setenv("NODE_REFRESH_PROVISIONER", "hcloud")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HCLOUD_TOKEN")

	t.Setenv("HCLOUD_TOKEN", "secret")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Provisioning.HCloud.Token)
}

func TestLoadReportURL(t *testing.T) {
	t.Setenv("NODE_REFRESH_S3_ACCESS_KEY", "ak")
	t.Setenv("NODE_REFRESH_S3_SECRET_KEY", "sk")
	path := writeFile(t, `
report:
  enabled: true
  url: https://reports.nbg1.your-objectstorage.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "reports", cfg.Report.Bucket)
	assert.Equal(t, "nbg1", cfg.Report.Region)
	assert.Equal(t, "https://nbg1.your-objectstorage.com", cfg.Report.Endpoint)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad provider", content: "provisioning:\n  provider: aws\n", wantErr: "provisioning.provider"},
		{name: "bad format", content: "logging:\n  format: xml\n", wantErr: "logging.format"},
		{name: "zero attempts", content: "controller:\n  maxValidationAttempts: 0\n", wantErr: "maxValidationAttempts"},
		{name: "report without bucket", content: "report:\n  enabled: true\n", wantErr: "bucket"},
		{name: "malformed yaml", content: "controller: [", wantErr: "unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseObjectStorageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		inputURL       string
		expectedBucket string
		expectedRegion string
		expectedEndpt  string
		wantErr        bool
	}{
		{
			name:           "valid URL with HTTPS",
			inputURL:       "https://mybucket.fsn1.your-objectstorage.com",
			expectedBucket: "mybucket",
			expectedRegion: "fsn1",
			expectedEndpt:  "https://fsn1.your-objectstorage.com",
		},
		{
			name:           "valid URL without protocol",
			inputURL:       "mybucket.nbg1.your-objectstorage.com",
			expectedBucket: "mybucket",
			expectedRegion: "nbg1",
			expectedEndpt:  "https://nbg1.your-objectstorage.com",
		},
		{
			name:           "valid URL with trailing dot",
			inputURL:       "mybucket.hel1.your-objectstorage.com.",
			expectedBucket: "mybucket",
			expectedRegion: "hel1",
			expectedEndpt:  "https://hel1.your-objectstorage.com",
		},
		{
			name:     "invalid URL - not hcloud format",
			inputURL: "s3.amazonaws.com/mybucket",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bucket, region, endpoint, err := ParseObjectStorageURL(tt.inputURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedBucket, bucket)
			assert.Equal(t, tt.expectedRegion, region)
			assert.Equal(t, tt.expectedEndpt, endpoint)
		})
	}
}
