package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: credit-scoring
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ModelSourceBuiltin, cfg.Model.Source)
	assert.Equal(t, 700.0, cfg.Scoring.LowRiskMin)
	assert.Equal(t, 640.0, cfg.Scoring.MediumRiskMin)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 5000, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Camunda.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_FileSource(t *testing.T) {
	path := writeConfig(t, `
model:
  source: FILE
  path: ./models/credit-linear.yaml
scoring:
  low_risk_min: 720
  medium_risk_min: 660
workers:
  predict-credit-score:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ModelSourceFile, cfg.Model.Source)
	assert.Equal(t, "./models/credit-linear.yaml", cfg.Model.Path)
	assert.Equal(t, 720.0, cfg.Scoring.LowRiskMin)
	assert.Equal(t, 660.0, cfg.Scoring.MediumRiskMin)

	w := GetWorkerConfig(cfg, "predict-credit-score")
	assert.True(t, w.Enabled)
	assert.Equal(t, 10, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
}

func TestLoadFromFile_EnvExpansionAndOverride(t *testing.T) {
	t.Setenv("TEST_MODEL_URL", "http://model-api:5000/predict")
	t.Setenv("LOGGING_LEVEL", "debug")

	path := writeConfig(t, `
model:
  source: remote
  remote:
    url: ${TEST_MODEL_URL}
logging:
  level: info
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://model-api:5000/predict", cfg.Model.Remote.URL)
	assert.Equal(t, 2000, cfg.Model.Remote.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown source",
			body: "model:\n  source: s3\n",
			want: "not supported",
		},
		{
			name: "file source without path",
			body: "model:\n  source: file\n",
			want: "model.path is required",
		},
		{
			name: "redis source without address",
			body: "model:\n  source: redis\n",
			want: "database.redis.address is required",
		},
		{
			name: "postgres source without host",
			body: "model:\n  source: postgres\n",
			want: "database.postgres.host is required",
		},
		{
			name: "remote source without url",
			body: "model:\n  source: remote\n",
			want: "model.remote.url is required",
		},
		{
			name: "thresholds inverted",
			body: "scoring:\n  low_risk_min: 600\n  medium_risk_min: 640\n",
			want: "must be below",
		},
		{
			name: "camunda without broker",
			body: "camunda:\n  enabled: true\n",
			want: "camunda.broker_address is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "scoring", Password: "pw", Database: "models", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=scoring password=pw dbname=models sslmode=disable", p.GetDSN())
}
