package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonArtifact = `{
  "name": "credit-linear",
  "version": "2.0.0",
  "intercept": 300,
  "numeric": [{"feature": "income_level", "weight": 30, "scale": 10000}],
  "categorical": [{"feature": "payment_history", "value": "Good", "weight": 100}],
  "clip": {"min": 300, "max": 850}
}`

func TestParseArtifact_JSON(t *testing.T) {
	a, err := ParseArtifact([]byte(jsonArtifact), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "credit-linear@2.0.0", a.Ref())
	assert.Equal(t, KindLinear, a.Kind)
	require.Len(t, a.Numeric, 1)
	assert.Equal(t, 10000.0, a.Numeric[0].Scale)
	require.NotNil(t, a.Clip)
	assert.Equal(t, 850.0, a.Clip.Max)
}

func TestLoadArtifact_SampleYAML(t *testing.T) {
	a, err := LoadArtifact(filepath.Join("..", "..", "configs", "models", "credit-linear.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "credit-linear", a.Name)
	assert.Equal(t, 300.0, a.Intercept)
	assert.Len(t, a.Numeric, 4)
	assert.Len(t, a.Categorical, 3)
}

func TestSaveArtifact_RoundTripThroughYAML(t *testing.T) {
	a, err := ParseArtifact([]byte(jsonArtifact), FormatJSON)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.yml")
	require.NoError(t, SaveArtifact(a, path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, a, loaded)
}

func TestParseArtifact_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
		want   string
	}{
		{name: "unknown format", data: jsonArtifact, format: "toml", want: "unsupported artifact format"},
		{name: "malformed json", data: `{"name":`, format: FormatJSON, want: "decode json artifact"},
		{name: "unknown json field", data: `{"name":"m","weights":[]}`, format: FormatJSON, want: "unknown field"},
		{name: "unknown yaml field", data: "name: m\nweights: []\n", format: FormatYAML, want: "decode yaml artifact"},
		{name: "missing name", data: `{"intercept": 1}`, format: FormatJSON, want: "name is required"},
		{name: "unsupported kind", data: `{"name":"m","kind":"forest"}`, format: FormatJSON, want: "unsupported kind"},
		{
			name:   "numeric term on categorical feature",
			data:   `{"name":"m","numeric":[{"feature":"payment_history","weight":1}]}`,
			format: FormatJSON,
			want:   "is not a numeric feature",
		},
		{
			name:   "unknown feature",
			data:   `{"name":"m","numeric":[{"feature":"salary","weight":1}]}`,
			format: FormatJSON,
			want:   "is not a numeric feature",
		},
		{
			name:   "unknown category value",
			data:   `{"name":"m","categorical":[{"feature":"employment_status","value":"Retired","weight":1}]}`,
			format: FormatJSON,
			want:   "is not a value of employment_status",
		},
		{
			name:   "inverted clip",
			data:   `{"name":"m","clip":{"min":850,"max":300}}`,
			format: FormatJSON,
			want:   "must not exceed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArtifact([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadArtifact_MissingFile(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b/model.YAML"))
	assert.Equal(t, FormatYAML, FormatFromPath("model.yml"))
	assert.Equal(t, FormatJSON, FormatFromPath("model.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("model"))
}
