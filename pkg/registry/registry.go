// pkg/registry/registry.go
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"credit-scoring/internal/scoring/features"

	"gopkg.in/yaml.v3"
)

// Artifact encodings.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatFromPath picks the encoding from the file extension. Anything that is
// not .yaml/.yml is treated as JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadArtifact reads and validates an artifact file.
func LoadArtifact(path string) (*ModelArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseArtifact(data, FormatFromPath(path))
}

// ParseArtifact decodes and validates an artifact.
func ParseArtifact(data []byte, format string) (*ModelArtifact, error) {
	var a ModelArtifact
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("decode yaml artifact: %w", err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("decode json artifact: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported artifact format %q", format)
	}

	if a.Kind == "" {
		a.Kind = KindLinear
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Marshal encodes the artifact in the given format.
func (a *ModelArtifact) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		return yaml.Marshal(a)
	default:
		return json.MarshalIndent(a, "", "  ")
	}
}

// SaveArtifact writes the artifact, encoding by extension.
func SaveArtifact(a *ModelArtifact, path string) error {
	data, err := a.Marshal(FormatFromPath(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the artifact against the feature schema.
func (a *ModelArtifact) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("artifact name is required")
	}
	if a.Kind != KindLinear {
		return fmt.Errorf("artifact %s: unsupported kind %q", a.Name, a.Kind)
	}
	if !finite(a.Intercept) {
		return fmt.Errorf("artifact %s: intercept must be finite", a.Name)
	}

	for i, t := range a.Numeric {
		kind, ok := features.KindOf(t.Feature)
		if !ok || kind == features.KindCategorical {
			return fmt.Errorf("artifact %s: numeric[%d]: %q is not a numeric feature", a.Name, i, t.Feature)
		}
		if !finite(t.Weight) || !finite(t.Scale) {
			return fmt.Errorf("artifact %s: numeric[%d]: weight and scale must be finite", a.Name, i)
		}
	}

	for i, t := range a.Categorical {
		kind, ok := features.KindOf(t.Feature)
		if !ok || kind != features.KindCategorical {
			return fmt.Errorf("artifact %s: categorical[%d]: %q is not a categorical feature", a.Name, i, t.Feature)
		}
		if !contains(features.CategoriesOf(t.Feature), t.Value) {
			return fmt.Errorf("artifact %s: categorical[%d]: %q is not a value of %s", a.Name, i, t.Value, t.Feature)
		}
		if !finite(t.Weight) {
			return fmt.Errorf("artifact %s: categorical[%d]: weight must be finite", a.Name, i)
		}
	}

	if a.Clip != nil {
		if !finite(a.Clip.Min) || !finite(a.Clip.Max) || a.Clip.Min > a.Clip.Max {
			return fmt.Errorf("artifact %s: clip min %v must not exceed max %v", a.Name, a.Clip.Min, a.Clip.Max)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
