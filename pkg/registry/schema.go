// pkg/registry/schema.go
package registry

// KindLinear is the only model kind the service evaluates in-process.
const KindLinear = "linear"

// ModelArtifact is the published, immutable description of a scoring model.
type ModelArtifact struct {
	Name        string            `json:"name" yaml:"name"`
	Version     string            `json:"version" yaml:"version"`
	Kind        string            `json:"kind" yaml:"kind"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	PublishedAt string            `json:"publishedAt,omitempty" yaml:"publishedAt,omitempty"`
	Intercept   float64           `json:"intercept" yaml:"intercept"`
	Numeric     []NumericTerm     `json:"numeric" yaml:"numeric"`
	Categorical []CategoricalTerm `json:"categorical" yaml:"categorical"`
	Clip        *Clip             `json:"clip,omitempty" yaml:"clip,omitempty"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// NumericTerm contributes Weight * value / Scale. A zero Scale means 1.
type NumericTerm struct {
	Feature string  `json:"feature" yaml:"feature"`
	Weight  float64 `json:"weight" yaml:"weight"`
	Scale   float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// CategoricalTerm contributes Weight when Feature equals Value.
type CategoricalTerm struct {
	Feature string  `json:"feature" yaml:"feature"`
	Value   string  `json:"value" yaml:"value"`
	Weight  float64 `json:"weight" yaml:"weight"`
}

// Clip bounds the raw model output, inclusive.
type Clip struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Ref identifies an artifact for logs and the /model endpoint.
func (a *ModelArtifact) Ref() string {
	if a.Version == "" {
		return a.Name
	}
	return a.Name + "@" + a.Version
}
