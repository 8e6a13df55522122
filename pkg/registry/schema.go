// pkg/registry/schema.go
package registry

// StageRegistry describes the stages of the recommendation pipeline.
type StageRegistry struct {
	Version string            `yaml:"version"`
	Stages  []StageDefinition `yaml:"stages"`
}

// StageDefinition carries the descriptive text handed to the reasoning
// collaborator. Wiring (tools, dependencies) stays in code.
type StageDefinition struct {
	ID             string `yaml:"id"`
	Role           string `yaml:"role"`
	Goal           string `yaml:"goal"`
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
	Timeout        int    `yaml:"timeout"` // milliseconds, 0 uses the pipeline default
}

// Get returns the definition with the given id.
func (r *StageRegistry) Get(id string) (StageDefinition, bool) {
	for _, s := range r.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return StageDefinition{}, false
}
