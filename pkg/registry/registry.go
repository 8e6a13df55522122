// pkg/registry/registry.go
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	StageCollection     = "collection"
	StageAnalysis       = "analysis"
	StageRecommendation = "recommendation"
)

// Default returns the built-in stage definitions.
func Default() *StageRegistry {
	return &StageRegistry{
		Version: "1",
		Stages: []StageDefinition{
			{
				ID:             StageCollection,
				Role:           "Data Collection Expert",
				Goal:           "Gather and organize user preferences and menu data",
				Description:    "Fetch the user's profile and computed daily needs, then the menu items compatible with their dietary restrictions.",
				ExpectedOutput: "A summary of the user's needs and restrictions and the menu items available to them.",
			},
			{
				ID:             StageAnalysis,
				Role:           "Nutrition Analyzer",
				Goal:           "Analyze dietary needs and menu options",
				Description:    "Compare menu items that fit a single meal against the user's daily targets and goal.",
				ExpectedOutput: "An assessment of which menu items best fit the user's needs, with reasons.",
			},
			{
				ID:             StageRecommendation,
				Role:           "Menu Recommender",
				Goal:           "Generate personalized menu recommendations",
				Description:    "Combine the collected data and the analysis into a meal plan that answers the user's request.",
				ExpectedOutput: "A personalized list of recommended menu items with portion guidance.",
			},
		},
	}
}

// LoadRegistry reads stage definitions from a YAML file and layers them over
// the defaults. An empty path returns the defaults.
func LoadRegistry(path string) (*StageRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage definitions: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML definitions. Unknown fields are rejected; stages missing
// from the document keep their default text, and empty fields of a known
// stage fall back to the default value.
func Parse(data []byte) (*StageRegistry, error) {
	var parsed StageRegistry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&parsed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse stage definitions: %w", err)
	}

	reg := Default()
	if parsed.Version != "" {
		reg.Version = parsed.Version
	}

	seen := make(map[string]bool, len(parsed.Stages))
	for _, def := range parsed.Stages {
		id := strings.TrimSpace(def.ID)
		if id == "" {
			return nil, fmt.Errorf("stage definition without id")
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate stage definition %q", id)
		}
		if def.Timeout < 0 {
			return nil, fmt.Errorf("stage %q: timeout must not be negative", id)
		}
		seen[id] = true
		def.ID = id

		idx := indexOf(reg.Stages, id)
		if idx < 0 {
			if def.Role == "" || def.Goal == "" {
				return nil, fmt.Errorf("stage %q: role and goal are required", id)
			}
			reg.Stages = append(reg.Stages, def)
			continue
		}
		reg.Stages[idx] = overlay(reg.Stages[idx], def)
	}
	return reg, nil
}

func overlay(base, over StageDefinition) StageDefinition {
	if over.Role != "" {
		base.Role = over.Role
	}
	if over.Goal != "" {
		base.Goal = over.Goal
	}
	if over.Description != "" {
		base.Description = over.Description
	}
	if over.ExpectedOutput != "" {
		base.ExpectedOutput = over.ExpectedOutput
	}
	if over.Timeout > 0 {
		base.Timeout = over.Timeout
	}
	return base
}

func indexOf(defs []StageDefinition, id string) int {
	for i, d := range defs {
		if d.ID == id {
			return i
		}
	}
	return -1
}
