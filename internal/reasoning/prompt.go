package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"nutritrack/internal/pipeline"
)

// BuildPrompt renders a stage request as a single prompt. Map contents are
// rendered as JSON, so equal requests produce equal prompts.
func BuildPrompt(req pipeline.Request) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("You are the %s.", req.Role))
	parts = append(parts, fmt.Sprintf("Goal: %s", req.Goal))
	if req.ExpectedOutput != "" {
		parts = append(parts, fmt.Sprintf("Expected output: %s", req.ExpectedOutput))
	}

	if shared := req.Input.SharedValues(); len(shared) > 0 {
		parts = append(parts, "\nRequest:")
		parts = append(parts, toJSON(shared))
	}

	if len(req.ToolOutputs) > 0 {
		parts = append(parts, "\nTool results:")
		parts = append(parts, toJSON(req.ToolOutputs))
	}

	if len(req.Derived) > 0 {
		parts = append(parts, "\nComputed data:")
		parts = append(parts, toJSON(req.Derived))
	}

	for _, id := range req.Input.UpstreamIDs() {
		out, _ := req.Input.Upstream(id)
		parts = append(parts, fmt.Sprintf("\nFindings from %s:", id))
		parts = append(parts, out.Text())
	}

	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- Use only the data above")
	parts = append(parts, "- If data is insufficient, say so clearly")
	parts = append(parts, "- Keep the response concise")

	return strings.Join(parts, "\n")
}

func toJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
