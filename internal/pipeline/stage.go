// Package pipeline runs an ordered list of stages, each of which calls its
// data access tools, consults a reasoning collaborator, and hands a read-only
// StageOutput to the stages that declared a dependency on it.
package pipeline

import (
	"encoding/json"
	"sort"
	"time"

	"nutritrack/internal/tools"
)

// ToolOutputs holds the outputs of the tool calls made by one stage, keyed by
// ToolCall.Key (or the tool name when Key is empty).
type ToolOutputs map[string]tools.Output

// ToolCall binds a tool to the way its arguments are derived.
type ToolCall struct {
	Tool tools.Tool
	// Key names the output. Needed only when a stage calls the same tool twice.
	Key string
	// Args builds the call arguments from the stage input and the outputs of
	// calls already made in the same stage. Nil calls the tool with no arguments.
	Args func(in StageInput, prior ToolOutputs) (tools.Args, error)
}

func (c ToolCall) key() string {
	if c.Key != "" {
		return c.Key
	}
	return c.Tool.Name()
}

// Stage is one unit of work. It only ever sees the outputs of the stages
// listed in DependsOn.
type Stage struct {
	ID             string
	Role           string
	Goal           string
	ExpectedOutput string
	Tools          []ToolCall
	DependsOn      []string

	// Derive computes structured data from the input and tool outputs before
	// the reasoner is consulted. Optional.
	Derive func(in StageInput, outputs ToolOutputs) (map[string]interface{}, error)

	// Timeout overrides the orchestrator's stage timeout when positive.
	Timeout time.Duration
}

// StageInput is what a stage is allowed to read: the shared run input and the
// outputs of its declared dependencies.
type StageInput struct {
	shared   map[string]interface{}
	upstream map[string]StageOutput
}

// NewStageInput copies both maps.
func NewStageInput(shared map[string]interface{}, upstream map[string]StageOutput) StageInput {
	up := make(map[string]StageOutput, len(upstream))
	for k, v := range upstream {
		up[k] = v
	}
	return StageInput{shared: cloneMap(shared), upstream: up}
}

func (in StageInput) Shared(key string) (interface{}, bool) {
	v, ok := in.shared[key]
	return v, ok
}

// SharedValues returns a copy of the shared run input.
func (in StageInput) SharedValues() map[string]interface{} {
	return cloneMap(in.shared)
}

func (in StageInput) Upstream(stageID string) (StageOutput, bool) {
	out, ok := in.upstream[stageID]
	return out, ok
}

// UpstreamIDs lists the visible upstream stages in sorted order.
func (in StageInput) UpstreamIDs() []string {
	return sortedKeys(in.upstream)
}

// StageOutput is the immutable result of a completed stage.
type StageOutput struct {
	stageID     string
	text        string
	tools       ToolOutputs
	data        map[string]interface{}
	completedAt time.Time
}

// NewStageOutput copies the maps it is given. Values are stored as is, so
// stages and callers must treat what they read from an output as read-only
// and copy slices before changing them.
func NewStageOutput(stageID, text string, toolOutputs ToolOutputs, data map[string]interface{}) StageOutput {
	t := make(ToolOutputs, len(toolOutputs))
	for k, v := range toolOutputs {
		t[k] = v
	}
	return StageOutput{
		stageID:     stageID,
		text:        text,
		tools:       t,
		data:        cloneMap(data),
		completedAt: time.Now().UTC(),
	}
}

func (o StageOutput) StageID() string        { return o.stageID }
func (o StageOutput) Text() string           { return o.text }
func (o StageOutput) CompletedAt() time.Time { return o.completedAt }

func (o StageOutput) Tool(key string) (tools.Output, bool) {
	out, ok := o.tools[key]
	return out, ok
}

func (o StageOutput) ToolKeys() []string {
	return sortedKeys(o.tools)
}

func (o StageOutput) Data(key string) (interface{}, bool) {
	v, ok := o.data[key]
	return v, ok
}

func (o StageOutput) DataKeys() []string {
	return sortedKeys(o.data)
}

func (o StageOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StageID     string                 `json:"stage_id"`
		Text        string                 `json:"text"`
		ToolOutputs ToolOutputs            `json:"tool_outputs,omitempty"`
		Data        map[string]interface{} `json:"data,omitempty"`
		CompletedAt time.Time              `json:"completed_at"`
	}{o.stageID, o.text, o.tools, o.data, o.completedAt})
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
