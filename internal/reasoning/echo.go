package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"nutritrack/internal/pipeline"
)

// EchoReasoner answers without any upstream call by summarising what the
// stage computed. The same request always yields the same text.
type EchoReasoner struct{}

func NewEchoReasoner() *EchoReasoner { return &EchoReasoner{} }

func (EchoReasoner) Reason(ctx context.Context, req pipeline.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", req.Role, req.Goal)

	for _, key := range toolKeys(req.ToolOutputs) {
		status := "ok"
		if !req.ToolOutputs[key].Succeeded() {
			status = "no result"
		}
		fmt.Fprintf(&b, "\n- %s: %s", key, status)
	}

	if len(req.Derived) > 0 {
		data, err := json.Marshal(req.Derived)
		if err != nil {
			return "", fmt.Errorf("encode derived data: %w", err)
		}
		fmt.Fprintf(&b, "\n%s", data)
	}
	return b.String(), nil
}

func toolKeys(outputs pipeline.ToolOutputs) []string {
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
