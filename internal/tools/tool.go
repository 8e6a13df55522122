// Package tools holds the data access capabilities a pipeline stage may call.
package tools

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"

	"nutritrack/internal/models"
)

// ErrStoreUnavailable is joined onto every failure that came from the backing store.
var ErrStoreUnavailable = stderrors.New("STORE_UNAVAILABLE")

const (
	ArgUserID   = "user_id"
	ArgCriteria = "criteria"
)

// Tool is a named data access capability.
//
// A returned error means the call itself broke (store down, bad arguments).
// A domain-level miss, such as an unknown user id, is reported through
// Output.Err with a nil error so callers can branch on it.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, args Args) (Output, error)
}

// Output is the structured result of a tool call.
type Output interface {
	Succeeded() bool
	// Err describes a structured failure. It is nil when Succeeded is true.
	Err() error
}

// Args are the named arguments of a tool call.
type Args map[string]interface{}

// Int64 reads an integer id. JSON-decoded numbers and numeric strings are accepted.
func (a Args) Int64(key string) (int64, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("argument %q must be a whole number, got %v", key, n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q: %w", key, err)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("argument %q has unsupported type %T", key, v)
	}
}

// Criteria reads optional filter criteria. An absent or nil value yields nil,
// which every MenuReader treats as the empty filter.
func (a Args) Criteria(key string) (*models.FilterCriteria, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch c := v.(type) {
	case *models.FilterCriteria:
		return c, nil
	case models.FilterCriteria:
		return &c, nil
	case map[string]interface{}:
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", key, err)
		}
		var decoded models.FilterCriteria
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("argument %q: %w", key, err)
		}
		return &decoded, nil
	default:
		return nil, fmt.Errorf("argument %q has unsupported type %T", key, v)
	}
}
