package nutrition

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownActivityLevel is returned by the height-free formula for any
// activity name outside its table. It never falls back to a default.
var ErrUnknownActivityLevel = errors.New("UNKNOWN_ACTIVITY_LEVEL")

// Named activity levels accepted by the height-free calculator.
const (
	Sedentary        = "sedentary"
	LightlyActive    = "lightly active"
	ModeratelyActive = "moderately active"
	VeryActive       = "very active"
)

// DefaultActivityMultiplier is what the height-aware formula uses when the
// ordinal level is absent or outside 1..5.
const DefaultActivityMultiplier = 1.55

var namedMultipliers = map[string]float64{
	Sedentary:        1.2,
	LightlyActive:    1.375,
	ModeratelyActive: 1.55,
	VeryActive:       1.725,
}

var ordinalMultipliers = map[int]float64{
	1: 1.2,
	2: 1.375,
	3: 1.55,
	4: 1.725,
	5: 1.9,
}

// NamedActivityMultiplier is the fail-fast lookup: unmapped names are an error.
func NamedActivityMultiplier(level string) (float64, error) {
	m, ok := namedMultipliers[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownActivityLevel, level)
	}
	return m, nil
}

// OrdinalActivityMultiplier is the lenient lookup: anything outside 1..5,
// including the zero "not collected" value, maps to DefaultActivityMultiplier.
func OrdinalActivityMultiplier(level int) float64 {
	if m, ok := ordinalMultipliers[level]; ok {
		return m
	}
	return DefaultActivityMultiplier
}

// NamedActivityLevels lists the names accepted by NamedActivityMultiplier.
func NamedActivityLevels() []string {
	names := make([]string, 0, len(namedMultipliers))
	for name := range namedMultipliers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return namedMultipliers[names[i]] < namedMultipliers[names[j]]
	})
	return names
}
