// internal/models/menu.go
package models

import (
	"fmt"
	"sort"
	"strings"
)

type NutritionalInfo struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

type DietaryInfo struct {
	IsVegetarian bool `json:"is_vegetarian"`
	IsVegan      bool `json:"is_vegan"`
}

type MenuItem struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	DiningHall string          `json:"dining_hall"`
	Nutrition  NutritionalInfo `json:"nutritional_info"`
	Dietary    DietaryInfo     `json:"dietary_info"`
}

// FilterCriteria narrows a menu query. Every present field is ANDed. The
// dietary flags only constrain when true; a false flag means "no constraint",
// never "exclude vegetarian items".
type FilterCriteria struct {
	DiningHall   string   `json:"dining_hall,omitempty"`
	IsVegetarian bool     `json:"is_vegetarian,omitempty"`
	IsVegan      bool     `json:"is_vegan,omitempty"`
	MaxCalories  *float64 `json:"max_calories,omitempty"`
	MinProtein   *float64 `json:"min_protein,omitempty"`
	// NameContains is a case-insensitive substring match on the item name.
	NameContains string `json:"name_contains,omitempty"`
}

// IsEmpty reports whether the criteria impose no constraint at all.
func (c *FilterCriteria) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.DiningHall == "" && !c.IsVegetarian && !c.IsVegan && c.MaxCalories == nil && c.MinProtein == nil &&
		c.NameContains == ""
}

// Matches applies the criteria to a single item. A nil receiver matches everything.
func (c *FilterCriteria) Matches(item MenuItem) bool {
	if c == nil {
		return true
	}
	if c.DiningHall != "" && item.DiningHall != c.DiningHall {
		return false
	}
	if c.IsVegetarian && !item.Dietary.IsVegetarian {
		return false
	}
	if c.IsVegan && !item.Dietary.IsVegan {
		return false
	}
	if c.MaxCalories != nil && item.Nutrition.Calories > *c.MaxCalories {
		return false
	}
	if c.MinProtein != nil && item.Nutrition.Protein < *c.MinProtein {
		return false
	}
	if c.NameContains != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(c.NameContains)) {
		return false
	}
	return true
}

// Merge returns a copy of c with every constraint present in other layered on
// top. Numeric bounds keep the tighter of the two.
func (c *FilterCriteria) Merge(other *FilterCriteria) *FilterCriteria {
	out := &FilterCriteria{}
	if c != nil {
		*out = *c
	}
	if other == nil {
		return out
	}
	if other.DiningHall != "" {
		out.DiningHall = other.DiningHall
	}
	out.IsVegetarian = out.IsVegetarian || other.IsVegetarian
	out.IsVegan = out.IsVegan || other.IsVegan
	if other.MaxCalories != nil && (out.MaxCalories == nil || *other.MaxCalories < *out.MaxCalories) {
		v := *other.MaxCalories
		out.MaxCalories = &v
	}
	if other.MinProtein != nil && (out.MinProtein == nil || *other.MinProtein > *out.MinProtein) {
		v := *other.MinProtein
		out.MinProtein = &v
	}
	if other.NameContains != "" {
		out.NameContains = other.NameContains
	}
	return out
}

// Key is a stable textual form of the criteria, used for cache keys and logs.
func (c *FilterCriteria) Key() string {
	if c.IsEmpty() {
		return "all"
	}
	var parts []string
	if c.DiningHall != "" {
		parts = append(parts, "hall="+c.DiningHall)
	}
	if c.IsVegetarian {
		parts = append(parts, "veg")
	}
	if c.IsVegan {
		parts = append(parts, "vegan")
	}
	if c.MaxCalories != nil {
		parts = append(parts, fmt.Sprintf("maxcal=%g", *c.MaxCalories))
	}
	if c.MinProtein != nil {
		parts = append(parts, fmt.Sprintf("minprot=%g", *c.MinProtein))
	}
	if c.NameContains != "" {
		parts = append(parts, "name="+strings.ToLower(c.NameContains))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// Float is a convenience for building optional numeric criteria.
func Float(v float64) *float64 {
	return &v
}
