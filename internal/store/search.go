// internal/store/search.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/models"
)

const (
	querySearchMenu = "menu_search"
	defaultPageSize = 500
)

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// MenuIndexMapping is the index layout SearchMenuReader expects. name keeps
// a keyword sub-field for substring matching.
const MenuIndexMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "long"},
      "name":          {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "dining_hall":   {"type": "keyword"},
      "calories":      {"type": "float"},
      "protein":       {"type": "float"},
      "fat":           {"type": "float"},
      "carbs":         {"type": "float"},
      "is_vegetarian": {"type": "boolean"},
      "is_vegan":      {"type": "boolean"}
    }
  }
}`

// SearchMenuReader reads the menu catalog from an Elasticsearch index whose
// documents mirror the menu_items table columns.
type SearchMenuReader struct {
	client *elasticsearch.Client
	index  string
	size   int
	logger logger.Logger
}

func NewSearchMenuReader(client *elasticsearch.Client, index string, log logger.Logger) *SearchMenuReader {
	return &SearchMenuReader{
		client: client,
		index:  index,
		size:   defaultPageSize,
		logger: log.WithFields(map[string]interface{}{"component": "menu_search", "index": index}),
	}
}

// WithPageSize sets how many hits each search request fetches.
func (s *SearchMenuReader) WithPageSize(n int) *SearchMenuReader {
	if n > 0 {
		s.size = n
	}
	return s
}

type menuDocument struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	DiningHall   string  `json:"dining_hall"`
	Calories     float64 `json:"calories"`
	Protein      float64 `json:"protein"`
	Fat          float64 `json:"fat"`
	Carbs        float64 `json:"carbs"`
	IsVegetarian bool    `json:"is_vegetarian"`
	IsVegan      bool    `json:"is_vegan"`
}

func (d menuDocument) toMenuItem() models.MenuItem {
	return models.MenuItem{
		ID:         d.ID,
		Name:       d.Name,
		DiningHall: d.DiningHall,
		Nutrition: models.NutritionalInfo{
			Calories: d.Calories,
			Protein:  d.Protein,
			Fat:      d.Fat,
			Carbs:    d.Carbs,
		},
		Dietary: models.DietaryInfo{
			IsVegetarian: d.IsVegetarian,
			IsVegan:      d.IsVegan,
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// BuildMenuSearch renders the criteria as a bool/filter query. Empty criteria
// become match_all.
func BuildMenuSearch(c *models.FilterCriteria) map[string]interface{} {
	if c.IsEmpty() {
		return map[string]interface{}{"query": map[string]interface{}{"match_all": map[string]interface{}{}}}
	}

	var filters []interface{}
	term := func(field string, v interface{}) {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{field: v}})
	}
	rng := func(field, op string, v float64) {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{field: map[string]interface{}{op: v}},
		})
	}

	if c.DiningHall != "" {
		term("dining_hall", c.DiningHall)
	}
	if c.IsVegetarian {
		term("is_vegetarian", true)
	}
	if c.IsVegan {
		term("is_vegan", true)
	}
	if c.MaxCalories != nil {
		rng("calories", "lte", *c.MaxCalories)
	}
	if c.MinProtein != nil {
		rng("protein", "gte", *c.MinProtein)
	}
	if c.NameContains != "" {
		filters = append(filters, map[string]interface{}{
			"wildcard": map[string]interface{}{
				"name.keyword": map[string]interface{}{
					"value":            "*" + wildcardEscaper.Replace(c.NameContains) + "*",
					"case_insensitive": true,
				},
			},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
	}
}

// ListMenuItems pages through every matching hit with search_after on id.
func (s *SearchMenuReader) ListMenuItems(ctx context.Context, criteria *models.FilterCriteria) ([]models.MenuItem, error) {
	query := BuildMenuSearch(criteria)

	var (
		items []models.MenuItem
		after *int64
		pages int
	)
	for {
		hits, err := s.searchPage(ctx, query, after)
		if err != nil {
			return nil, err
		}
		pages++
		for _, hit := range hits {
			items = append(items, hit.Source.toMenuItem())
		}
		if len(hits) < s.size {
			break
		}
		last := hits[len(hits)-1].Source.ID
		after = &last
	}
	if items == nil {
		items = []models.MenuItem{}
	}

	s.logger.Debug("menu search finished", map[string]interface{}{
		"criteria": criteria.Key(),
		"hits":     len(items),
		"pages":    pages,
	})

	return items, nil
}

type searchHit struct {
	Source menuDocument `json:"_source"`
}

func (s *SearchMenuReader) searchPage(ctx context.Context, query map[string]interface{}, after *int64) ([]searchHit, error) {
	page := make(map[string]interface{}, len(query)+1)
	for k, v := range query {
		page[k] = v
	}
	if after != nil {
		page["search_after"] = []interface{}{*after}
	}

	body, err := json.Marshal(page)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(querySearchMenu, err)
	}

	size := s.size
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
		Sort:  []string{"id:asc"},
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError(querySearchMenu, err)
		}
		return nil, errors.NewStoreUnavailableError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewQueryExecutionFailedError(querySearchMenu, fmt.Errorf("search failed: %s", res.Status()))
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, errors.NewQueryExecutionFailedError(querySearchMenu, err)
	}
	return decoded.Hits.Hits, nil
}
