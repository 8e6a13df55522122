// internal/tools/menu.go
package tools

import (
	"context"
	"fmt"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/common/metrics"
	"nutritrack/internal/models"
	"nutritrack/internal/store"
)

const MenuFetcherName = "Menu Catalog Fetcher"

// MenuResult always reports success; an empty item list is a valid answer.
type MenuResult struct {
	Success    bool              `json:"success"`
	MenuItems  []models.MenuItem `json:"menu_items"`
	TotalItems int               `json:"total_items"`
}

func (r *MenuResult) Succeeded() bool { return r.Success }

func (r *MenuResult) Err() error { return nil }

type MenuFetcher struct {
	menus  store.MenuReader
	logger logger.Logger
}

func NewMenuFetcher(menus store.MenuReader, log logger.Logger) *MenuFetcher {
	return &MenuFetcher{
		menus:  menus,
		logger: log.WithFields(map[string]interface{}{"tool": MenuFetcherName}),
	}
}

func (f *MenuFetcher) Name() string { return MenuFetcherName }

func (f *MenuFetcher) Description() string {
	return "Fetches dining hall menu items with nutritional information, optionally filtered by dining hall, vegetarian or vegan status, maximum calories, minimum protein and name."
}

func (f *MenuFetcher) Run(ctx context.Context, args Args) (Output, error) {
	criteria, err := args.Criteria(ArgCriteria)
	if err != nil {
		metrics.ToolInvocations.WithLabelValues(MenuFetcherName, metrics.OutcomeError).Inc()
		return nil, errors.NewValidationError(err.Error())
	}

	res, err := f.Fetch(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Fetch is the typed form of Run. A nil criteria lists the whole catalog.
func (f *MenuFetcher) Fetch(ctx context.Context, criteria *models.FilterCriteria) (*MenuResult, error) {
	items, err := f.menus.ListMenuItems(ctx, criteria)
	if err != nil {
		metrics.ToolInvocations.WithLabelValues(MenuFetcherName, metrics.OutcomeError).Inc()
		f.logger.Error("menu lookup failed", map[string]interface{}{"criteria": criteria.Key(), "error": err})
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if items == nil {
		items = []models.MenuItem{}
	}

	metrics.ToolInvocations.WithLabelValues(MenuFetcherName, metrics.OutcomeSuccess).Inc()
	f.logger.Debug("menu lookup finished", map[string]interface{}{
		"criteria": criteria.Key(),
		"items":    len(items),
	})

	return &MenuResult{
		Success:    true,
		MenuItems:  items,
		TotalItems: len(items),
	}, nil
}
