package service

import (
	"context"
	"fmt"
	"log/slog"

	"livingstories/internal/cache"
	"livingstories/internal/domain"
)

// AvailabilityService computes, per theme, which content and asset kinds a
// story actually contains. Results are cached per story with no expiry; a
// content mutation resets the story's entry via Invalidate.
type AvailabilityService struct {
	items  ItemStore
	themes ThemeStore
	logger *slog.Logger
	loader *cache.Loader[int64, []*domain.ThemeAvailability]
}

func NewAvailabilityService(items ItemStore, themes ThemeStore, logger *slog.Logger) *AvailabilityService {
	s := &AvailabilityService{
		items:  items,
		themes: themes,
		logger: logger.With("component", "availability"),
	}
	s.loader = cache.NewLoader(s.compute)
	return s
}

// ThemeBundles returns the all-coverage entry first, then one entry per
// story theme in store order.
func (s *AvailabilityService) ThemeBundles(ctx context.Context, storyID int64) ([]*domain.ThemeAvailability, error) {
	return s.loader.Get(ctx, storyID)
}

// Invalidate drops the cached bundles for a story after its content changed.
func (s *AvailabilityService) Invalidate(storyID int64) {
	s.loader.Forget(storyID)
}

func (s *AvailabilityService) compute(ctx context.Context, storyID int64) ([]*domain.ThemeAvailability, error) {
	published := domain.StatePublished
	items, err := s.items.GetByStory(ctx, storyID, &published)
	if err != nil {
		return nil, fmt.Errorf("load story items: %w", err)
	}
	themes, err := s.themes.GetByStory(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("load story themes: %w", err)
	}

	all := newAvailability(0, "")
	byTheme := make(map[int64]*domain.ThemeAvailability, len(themes))
	bundles := []*domain.ThemeAvailability{all}
	for _, theme := range themes {
		av := newAvailability(theme.ID, theme.Name)
		byTheme[theme.ID] = av
		bundles = append(bundles, av)
	}

	for _, item := range items {
		// Background and reaction items never appear in the filtered stream,
		// so they contribute no filter options either.
		if item.Kind == domain.KindBackground || item.Kind == domain.KindReaction {
			continue
		}
		record(all, item)
		for _, themeID := range item.ThemeIDs {
			if av, ok := byTheme[themeID]; ok {
				record(av, item)
			}
		}
	}

	s.logger.Debug("computed theme availability", "story_id", storyID, "themes", len(themes), "items", len(items))
	return bundles, nil
}

func newAvailability(themeID int64, name string) *domain.ThemeAvailability {
	return &domain.ThemeAvailability{
		ThemeID:    themeID,
		Name:       name,
		Kinds:      make(map[domain.Kind]bool),
		AssetTypes: make(map[domain.AssetType]bool),
	}
}

func record(av *domain.ThemeAvailability, item *domain.ContentItem) {
	av.Kinds[item.Kind] = true
	if item.Kind == domain.KindAsset && item.Asset != nil {
		av.AssetTypes[item.Asset.Type] = true
	}
	if item.Opinion() {
		av.HasOpinion = true
	}
}
