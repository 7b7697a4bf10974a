package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"livingstories/internal/domain"
)

// RetrievalService assembles filtered, paginated display bundles. It holds no
// state of its own: a bundle is a function of the store contents and the
// request, except for the transient image slideshow grouping.
type RetrievalService struct {
	items        ItemStore
	availability AvailabilityProvider
	logger       *slog.Logger
	pageSize     int
	windowSize   int
}

func NewRetrievalService(items ItemStore, availability AvailabilityProvider, logger *slog.Logger, pageSize, windowSize int) *RetrievalService {
	return &RetrievalService{
		items:        items,
		availability: availability,
		logger:       logger.With("component", "retrieval"),
		pageSize:     pageSize,
		windowSize:   windowSize,
	}
}

// GetDisplayBundle returns one page of the story stream selected by filter.
//
// The cutoff is the sort key to resume at (inclusive); nil starts from the
// beginning of the stream in the filter's direction. A focused item absent
// from the page is fetched and spliced in so deep links always resolve; a
// missing focused item is skipped, never an error.
func (s *RetrievalService) GetDisplayBundle(ctx context.Context, storyID int64, filter domain.FilterSpec, focusedID *int64, cutoff *time.Time) (*domain.DisplayBundle, error) {
	filter, err := s.adjustFilterForTheme(ctx, storyID, filter)
	if err != nil {
		return nil, err
	}

	core, next, err := s.collectCore(ctx, storyID, filter, cutoff)
	if err != nil {
		return nil, fmt.Errorf("collect core items: %w", err)
	}

	if focusedID != nil {
		core = s.spliceFocused(ctx, core, *focusedID, filter.OldestFirst)
	}

	linked, err := s.collectLinked(ctx, core)
	if err != nil {
		return nil, fmt.Errorf("collect linked items: %w", err)
	}

	if err := s.resolvePlayerParents(ctx, append(core[:len(core):len(core)], linked...)); err != nil {
		return nil, fmt.Errorf("resolve player parents: %w", err)
	}

	groupImageAssets(core)

	return &domain.DisplayBundle{
		CoreItems:   core,
		LinkedItems: linked,
		NextDate:    next,
		Filter:      filter,
	}, nil
}

// GetItem fetches one item, optionally with its linked items resolved.
func (s *RetrievalService) GetItem(ctx context.Context, id int64, resolveLinked bool) (*domain.ContentItem, []*domain.ContentItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	var linked []*domain.ContentItem
	if resolveLinked && len(item.LinkedIDs) > 0 {
		linked, err = s.items.GetByIDs(ctx, item.LinkedIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve linked items: %w", err)
		}
	}
	all := append([]*domain.ContentItem{item}, linked...)
	if err := s.resolvePlayerParents(ctx, all); err != nil {
		return nil, nil, fmt.Errorf("resolve player parents: %w", err)
	}
	return item, linked, nil
}

// adjustFilterForTheme clears the kind, asset type and opinion flag when the
// requested combination cannot produce results inside the selected theme,
// keeping the theme and sort direction. The adjusted filter is reported in
// the bundle so callers can resynchronize their own filter state.
func (s *RetrievalService) adjustFilterForTheme(ctx context.Context, storyID int64, filter domain.FilterSpec) (domain.FilterSpec, error) {
	if filter.ThemeID == nil || filter.Kind == nil {
		return filter, nil
	}
	bundles, err := s.availability.ThemeBundles(ctx, storyID)
	if err != nil {
		return filter, fmt.Errorf("theme availability: %w", err)
	}
	for _, b := range bundles {
		if b.ThemeID != *filter.ThemeID {
			continue
		}
		if b.Allows(filter) {
			return filter, nil
		}
		break
	}
	s.logger.Debug("filter not applicable to theme, adjusting",
		"story_id", storyID,
		"filter", filter.ParamString(),
	)
	filter.Kind = nil
	filter.AssetType = nil
	filter.Opinion = false
	return filter, nil
}

// collectCore scans store windows in sort order, applying the matcher until
// the page is full, then keeps scanning for the next matching item to derive
// the continuation cursor. Successive windows resume strictly past the last
// row's (sort key, id), so the scan always advances.
//
// The continuation cursor is a bare date, so a page never splits a run of
// equal sort keys: the run is appended whole even past the page size, and the
// reported NextDate sorts strictly after everything served. Resuming at that
// date inclusively can then neither skip nor repeat a boundary item.
func (s *RetrievalService) collectCore(ctx context.Context, storyID int64, filter domain.FilterSpec, cutoff *time.Time) ([]*domain.ContentItem, *time.Time, error) {
	core := make([]*domain.ContentItem, 0, s.pageSize)
	var cur *domain.WindowCursor
	if cutoff != nil {
		cur = &domain.WindowCursor{Key: *cutoff}
	}

	for {
		window, err := s.items.Window(ctx, storyID, filter.OldestFirst, cur, s.windowSize)
		if err != nil {
			return nil, nil, err
		}

		for _, item := range window {
			if !filter.Matches(item) || !filter.ScopeMatches(item) {
				continue
			}
			if len(core) >= s.pageSize && !item.SortKey().Equal(core[len(core)-1].SortKey()) {
				next := item.SortKey()
				return core, &next, nil
			}
			core = append(core, item)
		}

		if len(window) < s.windowSize {
			return core, nil, nil
		}
		last := window[len(window)-1]
		cur = &domain.WindowCursor{Key: last.SortKey(), AfterID: &last.ID}
	}
}

// spliceFocused guarantees the focused item is visible in the page. A lookup
// failure is reported as a missing item, not a failed page.
func (s *RetrievalService) spliceFocused(ctx context.Context, core []*domain.ContentItem, focusedID int64, oldestFirst bool) []*domain.ContentItem {
	for _, item := range core {
		if item.ID == focusedID {
			return core
		}
	}
	item, err := s.items.GetByID(ctx, focusedID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug("focused item not found", "item_id", focusedID)
		} else {
			s.logger.Warn("focused item lookup failed", "item_id", focusedID, "error", err)
		}
		return core
	}
	core = append(core, item)
	domain.SortItems(core, oldestFirst)
	return core
}

// collectLinked resolves the one-level closure of the core items' link
// references, deduplicated and excluding the core items themselves. Dangling
// references are skipped.
func (s *RetrievalService) collectLinked(ctx context.Context, core []*domain.ContentItem) ([]*domain.ContentItem, error) {
	coreIDs := make(map[int64]bool, len(core))
	for _, item := range core {
		coreIDs[item.ID] = true
	}
	want := make(map[int64]bool)
	var ids []int64
	for _, item := range core {
		for _, id := range item.LinkedIDs {
			if coreIDs[id] || want[id] {
				continue
			}
			want[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.items.GetByIDs(ctx, ids)
}

// resolvePlayerParents fills the delegated identity fields of story players
// from their parent player items.
func (s *RetrievalService) resolvePlayerParents(ctx context.Context, items []*domain.ContentItem) error {
	var parentIDs []int64
	seen := make(map[int64]bool)
	for _, item := range items {
		if item.Kind == domain.KindPlayer && item.Player != nil && item.Player.ParentID != nil && !seen[*item.Player.ParentID] {
			seen[*item.Player.ParentID] = true
			parentIDs = append(parentIDs, *item.Player.ParentID)
		}
	}
	if len(parentIDs) == 0 {
		return nil
	}
	parents, err := s.items.GetByIDs(ctx, parentIDs)
	if err != nil {
		return err
	}
	byID := make(map[int64]*domain.ContentItem, len(parents))
	for _, p := range parents {
		byID[p.ID] = p
	}
	for _, item := range items {
		if item.Kind != domain.KindPlayer || item.Player == nil || item.Player.ParentID == nil {
			continue
		}
		parent, ok := byID[*item.Player.ParentID]
		if !ok || parent.Player == nil {
			s.logger.Warn("story player parent missing", "item_id", item.ID, "parent_id", *item.Player.ParentID)
			continue
		}
		item.Player.Inherit(parent.Player)
	}
	return nil
}

// groupImageAssets populates the slideshow group on every image asset in the
// page when there are at least two. Group entries are shallow copies without
// their own group, so a bundle never references itself cyclically.
func groupImageAssets(core []*domain.ContentItem) {
	var images []*domain.ContentItem
	for _, item := range core {
		if item.Kind == domain.KindAsset && item.Asset != nil &&
			item.Asset.Type == domain.AssetImage && item.Content != "" {
			images = append(images, item)
		}
	}
	if len(images) < 2 {
		return
	}
	for _, img := range images {
		group := make([]*domain.ContentItem, len(images))
		for i, sibling := range images {
			flat := *sibling
			details := *sibling.Asset
			details.Related = nil
			flat.Asset = &details
			group[i] = &flat
		}
		img.Asset.Related = group
	}
}

// GetLinkingTo returns the published items whose link references include id.
func (s *RetrievalService) GetLinkingTo(ctx context.Context, id int64) ([]*domain.ContentItem, error) {
	items, err := s.items.GetLinkingTo(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolvePlayerParents(ctx, items); err != nil {
		return nil, fmt.Errorf("resolve player parents: %w", err)
	}
	return items, nil
}

// GetContributedBy returns the published items crediting the given player as
// a contributor.
func (s *RetrievalService) GetContributedBy(ctx context.Context, playerID int64) ([]*domain.ContentItem, error) {
	return s.items.GetContributedBy(ctx, playerID)
}
