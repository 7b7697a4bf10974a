package service

import (
	"context"
	"fmt"
	"sync"

	"livingstories/internal/cache"
	"livingstories/internal/domain"
)

// StoryQuery enumerates the shared aggregate queries several view components
// request at once when a story page opens.
type StoryQuery int

const (
	QueryImportantEvents StoryQuery = iota
	QueryImportantPlayers
	QueryContributors
)

// StoryAggregates de-duplicates the aggregate fetches for one story:
// concurrent requesters of the same query share a single store fetch and its
// cached outcome for the life of this value. There is no expiry; the registry
// discards the whole value when the story's content mutates.
type StoryAggregates struct {
	storyID int64
	items   ItemStore
	loader  *cache.Loader[StoryQuery, []*domain.ContentItem]
}

func NewStoryAggregates(storyID int64, items ItemStore) *StoryAggregates {
	a := &StoryAggregates{storyID: storyID, items: items}
	a.loader = cache.NewLoader(a.fetch)
	return a
}

func (a *StoryAggregates) ImportantEvents(ctx context.Context) ([]*domain.ContentItem, error) {
	return a.loader.Get(ctx, QueryImportantEvents)
}

func (a *StoryAggregates) ImportantPlayers(ctx context.Context) ([]*domain.ContentItem, error) {
	return a.loader.Get(ctx, QueryImportantPlayers)
}

// Contributors resolves the distinct contributor players credited across the
// story's published items.
func (a *StoryAggregates) Contributors(ctx context.Context) ([]*domain.ContentItem, error) {
	return a.loader.Get(ctx, QueryContributors)
}

func (a *StoryAggregates) fetch(ctx context.Context, q StoryQuery) ([]*domain.ContentItem, error) {
	published := domain.StatePublished
	high := domain.ImportanceHigh
	switch q {
	case QueryImportantEvents:
		kind := domain.KindEvent
		return a.items.Search(ctx, domain.SearchQuery{
			StoryID: &a.storyID, Kind: &kind, Importance: &high, State: &published,
		})
	case QueryImportantPlayers:
		kind := domain.KindPlayer
		return a.items.Search(ctx, domain.SearchQuery{
			StoryID: &a.storyID, Kind: &kind, Importance: &high, State: &published,
		})
	case QueryContributors:
		items, err := a.items.GetByStory(ctx, a.storyID, &published)
		if err != nil {
			return nil, err
		}
		seen := make(map[int64]bool)
		var ids []int64
		for _, item := range items {
			for _, id := range item.ContributorIDs {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
		if len(ids) == 0 {
			return nil, nil
		}
		return a.items.GetByIDs(ctx, ids)
	}
	return nil, fmt.Errorf("unknown story query %d", q)
}

// AggregatesRegistry hands out the per-story aggregates cache and drops it
// when the story's content changes.
type AggregatesRegistry struct {
	items ItemStore

	mu      sync.Mutex
	byStory map[int64]*StoryAggregates
}

func NewAggregatesRegistry(items ItemStore) *AggregatesRegistry {
	return &AggregatesRegistry{
		items:   items,
		byStory: make(map[int64]*StoryAggregates),
	}
}

func (r *AggregatesRegistry) For(storyID int64) *StoryAggregates {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byStory[storyID]
	if !ok {
		a = NewStoryAggregates(storyID, r.items)
		r.byStory[storyID] = a
	}
	return a
}

func (r *AggregatesRegistry) Drop(storyID int64) {
	r.mu.Lock()
	delete(r.byStory, storyID)
	r.mu.Unlock()
}
