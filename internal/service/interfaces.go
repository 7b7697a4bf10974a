package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"livingstories/internal/domain"
)

// ItemStore is the content store contract the services run against.
type ItemStore interface {
	Save(ctx context.Context, item *domain.ContentItem) (*domain.ContentItem, error)
	Delete(ctx context.Context, id int64) error
	DeleteAllForStory(ctx context.Context, storyID int64) error
	RemoveThemeFromAllItems(ctx context.Context, themeID int64) error
	GetByID(ctx context.Context, id int64) (*domain.ContentItem, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.ContentItem, error)
	GetByStory(ctx context.Context, storyID int64, state *domain.PublishState) ([]*domain.ContentItem, error)
	GetLinkingTo(ctx context.Context, id int64) ([]*domain.ContentItem, error)
	GetContributedBy(ctx context.Context, playerID int64) ([]*domain.ContentItem, error)
	Window(ctx context.Context, storyID int64, oldestFirst bool, cur *domain.WindowCursor, limit int) ([]*domain.ContentItem, error)
	Search(ctx context.Context, q domain.SearchQuery) ([]*domain.ContentItem, error)
	CountUpdatedSince(ctx context.Context, storyID int64, kind domain.Kind, after time.Time) (int, error)
}

type StoryStore interface {
	Save(ctx context.Context, story *domain.Story) (*domain.Story, error)
	GetByID(ctx context.Context, id int64) (*domain.Story, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Story, error)
	GetAll(ctx context.Context) ([]*domain.Story, error)
	Delete(ctx context.Context, id int64) error
}

type ThemeStore interface {
	Save(ctx context.Context, theme *domain.Theme) (*domain.Theme, error)
	GetByID(ctx context.Context, id int64) (*domain.Theme, error)
	GetByStory(ctx context.Context, storyID int64) ([]*domain.Theme, error)
	Delete(ctx context.Context, id int64) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AvailabilityProvider reports which filter options are legal per theme.
type AvailabilityProvider interface {
	ThemeBundles(ctx context.Context, storyID int64) ([]*domain.ThemeAvailability, error)
}

type Publisher interface {
	PublishItemChange(ctx context.Context, item *domain.ContentItem, action string) error
	PublishStoryUpdate(ctx context.Context, storyID int64, newEvents int) error
	Close() error
}
