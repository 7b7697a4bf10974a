package service

import (
	"context"
	"fmt"
	"log/slog"

	"livingstories/internal/domain"
)

// Change-event actions reported to the publisher.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ContentService owns every mutation: it validates, runs the multi-record
// cascades transactionally, resets the per-story caches and emits change
// events. The publisher is optional; a nil publisher just skips events.
type ContentService struct {
	items        ItemStore
	stories      StoryStore
	themes       ThemeStore
	txManager    TransactionManager
	publisher    Publisher
	availability *AvailabilityService
	aggregates   *AggregatesRegistry
	logger       *slog.Logger
}

func NewContentService(
	items ItemStore,
	stories StoryStore,
	themes ThemeStore,
	txManager TransactionManager,
	publisher Publisher,
	availability *AvailabilityService,
	aggregates *AggregatesRegistry,
	logger *slog.Logger,
) *ContentService {
	return &ContentService{
		items:        items,
		stories:      stories,
		themes:       themes,
		txManager:    txManager,
		publisher:    publisher,
		availability: availability,
		aggregates:   aggregates,
		logger:       logger.With("component", "content"),
	}
}

// SaveItem validates and saves an item with full-replace semantics.
func (s *ContentService) SaveItem(ctx context.Context, item *domain.ContentItem) (*domain.ContentItem, error) {
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("validate content item: %w", err)
	}
	isNew := item.ID == 0

	saved, err := s.items.Save(ctx, item)
	if err != nil {
		return nil, err
	}

	s.invalidateStory(saved.StoryID)
	action := ActionUpdate
	if isNew {
		action = ActionCreate
	}
	s.publishItemChange(ctx, saved, action)

	s.logger.Info("saved content item", "item_id", saved.ID, "kind", saved.Kind, "action", action)
	return saved, nil
}

// DeleteItem removes an item and scrubs every reference to it from other
// items in one transaction. Deleting an already-deleted item reports
// domain.ErrNotFound.
func (s *ContentService) DeleteItem(ctx context.Context, id int64) error {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.items.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.invalidateStory(item.StoryID)
	s.publishItemChange(ctx, item, ActionDelete)

	s.logger.Info("deleted content item", "item_id", id, "kind", item.Kind)
	return nil
}

func (s *ContentService) SaveStory(ctx context.Context, story *domain.Story) (*domain.Story, error) {
	if err := story.Validate(); err != nil {
		return nil, fmt.Errorf("validate story: %w", err)
	}
	return s.stories.Save(ctx, story)
}

// DeleteStory removes the story with all of its items and themes.
func (s *ContentService) DeleteStory(ctx context.Context, id int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.items.DeleteAllForStory(txCtx, id); err != nil {
			return err
		}
		return s.stories.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}
	s.invalidateStory(&id)
	s.logger.Info("deleted story", "story_id", id)
	return nil
}

func (s *ContentService) SaveTheme(ctx context.Context, theme *domain.Theme) (*domain.Theme, error) {
	if err := theme.Validate(); err != nil {
		return nil, fmt.Errorf("validate theme: %w", err)
	}
	saved, err := s.themes.Save(ctx, theme)
	if err != nil {
		return nil, err
	}
	s.invalidateStory(&saved.StoryID)
	return saved, nil
}

// DeleteTheme removes the theme and scrubs it from every item's theme set in
// one transaction.
func (s *ContentService) DeleteTheme(ctx context.Context, id int64) error {
	theme, err := s.themes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.items.RemoveThemeFromAllItems(txCtx, id); err != nil {
			return err
		}
		return s.themes.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}
	s.invalidateStory(&theme.StoryID)
	s.logger.Info("deleted theme", "theme_id", id, "story_id", theme.StoryID)
	return nil
}

func (s *ContentService) invalidateStory(storyID *int64) {
	if storyID == nil {
		return
	}
	if s.availability != nil {
		s.availability.Invalidate(*storyID)
	}
	if s.aggregates != nil {
		s.aggregates.Drop(*storyID)
	}
}

func (s *ContentService) publishItemChange(ctx context.Context, item *domain.ContentItem, action string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishItemChange(ctx, item, action); err != nil {
		s.logger.Error("publish item change failed", "item_id", item.ID, "action", action, "error", err)
	}
}
