package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"livingstories/internal/domain"
)

// UpdateMonitor periodically reports how many new events each published
// story gained, so downstream consumers (feed builders, alerting) learn a
// story moved without polling the store themselves.
type UpdateMonitor struct {
	items     ItemStore
	stories   StoryStore
	publisher Publisher
	logger    *slog.Logger
	lastCheck map[int64]time.Time
	started   time.Time
}

func NewUpdateMonitor(items ItemStore, stories StoryStore, publisher Publisher, logger *slog.Logger) *UpdateMonitor {
	return &UpdateMonitor{
		items:     items,
		stories:   stories,
		publisher: publisher,
		logger:    logger.With("component", "updates"),
		lastCheck: make(map[int64]time.Time),
		started:   time.Now().UTC(),
	}
}

// Check runs one monitoring pass. Failures for individual stories are logged
// and skipped; the pass itself only fails when the story list is unavailable.
func (m *UpdateMonitor) Check(ctx context.Context) error {
	stories, err := m.stories.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("list stories: %w", err)
	}

	now := time.Now().UTC()
	for _, story := range stories {
		if story.State != domain.StatePublished {
			continue
		}
		since, ok := m.lastCheck[story.ID]
		if !ok {
			since = m.started
		}
		count, err := m.items.CountUpdatedSince(ctx, story.ID, domain.KindEvent, since)
		if err != nil {
			m.logger.Error("count updates failed", "story_id", story.ID, "error", err)
			continue
		}
		m.lastCheck[story.ID] = now
		if count == 0 {
			continue
		}
		m.logger.Info("story updated", "story_id", story.ID, "new_events", count)
		if m.publisher != nil {
			if err := m.publisher.PublishStoryUpdate(ctx, story.ID, count); err != nil {
				m.logger.Error("publish story update failed", "story_id", story.ID, "error", err)
			}
		}
	}
	return nil
}
