package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"livingstories/internal/domain"
)

type storyRecord struct {
	ID        int64     `db:"id"`
	Slug      string    `db:"slug"`
	Title     string    `db:"title"`
	Summary   string    `db:"summary"`
	State     string    `db:"state"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *storyRecord) toDomain() *domain.Story {
	return &domain.Story{
		ID:        r.ID,
		Slug:      r.Slug,
		Title:     r.Title,
		Summary:   r.Summary,
		State:     domain.PublishState(r.State),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type StoryStore struct {
	db *sqlx.DB
}

func NewStoryStore(db *sqlx.DB) *StoryStore {
	return &StoryStore{db: db}
}

func (s *StoryStore) Save(ctx context.Context, story *domain.Story) (*domain.Story, error) {
	exec := GetExecutor(ctx, s.db)
	now := time.Now().UTC()
	story.UpdatedAt = now

	if story.ID == 0 {
		story.CreatedAt = now
		query := `
			INSERT INTO stories (slug, title, summary, state, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`
		err := sqlx.GetContext(ctx, exec, &story.ID, query,
			story.Slug, story.Title, story.Summary, string(story.State),
			story.CreatedAt, story.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert story: %w", err)
		}
		return story, nil
	}

	query := `
		UPDATE stories
		SET slug = $1, title = $2, summary = $3, state = $4, updated_at = $5
		WHERE id = $6`
	res, err := exec.ExecContext(ctx, query,
		story.Slug, story.Title, story.Summary, string(story.State),
		story.UpdatedAt, story.ID)
	if err != nil {
		return nil, fmt.Errorf("update story: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("update story %d: %w", story.ID, domain.ErrNotFound)
	}
	return story, nil
}

func (s *StoryStore) GetByID(ctx context.Context, id int64) (*domain.Story, error) {
	var rec storyRecord
	query := "SELECT id, slug, title, summary, state, created_at, updated_at FROM stories WHERE id = $1"
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &rec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("story %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	return rec.toDomain(), nil
}

func (s *StoryStore) GetBySlug(ctx context.Context, slug string) (*domain.Story, error) {
	var rec storyRecord
	query := "SELECT id, slug, title, summary, state, created_at, updated_at FROM stories WHERE slug = $1"
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &rec, query, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("story %q: %w", slug, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	return rec.toDomain(), nil
}

func (s *StoryStore) GetAll(ctx context.Context) ([]*domain.Story, error) {
	var records []storyRecord
	query := "SELECT id, slug, title, summary, state, created_at, updated_at FROM stories ORDER BY id"
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &records, query); err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	stories := make([]*domain.Story, len(records))
	for i := range records {
		stories[i] = records[i].toDomain()
	}
	return stories, nil
}

func (s *StoryStore) Delete(ctx context.Context, id int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, "DELETE FROM stories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("delete story %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
