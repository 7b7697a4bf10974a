package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"livingstories/internal/domain"
)

type themeRecord struct {
	ID      int64  `db:"id"`
	StoryID int64  `db:"story_id"`
	Name    string `db:"name"`
}

type ThemeStore struct {
	db *sqlx.DB
}

func NewThemeStore(db *sqlx.DB) *ThemeStore {
	return &ThemeStore{db: db}
}

func (s *ThemeStore) Save(ctx context.Context, theme *domain.Theme) (*domain.Theme, error) {
	exec := GetExecutor(ctx, s.db)
	if theme.ID == 0 {
		query := "INSERT INTO themes (story_id, name) VALUES ($1, $2) RETURNING id"
		err := sqlx.GetContext(ctx, exec, &theme.ID, query, theme.StoryID, theme.Name)
		if err != nil {
			return nil, fmt.Errorf("insert theme: %w", err)
		}
		return theme, nil
	}

	res, err := exec.ExecContext(ctx,
		"UPDATE themes SET story_id = $1, name = $2 WHERE id = $3",
		theme.StoryID, theme.Name, theme.ID)
	if err != nil {
		return nil, fmt.Errorf("update theme: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("update theme %d: %w", theme.ID, domain.ErrNotFound)
	}
	return theme, nil
}

func (s *ThemeStore) GetByID(ctx context.Context, id int64) (*domain.Theme, error) {
	var rec themeRecord
	query := "SELECT id, story_id, name FROM themes WHERE id = $1"
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &rec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("theme %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get theme: %w", err)
	}
	return &domain.Theme{ID: rec.ID, StoryID: rec.StoryID, Name: rec.Name}, nil
}

func (s *ThemeStore) GetByStory(ctx context.Context, storyID int64) ([]*domain.Theme, error) {
	var records []themeRecord
	query := "SELECT id, story_id, name FROM themes WHERE story_id = $1 ORDER BY name"
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &records, query, storyID); err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	themes := make([]*domain.Theme, len(records))
	for i, rec := range records {
		themes[i] = &domain.Theme{ID: rec.ID, StoryID: rec.StoryID, Name: rec.Name}
	}
	return themes, nil
}

func (s *ThemeStore) Delete(ctx context.Context, id int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, "DELETE FROM themes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete theme: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("delete theme %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
