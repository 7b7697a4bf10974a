package domain

import (
	"time"
)

// Story is the top-level container content items and themes belong to.
type Story struct {
	ID        int64        `json:"id"`
	Slug      string       `json:"slug"`
	Title     string       `json:"title"`
	Summary   string       `json:"summary,omitempty"`
	State     PublishState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (s *Story) Validate() error {
	if s.Slug == "" {
		return invalidf("story slug is required")
	}
	if s.Title == "" {
		return invalidf("story title is required")
	}
	if !s.State.Valid() {
		return invalidf("unknown publish state %q", s.State)
	}
	return nil
}

// Theme is a sub-grouping of content within one story.
type Theme struct {
	ID      int64  `json:"id"`
	StoryID int64  `json:"story_id"`
	Name    string `json:"name"`
}

func (t *Theme) Validate() error {
	if t.StoryID == 0 {
		return invalidf("theme story id is required")
	}
	if t.Name == "" {
		return invalidf("theme name is required")
	}
	return nil
}
