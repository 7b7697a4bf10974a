package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"livingstories/internal/domain"
)

// ItemStore persists content items as single wide records. Mutations run
// against the transaction bound to the context when one is present, so the
// delete cascade stays atomic.
type ItemStore struct {
	db *sqlx.DB
}

func NewItemStore(db *sqlx.DB) *ItemStore {
	return &ItemStore{db: db}
}

// Save inserts the item when it has no id, otherwise fully replaces the
// stored record. The persisted sort_key column is recomputed on every save so
// ordering and cursoring happen in SQL.
func (s *ItemStore) Save(ctx context.Context, item *domain.ContentItem) (*domain.ContentItem, error) {
	now := time.Now().UTC()
	item.UpdatedAt = now
	exec := GetExecutor(ctx, s.db)

	if item.ID == 0 {
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		rec := newItemRecord(item)
		query := `
			INSERT INTO content_items (
				kind, importance, story_id, state, content,
				contributor_ids, linked_ids, theme_ids,
				lat, lng, location_desc, source_desc, source_item_id,
				sort_key, created_at, updated_at,
				event_start, event_end, event_update, event_summary,
				player_name, player_aliases, player_type, photo_asset_id, parent_player_id,
				headline, narrative_type, standalone, narrative_date, narrative_summary,
				asset_type, caption, preview_url, concept_name
			) VALUES (
				:kind, :importance, :story_id, :state, :content,
				:contributor_ids, :linked_ids, :theme_ids,
				:lat, :lng, :location_desc, :source_desc, :source_item_id,
				:sort_key, :created_at, :updated_at,
				:event_start, :event_end, :event_update, :event_summary,
				:player_name, :player_aliases, :player_type, :photo_asset_id, :parent_player_id,
				:headline, :narrative_type, :standalone, :narrative_date, :narrative_summary,
				:asset_type, :caption, :preview_url, :concept_name
			)
			RETURNING id`

		rows, err := sqlx.NamedQueryContext(ctx, exec, query, rec)
		if err != nil {
			return nil, fmt.Errorf("insert content item: %w", err)
		}
		defer rows.Close()
		if !rows.Next() {
			return nil, fmt.Errorf("insert content item: no id returned")
		}
		if err := rows.Scan(&item.ID); err != nil {
			return nil, fmt.Errorf("insert content item: %w", err)
		}
		return item, rows.Err()
	}

	// The creation time is immutable and feeds the sort key of dateless
	// items, so a replacement payload never overrides the stored value.
	var created time.Time
	err := sqlx.GetContext(ctx, exec, &created, "SELECT created_at FROM content_items WHERE id = $1", item.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update content item %d: %w", item.ID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update content item: %w", err)
	}
	item.CreatedAt = created
	rec := newItemRecord(item)

	query := `
		UPDATE content_items SET
			kind = :kind, importance = :importance, story_id = :story_id,
			state = :state, content = :content,
			contributor_ids = :contributor_ids, linked_ids = :linked_ids,
			theme_ids = :theme_ids,
			lat = :lat, lng = :lng, location_desc = :location_desc,
			source_desc = :source_desc, source_item_id = :source_item_id,
			sort_key = :sort_key, updated_at = :updated_at,
			event_start = :event_start, event_end = :event_end,
			event_update = :event_update, event_summary = :event_summary,
			player_name = :player_name, player_aliases = :player_aliases,
			player_type = :player_type, photo_asset_id = :photo_asset_id,
			parent_player_id = :parent_player_id,
			headline = :headline, narrative_type = :narrative_type,
			standalone = :standalone, narrative_date = :narrative_date,
			narrative_summary = :narrative_summary,
			asset_type = :asset_type, caption = :caption,
			preview_url = :preview_url, concept_name = :concept_name
		WHERE id = :id`

	res, err := sqlx.NamedExecContext(ctx, exec, query, rec)
	if err != nil {
		return nil, fmt.Errorf("update content item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("update content item %d: %w", item.ID, domain.ErrNotFound)
	}
	return item, nil
}

// Delete removes the item and scrubs its id from every other item's linked-id
// set; when the deleted item is a player, contributor references are scrubbed
// too. Run inside a transaction the whole cleanup is atomic.
func (s *ItemStore) Delete(ctx context.Context, id int64) error {
	exec := GetExecutor(ctx, s.db)

	var kind string
	err := sqlx.GetContext(ctx, exec, &kind, "SELECT kind FROM content_items WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete content item %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}

	if _, err := exec.ExecContext(ctx, "DELETE FROM content_items WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}

	_, err = exec.ExecContext(ctx, `
		UPDATE content_items
		SET linked_ids = array_remove(linked_ids, $1)
		WHERE $1 = ANY(linked_ids)`, id)
	if err != nil {
		return fmt.Errorf("scrub linked ids: %w", err)
	}

	if domain.Kind(kind) == domain.KindPlayer {
		_, err = exec.ExecContext(ctx, `
			UPDATE content_items
			SET contributor_ids = array_remove(contributor_ids, $1)
			WHERE $1 = ANY(contributor_ids)`, id)
		if err != nil {
			return fmt.Errorf("scrub contributor ids: %w", err)
		}
	}
	return nil
}

func (s *ItemStore) DeleteAllForStory(ctx context.Context, storyID int64) error {
	exec := GetExecutor(ctx, s.db)
	_, err := exec.ExecContext(ctx, "DELETE FROM content_items WHERE story_id = $1", storyID)
	if err != nil {
		return fmt.Errorf("delete story items: %w", err)
	}
	return nil
}

func (s *ItemStore) RemoveThemeFromAllItems(ctx context.Context, themeID int64) error {
	exec := GetExecutor(ctx, s.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE content_items
		SET theme_ids = array_remove(theme_ids, $1)
		WHERE $1 = ANY(theme_ids)`, themeID)
	if err != nil {
		return fmt.Errorf("remove theme from items: %w", err)
	}
	return nil
}

func (s *ItemStore) GetByID(ctx context.Context, id int64) (*domain.ContentItem, error) {
	var rec itemRecord
	query := "SELECT " + itemColumns + " FROM content_items WHERE id = $1"
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &rec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content item %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get content item: %w", err)
	}
	return rec.toDomain(), nil
}

// GetByIDs returns the items that exist among ids; missing ids are skipped.
func (s *ItemStore) GetByIDs(ctx context.Context, ids []int64) ([]*domain.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []itemRecord
	query := "SELECT " + itemColumns + ` FROM content_items
		WHERE id = ANY($1) ORDER BY sort_key DESC, id DESC`
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &records, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get content items: %w", err)
	}
	return toDomainItems(records), nil
}

// GetByStory returns the story's items newest first; state narrows the result
// when non-nil.
func (s *ItemStore) GetByStory(ctx context.Context, storyID int64, state *domain.PublishState) ([]*domain.ContentItem, error) {
	builder := sq.Select(itemColumns).From("content_items").
		PlaceholderFormat(sq.Dollar).
		Where(sq.Eq{"story_id": storyID}).
		OrderBy("sort_key DESC", "id DESC")
	if state != nil {
		builder = builder.Where(sq.Eq{"state": string(*state)})
	}
	return s.selectItems(ctx, builder)
}

// GetLinkingTo returns published items whose linked-id set contains id.
func (s *ItemStore) GetLinkingTo(ctx context.Context, id int64) ([]*domain.ContentItem, error) {
	var records []itemRecord
	query := "SELECT " + itemColumns + ` FROM content_items
		WHERE $1 = ANY(linked_ids) AND state = $2
		ORDER BY sort_key DESC, id DESC`
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &records, query, id, string(domain.StatePublished))
	if err != nil {
		return nil, fmt.Errorf("get linking items: %w", err)
	}
	return toDomainItems(records), nil
}

// GetContributedBy returns published items crediting the player as contributor.
func (s *ItemStore) GetContributedBy(ctx context.Context, playerID int64) ([]*domain.ContentItem, error) {
	var records []itemRecord
	query := "SELECT " + itemColumns + ` FROM content_items
		WHERE $1 = ANY(contributor_ids) AND state = $2
		ORDER BY sort_key DESC, id DESC`
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &records, query, playerID, string(domain.StatePublished))
	if err != nil {
		return nil, fmt.Errorf("get contributed items: %w", err)
	}
	return toDomainItems(records), nil
}

// Window returns up to limit published story items ordered by (sort_key, id)
// in the requested direction. A cursor without an id starts at the key
// inclusively; a cursor with an id resumes strictly past that (sort_key, id)
// row, so consecutive windows never overlap even inside a run of rows sharing
// one sort key. The row comparison matches the ORDER BY exactly.
func (s *ItemStore) Window(ctx context.Context, storyID int64, oldestFirst bool, cur *domain.WindowCursor, limit int) ([]*domain.ContentItem, error) {
	builder := sq.Select(itemColumns).From("content_items").
		PlaceholderFormat(sq.Dollar).
		Where(sq.Eq{"story_id": storyID}).
		Where(sq.Eq{"state": string(domain.StatePublished)}).
		Limit(uint64(limit))
	if oldestFirst {
		builder = builder.OrderBy("sort_key ASC", "id ASC")
		switch {
		case cur == nil:
		case cur.AfterID != nil:
			builder = builder.Where(sq.Expr("(sort_key, id) > (?, ?)", cur.Key, *cur.AfterID))
		default:
			builder = builder.Where(sq.GtOrEq{"sort_key": cur.Key})
		}
	} else {
		builder = builder.OrderBy("sort_key DESC", "id DESC")
		switch {
		case cur == nil:
		case cur.AfterID != nil:
			builder = builder.Where(sq.Expr("(sort_key, id) < (?, ?)", cur.Key, *cur.AfterID))
		default:
			builder = builder.Where(sq.LtOrEq{"sort_key": cur.Key})
		}
	}
	return s.selectItems(ctx, builder)
}

// Search returns matching items newest first.
func (s *ItemStore) Search(ctx context.Context, q domain.SearchQuery) ([]*domain.ContentItem, error) {
	builder := sq.Select(itemColumns).From("content_items").
		PlaceholderFormat(sq.Dollar).
		OrderBy("sort_key DESC", "id DESC")
	if q.StoryID != nil {
		builder = builder.Where(sq.Eq{"story_id": *q.StoryID})
	}
	if q.Kind != nil {
		builder = builder.Where(sq.Eq{"kind": string(*q.Kind)})
	}
	if q.After != nil {
		builder = builder.Where(sq.GtOrEq{"sort_key": *q.After})
	}
	if q.Before != nil {
		builder = builder.Where(sq.Lt{"sort_key": *q.Before})
	}
	if q.Importance != nil {
		builder = builder.Where(sq.Eq{"importance": string(*q.Importance)})
	}
	if q.State != nil {
		builder = builder.Where(sq.Eq{"state": string(*q.State)})
	}
	return s.selectItems(ctx, builder)
}

// CountUpdatedSince counts published story items of one kind updated after
// the given time.
func (s *ItemStore) CountUpdatedSince(ctx context.Context, storyID int64, kind domain.Kind, after time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM content_items
		WHERE story_id = $1 AND kind = $2 AND state = $3 AND updated_at > $4`
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count, query,
		storyID, string(kind), string(domain.StatePublished), after)
	if err != nil {
		return 0, fmt.Errorf("count updated items: %w", err)
	}
	return count, nil
}

func (s *ItemStore) selectItems(ctx context.Context, builder sq.SelectBuilder) ([]*domain.ContentItem, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var records []itemRecord
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &records, query, args...); err != nil {
		return nil, fmt.Errorf("select content items: %w", err)
	}
	return toDomainItems(records), nil
}
