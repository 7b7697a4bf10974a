package postgres

import (
	"time"

	"github.com/lib/pq"

	"livingstories/internal/domain"
)

// itemRecord is the single wide row every content item variant maps onto.
// Variant-specific columns are nullable and only populated for their kind.
type itemRecord struct {
	ID             int64          `db:"id"`
	Kind           string         `db:"kind"`
	Importance     string         `db:"importance"`
	StoryID        *int64         `db:"story_id"`
	State          string         `db:"state"`
	Content        string         `db:"content"`
	ContributorIDs pq.Int64Array  `db:"contributor_ids"`
	LinkedIDs      pq.Int64Array  `db:"linked_ids"`
	ThemeIDs       pq.Int64Array  `db:"theme_ids"`
	Lat            *float64       `db:"lat"`
	Lng            *float64       `db:"lng"`
	LocationDesc   string         `db:"location_desc"`
	SourceDesc     string         `db:"source_desc"`
	SourceItemID   *int64         `db:"source_item_id"`
	SortKey        time.Time      `db:"sort_key"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`

	EventStart   *time.Time `db:"event_start"`
	EventEnd     *time.Time `db:"event_end"`
	EventUpdate  *string    `db:"event_update"`
	EventSummary *string    `db:"event_summary"`

	PlayerName     *string        `db:"player_name"`
	PlayerAliases  pq.StringArray `db:"player_aliases"`
	PlayerType     *string        `db:"player_type"`
	PhotoAssetID   *int64         `db:"photo_asset_id"`
	ParentPlayerID *int64         `db:"parent_player_id"`

	Headline         *string    `db:"headline"`
	NarrativeType    *string    `db:"narrative_type"`
	Standalone       *bool      `db:"standalone"`
	NarrativeDate    *time.Time `db:"narrative_date"`
	NarrativeSummary *string    `db:"narrative_summary"`

	AssetType  *string `db:"asset_type"`
	Caption    *string `db:"caption"`
	PreviewURL *string `db:"preview_url"`

	ConceptName *string `db:"concept_name"`
}

const itemColumns = `id, kind, importance, story_id, state, content,
	contributor_ids, linked_ids, theme_ids,
	lat, lng, location_desc, source_desc, source_item_id,
	sort_key, created_at, updated_at,
	event_start, event_end, event_update, event_summary,
	player_name, player_aliases, player_type, photo_asset_id, parent_player_id,
	headline, narrative_type, standalone, narrative_date, narrative_summary,
	asset_type, caption, preview_url, concept_name`

func newItemRecord(item *domain.ContentItem) *itemRecord {
	r := &itemRecord{
		ID:             item.ID,
		Kind:           string(item.Kind),
		Importance:     string(item.Importance),
		StoryID:        item.StoryID,
		State:          string(item.State),
		Content:        item.Content,
		ContributorIDs: pq.Int64Array(item.ContributorIDs),
		LinkedIDs:      pq.Int64Array(item.LinkedIDs),
		ThemeIDs:       pq.Int64Array(item.ThemeIDs),
		SourceDesc:     item.SourceDesc,
		SourceItemID:   item.SourceItemID,
		SortKey:        item.SortKey(),
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
	if r.ContributorIDs == nil {
		r.ContributorIDs = pq.Int64Array{}
	}
	if r.LinkedIDs == nil {
		r.LinkedIDs = pq.Int64Array{}
	}
	if r.ThemeIDs == nil {
		r.ThemeIDs = pq.Int64Array{}
	}
	if loc := item.Location; loc != nil {
		r.Lat = loc.Lat
		r.Lng = loc.Lng
		r.LocationDesc = loc.Description
	}
	if ev := item.Event; ev != nil {
		r.EventStart = ev.StartDate
		r.EventEnd = ev.EndDate
		r.EventUpdate = &ev.Update
		r.EventSummary = &ev.Summary
	}
	if p := item.Player; p != nil {
		r.PlayerName = &p.Name
		r.PlayerAliases = pq.StringArray(p.Aliases)
		typ := string(p.Type)
		r.PlayerType = &typ
		r.PhotoAssetID = p.PhotoID
		r.ParentPlayerID = p.ParentID
	}
	if n := item.Narrative; n != nil {
		r.Headline = &n.Headline
		typ := string(n.Type)
		r.NarrativeType = &typ
		r.Standalone = &n.Standalone
		r.NarrativeDate = n.Date
		r.NarrativeSummary = &n.Summary
	}
	if a := item.Asset; a != nil {
		typ := string(a.Type)
		r.AssetType = &typ
		r.Caption = &a.Caption
		r.PreviewURL = &a.PreviewURL
	}
	if b := item.Background; b != nil {
		r.ConceptName = &b.ConceptName
	}
	return r
}

func (r *itemRecord) toDomain() *domain.ContentItem {
	item := &domain.ContentItem{
		ID:             r.ID,
		Kind:           domain.Kind(r.Kind),
		Importance:     domain.Importance(r.Importance),
		StoryID:        r.StoryID,
		State:          domain.PublishState(r.State),
		Content:        r.Content,
		ContributorIDs: []int64(r.ContributorIDs),
		LinkedIDs:      []int64(r.LinkedIDs),
		ThemeIDs:       []int64(r.ThemeIDs),
		SourceDesc:     r.SourceDesc,
		SourceItemID:   r.SourceItemID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Lat != nil || r.Lng != nil || r.LocationDesc != "" {
		item.Location = &domain.Location{
			Lat:         r.Lat,
			Lng:         r.Lng,
			Description: r.LocationDesc,
		}
	}
	switch item.Kind {
	case domain.KindEvent:
		item.Event = &domain.EventDetails{
			StartDate: r.EventStart,
			EndDate:   r.EventEnd,
			Update:    deref(r.EventUpdate),
			Summary:   deref(r.EventSummary),
		}
	case domain.KindPlayer:
		item.Player = &domain.PlayerDetails{
			Name:     deref(r.PlayerName),
			Aliases:  []string(r.PlayerAliases),
			Type:     domain.PlayerType(deref(r.PlayerType)),
			PhotoID:  r.PhotoAssetID,
			ParentID: r.ParentPlayerID,
		}
	case domain.KindNarrative:
		item.Narrative = &domain.NarrativeDetails{
			Headline:   deref(r.Headline),
			Type:       domain.NarrativeType(deref(r.NarrativeType)),
			Standalone: r.Standalone != nil && *r.Standalone,
			Date:       r.NarrativeDate,
			Summary:    deref(r.NarrativeSummary),
		}
	case domain.KindAsset:
		item.Asset = &domain.AssetDetails{
			Type:       domain.AssetType(deref(r.AssetType)),
			Caption:    deref(r.Caption),
			PreviewURL: deref(r.PreviewURL),
		}
	case domain.KindBackground:
		item.Background = &domain.BackgroundDetails{
			ConceptName: deref(r.ConceptName),
		}
	}
	return item
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toDomainItems(records []itemRecord) []*domain.ContentItem {
	items := make([]*domain.ContentItem, len(records))
	for i := range records {
		items[i] = records[i].toDomain()
	}
	return items
}
