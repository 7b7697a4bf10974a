package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livingstories/testdata/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSortKey_Event(t *testing.T) {
	created := date(2026, 1, 1)
	start := date(2026, 2, 1)
	end := date(2026, 3, 1)

	item := &ContentItem{Kind: KindEvent, CreatedAt: created, Event: &EventDetails{}}
	assert.Equal(t, created, item.SortKey(), "event without dates falls back to creation time")

	item.Event.StartDate = &start
	assert.Equal(t, start, item.SortKey(), "start date beats creation time")

	item.Event.EndDate = &end
	assert.Equal(t, end, item.SortKey(), "end date beats start date")
}

func TestSortKey_Narrative(t *testing.T) {
	created := date(2026, 1, 1)
	published := date(2026, 4, 1)

	item := &ContentItem{
		Kind:      KindNarrative,
		CreatedAt: created,
		Narrative: &NarrativeDetails{Type: NarrativeFeature},
	}
	assert.Equal(t, created, item.SortKey())

	item.Narrative.Date = &published
	assert.Equal(t, published, item.SortKey())
}

func TestSortKey_OtherKinds(t *testing.T) {
	created := date(2026, 1, 1)
	for _, kind := range []Kind{KindPlayer, KindAsset, KindBackground, KindData, KindQuote, KindReaction} {
		item := &ContentItem{Kind: kind, CreatedAt: created}
		assert.Equal(t, created, item.SortKey(), "kind %s", kind)
	}
}

func TestTopLevelEligible(t *testing.T) {
	assert.True(t, (&ContentItem{Kind: KindEvent}).TopLevelEligible())
	assert.True(t, (&ContentItem{
		Kind:      KindNarrative,
		Narrative: &NarrativeDetails{Type: NarrativeFeature, Standalone: true},
	}).TopLevelEligible())
	assert.False(t, (&ContentItem{
		Kind:      KindNarrative,
		Narrative: &NarrativeDetails{Type: NarrativeFeature},
	}).TopLevelEligible(), "linked-only narrative stays off the top level")

	for _, kind := range []Kind{KindPlayer, KindAsset, KindBackground, KindData, KindQuote, KindReaction} {
		assert.False(t, (&ContentItem{Kind: kind}).TopLevelEligible(), "kind %s", kind)
	}
}

func TestCompare_TiebreakByID(t *testing.T) {
	key := date(2026, 5, 1)
	a := &ContentItem{ID: 1, Kind: KindEvent, Event: &EventDetails{EndDate: &key}}
	b := &ContentItem{ID: 2, Kind: KindEvent, Event: &EventDetails{EndDate: &key}}

	assert.Equal(t, -1, Compare(a, b))
	assert.Equal(t, 1, Compare(b, a))
	assert.Equal(t, 0, Compare(a, a))
}

func TestSortItems(t *testing.T) {
	early := date(2026, 1, 1)
	late := date(2026, 6, 1)
	items := []*ContentItem{
		{ID: 3, Kind: KindEvent, Event: &EventDetails{EndDate: &late}},
		{ID: 1, Kind: KindEvent, Event: &EventDetails{EndDate: &early}},
		{ID: 2, Kind: KindEvent, Event: &EventDetails{EndDate: &early}},
	}

	SortItems(items, true)
	assert.Equal(t, []int64{1, 2, 3}, ids(items))

	SortItems(items, false)
	assert.Equal(t, []int64{3, 2, 1}, ids(items))
}

func ids(items []*ContentItem) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestTypeLabel_Concept(t *testing.T) {
	item := &ContentItem{Kind: KindBackground, Background: &BackgroundDetails{}}
	assert.Equal(t, "Background", item.TypeLabel())

	item.Background.ConceptName = "Judicial Review"
	assert.Equal(t, "Concept", item.TypeLabel())
}

func TestPreferredDimensions(t *testing.T) {
	video := &ContentItem{Kind: KindAsset, Asset: &AssetDetails{Type: AssetVideo}}
	dims, heuristic, ok := video.PreferredDimensions()
	require.True(t, ok)
	assert.True(t, heuristic)
	assert.Equal(t, Dimensions{Width: 480, Height: 270}, dims)

	image := &ContentItem{Kind: KindAsset, Asset: &AssetDetails{Type: AssetImage}}
	_, _, ok = image.PreferredDimensions()
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	valid := func() *ContentItem {
		return &ContentItem{
			Kind:       KindEvent,
			Importance: ImportanceMedium,
			State:      StateDraft,
			Event:      &EventDetails{Update: "something happened"},
		}
	}

	require.NoError(t, valid().Validate())

	t.Run("unknown kind", func(t *testing.T) {
		item := valid()
		item.Kind = "blog"
		item.Event = nil
		assert.ErrorIs(t, item.Validate(), ErrInvalid)
	})

	t.Run("half location", func(t *testing.T) {
		item := valid()
		item.Location = &Location{Lat: utils.Ptr(52.52)}
		err := item.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalid)

		item.Location.Lng = utils.Ptr(13.4)
		assert.NoError(t, item.Validate())
	})

	t.Run("mismatched details", func(t *testing.T) {
		item := valid()
		item.Player = &PlayerDetails{Name: "stray", Type: PlayerPerson}
		assert.ErrorIs(t, item.Validate(), ErrInvalid)
	})

	t.Run("missing details", func(t *testing.T) {
		item := valid()
		item.Kind = KindPlayer
		item.Event = nil
		assert.ErrorIs(t, item.Validate(), ErrInvalid)
	})

	t.Run("store errors stay distinct", func(t *testing.T) {
		assert.False(t, errors.Is(ErrNotFound, ErrInvalid))
	})
}

func TestPlayerInherit(t *testing.T) {
	parent := &PlayerDetails{
		Name:    "Jordan Reyes",
		Aliases: []string{"J. Reyes"},
		Type:    PlayerPerson,
		PhotoID: utils.Ptr(int64(42)),
	}
	child := &PlayerDetails{ParentID: utils.Ptr(int64(7))}
	child.Inherit(parent)

	assert.Equal(t, "Jordan Reyes", child.Name)
	assert.Equal(t, []string{"J. Reyes"}, child.Aliases)
	assert.Equal(t, PlayerPerson, child.Type)
	require.NotNil(t, child.PhotoID)
	assert.Equal(t, int64(42), *child.PhotoID)

	// The copy must not alias the parent's slice.
	child.Aliases[0] = "changed"
	assert.Equal(t, "J. Reyes", parent.Aliases[0])
}
