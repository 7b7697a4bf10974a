package domain

import (
	"fmt"
	"sort"
	"time"
)

// Kind tags the content item variant.
type Kind string

const (
	KindEvent      Kind = "event"
	KindPlayer     Kind = "player"
	KindNarrative  Kind = "narrative"
	KindAsset      Kind = "asset"
	KindBackground Kind = "background"
	KindData       Kind = "data"
	KindQuote      Kind = "quote"
	KindReaction   Kind = "reaction"
)

// Kinds lists every content kind. Matchers and renderers switch over this
// closed set; a new kind must be added here and handled in every switch below.
var Kinds = []Kind{
	KindEvent, KindPlayer, KindNarrative, KindAsset,
	KindBackground, KindData, KindQuote, KindReaction,
}

func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

func (i Importance) Valid() bool {
	switch i {
	case ImportanceHigh, ImportanceMedium, ImportanceLow:
		return true
	}
	return false
}

type PublishState string

const (
	StateDraft     PublishState = "draft"
	StatePublished PublishState = "published"
)

func (s PublishState) Valid() bool {
	return s == StateDraft || s == StatePublished
}

type PlayerType string

const (
	PlayerPerson       PlayerType = "person"
	PlayerOrganization PlayerType = "organization"
)

func (p PlayerType) Valid() bool {
	return p == PlayerPerson || p == PlayerOrganization
}

type NarrativeType string

const (
	NarrativeFeature       NarrativeType = "feature"
	NarrativeInvestigation NarrativeType = "investigation"
	NarrativeProfile       NarrativeType = "profile"
	NarrativeBackgrounder  NarrativeType = "backgrounder"
	NarrativeAnalysis      NarrativeType = "analysis"
	NarrativeOpEd          NarrativeType = "op_ed"
	NarrativeEditorial     NarrativeType = "editorial"
	NarrativeLetter        NarrativeType = "letter"
	NarrativeReview        NarrativeType = "review"
)

func (n NarrativeType) Valid() bool {
	switch n {
	case NarrativeFeature, NarrativeInvestigation, NarrativeProfile,
		NarrativeBackgrounder, NarrativeAnalysis, NarrativeOpEd,
		NarrativeEditorial, NarrativeLetter, NarrativeReview:
		return true
	}
	return false
}

// Opinion reports whether the narrative type carries the author's opinion
// rather than reporting.
func (n NarrativeType) Opinion() bool {
	switch n {
	case NarrativeOpEd, NarrativeEditorial, NarrativeLetter, NarrativeReview:
		return true
	}
	return false
}

type AssetType string

const (
	AssetLink        AssetType = "link"
	AssetImage       AssetType = "image"
	AssetVideo       AssetType = "video"
	AssetAudio       AssetType = "audio"
	AssetInteractive AssetType = "interactive"
	AssetDocument    AssetType = "document"
)

func (a AssetType) Valid() bool {
	switch a {
	case AssetLink, AssetImage, AssetVideo, AssetAudio, AssetInteractive, AssetDocument:
		return true
	}
	return false
}

// Location is an optional geo reference. The coordinate pair is all-or-nothing;
// Validate rejects a single coordinate.
type Location struct {
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Description string   `json:"description,omitempty"`
}

type EventDetails struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Update    string     `json:"update,omitempty"` // one-line update text
	Summary   string     `json:"summary,omitempty"`
}

type PlayerDetails struct {
	Name    string     `json:"name"`
	Aliases []string   `json:"aliases,omitempty"`
	Type    PlayerType `json:"type"`
	PhotoID *int64     `json:"photo_id,omitempty"` // references an image asset item
	// ParentID marks a story player: a story-scoped role for a general player.
	// Name, aliases, type and photo are inherited from the parent on load;
	// the item's own content holds the story-specific role description.
	ParentID *int64 `json:"parent_id,omitempty"`
}

// Inherit copies the delegated identity fields from the parent player.
func (p *PlayerDetails) Inherit(parent *PlayerDetails) {
	if parent == nil {
		return
	}
	p.Name = parent.Name
	p.Aliases = append([]string(nil), parent.Aliases...)
	p.Type = parent.Type
	p.PhotoID = parent.PhotoID
}

type NarrativeDetails struct {
	Headline   string        `json:"headline"`
	Type       NarrativeType `json:"type"`
	Standalone bool          `json:"standalone"`
	Date       *time.Time    `json:"date,omitempty"`
	Summary    string        `json:"summary,omitempty"`
}

type AssetDetails struct {
	Type       AssetType `json:"type"`
	Caption    string    `json:"caption,omitempty"`
	PreviewURL string    `json:"preview_url,omitempty"`
	// Related is the same-page slideshow group for image assets. Populated
	// while assembling a display bundle, never persisted.
	Related []*ContentItem `json:"related,omitempty"`
}

type BackgroundDetails struct {
	// ConceptName turns a background item into a named concept; the effective
	// type label changes when it is non-empty.
	ConceptName string `json:"concept_name,omitempty"`
}

// ContentItem is one discrete unit of story content. The Kind tag selects
// which detail struct is populated; Quote, Data and Reaction carry the base
// shape only.
//
// Identity is the ID field. ContentItem deliberately has no equality of its
// own; "same logical item" checks compare IDs and ordered containers use
// Compare, which breaks sort-key ties by ID.
type ContentItem struct {
	ID             int64        `json:"id"`
	Kind           Kind         `json:"kind"`
	Importance     Importance   `json:"importance"`
	StoryID        *int64       `json:"story_id,omitempty"` // nil for story-independent items (general players)
	State          PublishState `json:"state"`
	Content        string       `json:"content,omitempty"`
	ContributorIDs []int64      `json:"contributor_ids,omitempty"`
	LinkedIDs      []int64      `json:"linked_ids,omitempty"`
	ThemeIDs       []int64      `json:"theme_ids,omitempty"`
	Location       *Location    `json:"location,omitempty"`
	SourceDesc     string       `json:"source_desc,omitempty"`
	SourceItemID   *int64       `json:"source_item_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`

	Event      *EventDetails      `json:"event,omitempty"`
	Player     *PlayerDetails     `json:"player,omitempty"`
	Narrative  *NarrativeDetails  `json:"narrative,omitempty"`
	Asset      *AssetDetails      `json:"asset,omitempty"`
	Background *BackgroundDetails `json:"background,omitempty"`
}

// SortKey is the canonical chronological position for display ordering.
// Events sort by end date, else start date, else creation time; narratives by
// narrative date, else creation time; everything else by creation time.
func (c *ContentItem) SortKey() time.Time {
	switch c.Kind {
	case KindEvent:
		if c.Event != nil {
			if c.Event.EndDate != nil {
				return *c.Event.EndDate
			}
			if c.Event.StartDate != nil {
				return *c.Event.StartDate
			}
		}
		return c.CreatedAt
	case KindNarrative:
		if c.Narrative != nil && c.Narrative.Date != nil {
			return *c.Narrative.Date
		}
		return c.CreatedAt
	case KindPlayer, KindAsset, KindBackground, KindData, KindQuote, KindReaction:
		return c.CreatedAt
	}
	return c.CreatedAt
}

// TopLevelEligible reports whether the item may appear in the default events
// timeline: events always, narratives only when standalone, nothing else.
func (c *ContentItem) TopLevelEligible() bool {
	switch c.Kind {
	case KindEvent:
		return true
	case KindNarrative:
		return c.Narrative != nil && c.Narrative.Standalone
	case KindPlayer, KindAsset, KindBackground, KindData, KindQuote, KindReaction:
		return false
	}
	return false
}

// Opinion reports whether the item is an opinion narrative.
func (c *ContentItem) Opinion() bool {
	return c.Kind == KindNarrative && c.Narrative != nil && c.Narrative.Type.Opinion()
}

// TypeLabel is the human-readable label for the item's kind. A background
// item with a concept name is surfaced as a concept.
func (c *ContentItem) TypeLabel() string {
	switch c.Kind {
	case KindEvent:
		return "Event"
	case KindPlayer:
		return "Player"
	case KindNarrative:
		return "Narrative"
	case KindAsset:
		return "Asset"
	case KindBackground:
		if c.Background != nil && c.Background.ConceptName != "" {
			return "Concept"
		}
		return "Background"
	case KindData:
		return "Data"
	case KindQuote:
		return "Quote"
	case KindReaction:
		return "Reaction"
	}
	return string(c.Kind)
}

// DisplayString is a short diagnostic rendering of the item.
func (c *ContentItem) DisplayString() string {
	var s string
	switch c.Kind {
	case KindEvent:
		if c.Event != nil && c.Event.Update != "" {
			s = c.Event.Update
		}
	case KindPlayer:
		if c.Player != nil {
			s = c.Player.Name
		}
	case KindNarrative:
		if c.Narrative != nil {
			s = c.Narrative.Headline
		}
	case KindAsset:
		if c.Asset != nil {
			if c.Asset.Caption != "" {
				s = c.Asset.Caption
			} else {
				s = c.Asset.PreviewURL
			}
		}
	case KindBackground:
		if c.Background != nil && c.Background.ConceptName != "" {
			s = c.Background.ConceptName
		}
	}
	if s == "" {
		s = c.Content
	}
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return fmt.Sprintf("%s %d: %s", c.TypeLabel(), c.ID, s)
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PreferredDimensions is an optional display-size hint for presentation
// layers. Most kinds have no opinion; video assets suggest a 16:9 player.
// The heuristic flag marks a guess rather than measured dimensions.
func (c *ContentItem) PreferredDimensions() (dims Dimensions, heuristic, ok bool) {
	if c.Kind == KindAsset && c.Asset != nil && c.Asset.Type == AssetVideo {
		return Dimensions{Width: 480, Height: 270}, true, true
	}
	return Dimensions{}, false, false
}

// Age renders the time elapsed since the last update, for display.
func (c *ContentItem) Age(now time.Time) string {
	d := now.Sub(c.UpdatedAt)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// Validate checks construction invariants before an item reaches the store.
func (c *ContentItem) Validate() error {
	if !c.Kind.Valid() {
		return invalidf("unknown content kind %q", c.Kind)
	}
	if !c.Importance.Valid() {
		return invalidf("unknown importance %q", c.Importance)
	}
	if !c.State.Valid() {
		return invalidf("unknown publish state %q", c.State)
	}
	if c.Location != nil {
		if (c.Location.Lat == nil) != (c.Location.Lng == nil) {
			return invalidf("location must carry both coordinates or neither")
		}
	}
	if err := c.validateDetails(); err != nil {
		return err
	}
	return nil
}

func (c *ContentItem) validateDetails() error {
	details := map[Kind]bool{
		KindEvent:      c.Event != nil,
		KindPlayer:     c.Player != nil,
		KindNarrative:  c.Narrative != nil,
		KindAsset:      c.Asset != nil,
		KindBackground: c.Background != nil,
	}
	for kind, present := range details {
		if present && kind != c.Kind {
			return invalidf("%s item carries %s details", c.Kind, kind)
		}
	}
	switch c.Kind {
	case KindEvent:
		if c.Event == nil {
			return invalidf("event item missing event details")
		}
	case KindPlayer:
		if c.Player == nil {
			return invalidf("player item missing player details")
		}
		if !c.Player.Type.Valid() {
			return invalidf("unknown player type %q", c.Player.Type)
		}
	case KindNarrative:
		if c.Narrative == nil {
			return invalidf("narrative item missing narrative details")
		}
		if !c.Narrative.Type.Valid() {
			return invalidf("unknown narrative type %q", c.Narrative.Type)
		}
	case KindAsset:
		if c.Asset == nil {
			return invalidf("asset item missing asset details")
		}
		if !c.Asset.Type.Valid() {
			return invalidf("unknown asset type %q", c.Asset.Type)
		}
	}
	return nil
}

// Compare orders items by ascending sort key, breaking ties by ID so that
// items with identical keys have a stable position across pages.
func Compare(a, b *ContentItem) int {
	ka, kb := a.SortKey(), b.SortKey()
	switch {
	case ka.Before(kb):
		return -1
	case ka.After(kb):
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// SortItems sorts in place by sort key with ID tiebreak.
func SortItems(items []*ContentItem, oldestFirst bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if oldestFirst {
			return Compare(items[i], items[j]) < 0
		}
		return Compare(items[i], items[j]) > 0
	})
}
