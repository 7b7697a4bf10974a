package domain

import (
	"fmt"
	"strings"
)

// FilterSpec is the selection criteria for one page of story content.
//
// A nil Kind selects the default timeline: items eligible for top-level
// display. ContributorID and PlayerID are independent scoping axes applied by
// the retrieval pipeline, not by Matches; they are excluded from the canonical
// ParamString but included in MapKey so scoped result sets cache separately.
type FilterSpec struct {
	ImportantOnly bool       `json:"important_only,omitempty"`
	OldestFirst   bool       `json:"oldest_first,omitempty"`
	Opinion       bool       `json:"opinion,omitempty"` // meaningful only when Kind is narrative
	Kind          *Kind      `json:"kind,omitempty"`
	AssetType     *AssetType `json:"asset_type,omitempty"` // meaningful only when Kind is asset
	ThemeID       *int64     `json:"theme_id,omitempty"`
	ContributorID *int64     `json:"contributor_id,omitempty"`
	PlayerID      *int64     `json:"player_id,omitempty"`
}

// Matches reports whether the item belongs in the stream selected by the
// filter. All clauses are conjunctive.
func (f FilterSpec) Matches(item *ContentItem) bool {
	// Background and reaction items never appear in the filtered stream;
	// background surfaces only as concept context, reactions only inline.
	if item.Kind == KindBackground || item.Kind == KindReaction {
		return false
	}
	if f.Kind == nil {
		if !item.TopLevelEligible() {
			return false
		}
	} else if item.Kind != *f.Kind {
		return false
	}
	if item.Kind == KindAsset && f.AssetType != nil && item.Asset != nil {
		// Links and documents are presented as one grouped filter option.
		if *f.AssetType == AssetLink {
			if item.Asset.Type != AssetLink && item.Asset.Type != AssetDocument {
				return false
			}
		} else if item.Asset.Type != *f.AssetType {
			return false
		}
	}
	if f.Kind != nil && *f.Kind == KindNarrative {
		if item.Opinion() != f.Opinion {
			return false
		}
	}
	if f.Kind != nil && *f.Kind == KindPlayer {
		// Every current player type passes; kept so a future player type has
		// to be admitted here explicitly.
		if item.Player == nil || !item.Player.Type.Valid() {
			return false
		}
	}
	if f.ThemeID != nil && !containsID(item.ThemeIDs, *f.ThemeID) {
		return false
	}
	if f.ImportantOnly && item.Importance != ImportanceHigh {
		return false
	}
	return true
}

// ScopeMatches applies the contributor/player scoping axes. The retrieval
// pipeline checks it alongside Matches; the two are kept separate because
// scoping is not part of the canonical filter stream.
func (f FilterSpec) ScopeMatches(item *ContentItem) bool {
	if f.ContributorID != nil && !containsID(item.ContributorIDs, *f.ContributorID) {
		return false
	}
	if f.PlayerID != nil && !containsID(item.LinkedIDs, *f.PlayerID) {
		return false
	}
	return true
}

// ParamString is the canonical compact encoding of the filter, excluding the
// contributor/player scoping axes.
func (f FilterSpec) ParamString() string {
	parts := make([]string, 0, 6)
	if f.Kind == nil {
		parts = append(parts, "top")
	} else {
		parts = append(parts, string(*f.Kind))
		if *f.Kind == KindAsset && f.AssetType != nil {
			parts = append(parts, "asset:"+string(*f.AssetType))
		}
		if *f.Kind == KindNarrative {
			parts = append(parts, fmt.Sprintf("opinion:%t", f.Opinion))
		}
	}
	if f.ThemeID != nil {
		parts = append(parts, fmt.Sprintf("theme:%d", *f.ThemeID))
	}
	if f.ImportantOnly {
		parts = append(parts, "important")
	}
	if f.OldestFirst {
		parts = append(parts, "oldest")
	} else {
		parts = append(parts, "newest")
	}
	return strings.Join(parts, ",")
}

// MapKey is the cache key encoding: the canonical params plus the scoping axes.
func (f FilterSpec) MapKey() string {
	key := f.ParamString()
	if f.ContributorID != nil {
		key += fmt.Sprintf(",contributor:%d", *f.ContributorID)
	}
	if f.PlayerID != nil {
		key += fmt.Sprintf(",player:%d", *f.PlayerID)
	}
	return key
}

// Equal compares the canonical filter fields. Like ParamString it excludes
// the contributor/player scoping axes; only MapKey distinguishes scoped
// result sets.
func (f FilterSpec) Equal(g FilterSpec) bool {
	return f.ImportantOnly == g.ImportantOnly &&
		f.OldestFirst == g.OldestFirst &&
		f.Opinion == g.Opinion &&
		eqPtr(f.Kind, g.Kind) &&
		eqPtr(f.AssetType, g.AssetType) &&
		eqPtr(f.ThemeID, g.ThemeID)
}

// IsReverseOf reports whether g selects the same stream in the opposite sort
// direction. A filter is never the reverse of itself.
func (f FilterSpec) IsReverseOf(g FilterSpec) bool {
	if f.OldestFirst == g.OldestFirst {
		return false
	}
	flipped := g
	flipped.OldestFirst = f.OldestFirst
	return f.Equal(flipped)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
