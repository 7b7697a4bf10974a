package domain

import "time"

// DisplayBundle is one page of the filtered story stream.
//
// CoreItems are the items directly matched by the filter, in display order.
// LinkedItems resolve the core items' one-level link references, deduplicated
// and excluding the core items themselves. NextDate is the sort key the next
// page starts at; nil means the stream is exhausted. Filter echoes what was
// actually applied, which differs from the request when a theme switch forced
// an adjustment.
type DisplayBundle struct {
	CoreItems   []*ContentItem `json:"core_items"`
	LinkedItems []*ContentItem `json:"linked_items,omitempty"`
	NextDate    *time.Time     `json:"next_date,omitempty"`
	Filter      FilterSpec     `json:"filter"`
}

// ThemeAvailability reports which content and asset kinds exist inside one
// theme, driving which filter options are legal. The all-coverage entry has
// ThemeID 0 and an empty name.
type ThemeAvailability struct {
	ThemeID    int64              `json:"theme_id"`
	Name       string             `json:"name,omitempty"`
	Kinds      map[Kind]bool      `json:"kinds"`
	AssetTypes map[AssetType]bool `json:"asset_types"`
	HasOpinion bool               `json:"has_opinion"`
}

// Allows reports whether the filter's kind/asset/opinion combination can
// produce results within this theme.
func (t *ThemeAvailability) Allows(f FilterSpec) bool {
	if f.Kind == nil {
		return true
	}
	if !t.Kinds[*f.Kind] {
		return false
	}
	if *f.Kind == KindAsset && f.AssetType != nil {
		if *f.AssetType == AssetLink {
			return t.AssetTypes[AssetLink] || t.AssetTypes[AssetDocument]
		}
		return t.AssetTypes[*f.AssetType]
	}
	if *f.Kind == KindNarrative && f.Opinion {
		return t.HasOpinion
	}
	return true
}
