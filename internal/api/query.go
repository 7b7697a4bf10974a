package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"livingstories/internal/domain"
)

// parseBundleQuery translates the stream request's query parameters into a
// filter spec plus the optional focused item and resume cutoff.
//
//	type=event&assetType=image&theme=3&opinion=true&important=true
//	&oldestFirst=true&cutoff=2026-01-02T15:04:05Z&focus=42
//	&contributor=7&player=9
func parseBundleQuery(r *http.Request) (domain.FilterSpec, *int64, *time.Time, error) {
	q := r.URL.Query()
	var filter domain.FilterSpec

	if raw := q.Get("type"); raw != "" {
		kind := domain.Kind(raw)
		if !kind.Valid() {
			return filter, nil, nil, fmt.Errorf("unknown content type %q", raw)
		}
		filter.Kind = &kind
	}
	if raw := q.Get("assetType"); raw != "" {
		at := domain.AssetType(raw)
		if !at.Valid() {
			return filter, nil, nil, fmt.Errorf("unknown asset type %q", raw)
		}
		filter.AssetType = &at
	}
	if raw := q.Get("theme"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, nil, nil, fmt.Errorf("invalid theme id %q", raw)
		}
		filter.ThemeID = &id
	}
	if raw := q.Get("contributor"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, nil, nil, fmt.Errorf("invalid contributor id %q", raw)
		}
		filter.ContributorID = &id
	}
	if raw := q.Get("player"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, nil, nil, fmt.Errorf("invalid player id %q", raw)
		}
		filter.PlayerID = &id
	}
	filter.Opinion = q.Get("opinion") == "true"
	filter.ImportantOnly = q.Get("important") == "true"
	filter.OldestFirst = q.Get("oldestFirst") == "true"

	var focusedID *int64
	if raw := q.Get("focus"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, nil, nil, fmt.Errorf("invalid focus id %q", raw)
		}
		focusedID = &id
	}

	var cutoff *time.Time
	if raw := q.Get("cutoff"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, nil, nil, fmt.Errorf("invalid cutoff %q, want RFC 3339", raw)
		}
		cutoff = &t
	}

	return filter, focusedID, cutoff, nil
}
