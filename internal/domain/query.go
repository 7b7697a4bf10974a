package domain

import "time"

// WindowCursor positions a window scan within the (sort key, id) order.
//
// With AfterID nil the scan starts at Key inclusively; callers resuming from
// a bare-date continuation cursor use this form. With AfterID set the scan
// resumes strictly past the row (Key, AfterID), so successive windows never
// repeat a row even when many rows share one sort key.
type WindowCursor struct {
	Key     time.Time
	AfterID *int64
}

// SearchQuery narrows a content item search; nil fields are unconstrained.
// After and Before bound the item sort key, not the creation time.
type SearchQuery struct {
	StoryID    *int64
	Kind       *Kind
	After      *time.Time
	Before     *time.Time
	Importance *Importance
	State      *PublishState
}
