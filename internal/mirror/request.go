// Package mirror implements the sync domain: request validation, pattern
// translation to the Transfer API filter dialect, verified resolution of
// the SuperDARN mirror endpoint, and the run orchestration around a single
// batch transfer.
package mirror

import (
	"errors"
	"fmt"
	"time"
)

// Category is a SuperDARN data category. Each category lives in its own
// subtree on the mirror and has a fixed canonical file extension.
type Category string

// The enumerated data categories.
const (
	CategoryRaw     Category = "raw"
	CategoryDat     Category = "dat"
	CategoryFit     Category = "fit"
	CategoryMap     Category = "map"
	CategoryGrid    Category = "grid"
	CategorySummary Category = "summary"
)

// Categories returns all valid categories in display order.
func Categories() []Category {
	return []Category{CategoryRaw, CategoryDat, CategoryFit, CategoryMap, CategoryGrid, CategorySummary}
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryRaw, CategoryDat, CategoryFit, CategoryMap, CategoryGrid, CategorySummary:
		return true
	default:
		return false
	}
}

// ErrInvalidRequest is the sentinel wrapped by every validation failure.
// Use errors.Is(err, mirror.ErrInvalidRequest) to check.
var ErrInvalidRequest = errors.New("mirror: invalid sync request")

// Request is one sync selection. Immutable once constructed; every
// component reads it, none mutates it.
type Request struct {
	Year     int
	Month    int
	Pattern  string
	Category Category

	// LocalDest is the destination directory on the operator's endpoint.
	// It is never checked locally: the endpoint usually lives on another
	// machine, so a bad path surfaces as a service-side transfer failure.
	LocalDest string
}

// Validate checks the request against now. First failure wins.
//
// An out-of-range month is rejected before the future-date rules so that
// month 13 in the current year reads "invalid month", not "future month".
func (r Request) Validate(now time.Time) error {
	curYear, curMonth := now.Year(), int(now.Month())

	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: sync month %d is not in 1-12", ErrInvalidRequest, r.Month)
	}

	if r.Year == curYear && r.Month > curMonth {
		return fmt.Errorf("%w: year %d month %02d is in the future", ErrInvalidRequest, r.Year, r.Month)
	}

	if r.Year > curYear {
		return fmt.Errorf("%w: sync year %d is in the future", ErrInvalidRequest, r.Year)
	}

	if !r.Category.Valid() {
		return fmt.Errorf("%w: data type %q is not one of %v", ErrInvalidRequest, string(r.Category), Categories())
	}

	return nil
}
