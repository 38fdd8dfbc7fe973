package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidView is returned when a sort field or direction is not recognised
var ErrInvalidView = errors.New("invalid view state")

// SortField names a sortable FundRecord attribute
type SortField string

const (
	SortByName      SortField = "fundName"
	SortByCode      SortField = "fundCode"
	SortByBasePrice SortField = "basePrice"
	SortByDay1      SortField = "day1"
	SortByDay2      SortField = "day2"
	SortByDay3      SortField = "day3"
	SortByDay4      SortField = "day4"
	SortByDay5      SortField = "day5"
)

// SortFields lists every sortable field in display order
var SortFields = []SortField{
	SortByName, SortByCode, SortByBasePrice,
	SortByDay1, SortByDay2, SortByDay3, SortByDay4, SortByDay5,
}

// IsText reports whether the field compares as a string
func (f SortField) IsText() bool {
	return f == SortByName || f == SortByCode
}

// ParseSortField validates a sort field name
func ParseSortField(s string) (SortField, error) {
	for _, f := range SortFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown sort field %q", ErrInvalidView, s)
}

// SortDirection is asc or desc
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// ParseSortDirection validates a sort direction
func ParseSortDirection(s string) (SortDirection, error) {
	switch SortDirection(s) {
	case Ascending, Descending:
		return SortDirection(s), nil
	}
	return "", fmt.Errorf("%w: unknown sort direction %q", ErrInvalidView, s)
}

// ViewState is the search/sort/filter configuration of the fund list
type ViewState struct {
	SearchTerm    string        `json:"searchTerm"`
	SortField     SortField     `json:"sortField"`
	SortDirection SortDirection `json:"sortDirection"`
	FavoritesOnly bool          `json:"favoritesOnly"`
}

// DefaultViewState sorts by name ascending with no filters
func DefaultViewState() ViewState {
	return ViewState{SortField: SortByName, SortDirection: Ascending}
}

// Normalize replaces unknown sort settings with the defaults
func (v ViewState) Normalize() ViewState {
	if _, err := ParseSortField(string(v.SortField)); err != nil {
		v.SortField = SortByName
	}
	if _, err := ParseSortDirection(string(v.SortDirection)); err != nil {
		v.SortDirection = Ascending
	}
	return v
}
