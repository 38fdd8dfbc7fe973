package domain

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrStoreUnavailable wraps every failure to reach the durable favorites store
	ErrStoreUnavailable = errors.New("favorites store unavailable")
	// ErrInvalidFundCode is returned for empty or malformed fund codes
	ErrInvalidFundCode = errors.New("invalid fund code")
	// ErrFundNotFound is returned when neither the provider nor the static data knows a code
	ErrFundNotFound = errors.New("fund not found")
)

// UserKey identifies one browser. It is opaque and never authenticated.
type UserKey string

// FavoriteStore is a remote set-per-user backend. Add and Remove are idempotent.
type FavoriteStore interface {
	List(ctx context.Context, user UserKey) ([]string, error)
	Add(ctx context.Context, user UserKey, code string) error
	Remove(ctx context.Context, user UserKey, code string) error
}

// FavoriteSet is a set of fund codes
type FavoriteSet map[string]struct{}

// NewFavoriteSet builds a set from codes, skipping empty strings
func NewFavoriteSet(codes ...string) FavoriteSet {
	s := make(FavoriteSet, len(codes))
	for _, c := range codes {
		if c != "" {
			s[c] = struct{}{}
		}
	}
	return s
}

// Has reports membership
func (s FavoriteSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Clone returns an independent copy
func (s FavoriteSet) Clone() FavoriteSet {
	out := make(FavoriteSet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Toggled returns a copy with code's membership flipped
func (s FavoriteSet) Toggled(code string) FavoriteSet {
	out := s.Clone()
	if out.Has(code) {
		delete(out, code)
	} else {
		out[code] = struct{}{}
	}
	return out
}

// Union returns the codes present in either set
func (s FavoriteSet) Union(other FavoriteSet) FavoriteSet {
	out := s.Clone()
	for c := range other {
		out[c] = struct{}{}
	}
	return out
}

// Difference returns the codes of s that are not in other
func (s FavoriteSet) Difference(other FavoriteSet) FavoriteSet {
	out := make(FavoriteSet)
	for c := range s {
		if !other.Has(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// Sorted returns the codes in ascending order
func (s FavoriteSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
