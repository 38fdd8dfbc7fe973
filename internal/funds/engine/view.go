// Package engine turns a fund snapshot plus a favorites set and view settings
// into the sequence shown in the fund list.
package engine

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tair/fundwatch/internal/funds/domain"
)

// Engine filters and sorts fund records. The zero value collates with language.Und.
type Engine struct {
	tag language.Tag
}

// New returns an engine that orders names according to tag
func New(tag language.Tag) Engine {
	return Engine{tag: tag}
}

// ParseLocale resolves a BCP 47 tag, falling back to Japanese
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.Japanese
	}
	return tag
}

// ComputeView returns the records to display. records is never modified.
func (e Engine) ComputeView(records []domain.FundRecord, favorites domain.FavoriteSet, view domain.ViewState) []domain.FundRecord {
	view = view.Normalize()

	out := make([]domain.FundRecord, 0, len(records))
	needle := strings.ToLower(view.SearchTerm)
	for _, r := range records {
		if view.SearchTerm != "" &&
			!strings.Contains(strings.ToLower(r.Name), needle) &&
			!strings.Contains(r.Code, view.SearchTerm) {
			continue
		}
		if view.FavoritesOnly && !favorites.Has(r.Code) {
			continue
		}
		out = append(out, r)
	}

	compare := e.comparator(view.SortField)
	if view.SortDirection == domain.Descending {
		asc := compare
		compare = func(a, b domain.FundRecord) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)

	return out
}

// comparator builds an ascending comparison for field. A collator is not safe
// for concurrent use, so each call gets its own.
func (e Engine) comparator(field domain.SortField) func(a, b domain.FundRecord) int {
	switch field {
	case domain.SortByName, domain.SortByCode:
		col := collate.New(e.tag)
		text := func(r domain.FundRecord) string {
			if field == domain.SortByCode {
				return r.Code
			}
			return r.Name
		}
		return func(a, b domain.FundRecord) int {
			return col.CompareString(text(a), text(b))
		}
	case domain.SortByBasePrice:
		return func(a, b domain.FundRecord) int {
			return a.BasePrice.Cmp(b.BasePrice)
		}
	default:
		metric := changeMetric(field)
		return func(a, b domain.FundRecord) int {
			return cmp.Compare(metric(a), metric(b))
		}
	}
}

func changeMetric(field domain.SortField) func(domain.FundRecord) float64 {
	switch field {
	case domain.SortByDay2:
		return func(r domain.FundRecord) float64 { return r.PriceChanges.Day2 }
	case domain.SortByDay3:
		return func(r domain.FundRecord) float64 { return r.PriceChanges.Day3 }
	case domain.SortByDay4:
		return func(r domain.FundRecord) float64 { return r.PriceChanges.Day4 }
	case domain.SortByDay5:
		return func(r domain.FundRecord) float64 { return r.PriceChanges.Day5 }
	default:
		return func(r domain.FundRecord) float64 { return r.PriceChanges.Day1 }
	}
}
