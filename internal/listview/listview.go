// Package listview implements the list-page presentation logic as pure
// transforms over an immutable snapshot of shipment summaries: a free-text
// filter and a keyed sort. Keeping these out of the HTTP layer makes the
// behavior testable without any rendering or request machinery.
package listview

import (
	"sort"
	"strings"
	"time"

	"github.com/harborline/shipment-tracker/models"
)

// SortKey selects the column a shipment list is ordered by.
type SortKey string

const (
	SortReference SortKey = "reference"
	SortRoute     SortKey = "route"
	SortStatus    SortKey = "status"
	SortETA       SortKey = "eta"
	SortLastEvent SortKey = "last_event"
)

// Direction is the sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// DefaultDirection returns the direction used when the caller does not pick
// one: ascending for text-like keys, descending for date-like keys.
func DefaultDirection(key SortKey) Direction {
	switch key {
	case SortETA, SortLastEvent:
		return Descending
	default:
		return Ascending
	}
}

// Filter returns the rows whose house/master bill numbers, PO number,
// customer reference, or shipment identifier contain the query as a
// case-insensitive substring. An empty query returns the input unchanged.
func Filter(rows []models.ShipmentSummary, query string) []models.ShipmentSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}

	matched := make([]models.ShipmentSummary, 0, len(rows))
	for _, row := range rows {
		if rowMatches(row, query) {
			matched = append(matched, row)
		}
	}
	return matched
}

func rowMatches(row models.ShipmentSummary, query string) bool {
	fields := []string{
		row.ID,
		deref(row.HBL),
		deref(row.MBL),
		deref(row.PONumber),
		deref(row.CustomerReference),
	}
	for _, field := range fields {
		if field != "" && strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Sort returns a new slice ordered by the given key and direction. Text
// keys compare lexicographically and date keys numerically; rows with a
// missing date always sort last, whatever the direction.
func Sort(rows []models.ShipmentSummary, key SortKey, dir Direction) []models.ShipmentSummary {
	sorted := make([]models.ShipmentSummary, len(rows))
	copy(sorted, rows)

	less := lessFunc(key, dir)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}

func lessFunc(key SortKey, dir Direction) func(a, b models.ShipmentSummary) bool {
	switch key {
	case SortETA:
		return dateLess(func(s models.ShipmentSummary) *time.Time { return s.ETA }, dir)
	case SortLastEvent:
		return dateLess(func(s models.ShipmentSummary) *time.Time { return s.LastEventAt }, dir)
	case SortRoute:
		return textLess(func(s models.ShipmentSummary) string { return s.Route() }, dir)
	case SortStatus:
		return textLess(func(s models.ShipmentSummary) string { return s.DerivedStatus }, dir)
	default:
		return textLess(func(s models.ShipmentSummary) string { return deref(s.CustomerReference) }, dir)
	}
}

func textLess(value func(models.ShipmentSummary) string, dir Direction) func(a, b models.ShipmentSummary) bool {
	return func(a, b models.ShipmentSummary) bool {
		va, vb := strings.ToLower(value(a)), strings.ToLower(value(b))
		if dir == Descending {
			return va > vb
		}
		return va < vb
	}
}

func dateLess(value func(models.ShipmentSummary) *time.Time, dir Direction) func(a, b models.ShipmentSummary) bool {
	return func(a, b models.ShipmentSummary) bool {
		va, vb := value(a), value(b)
		// Missing dates sort last regardless of direction.
		if va == nil {
			return false
		}
		if vb == nil {
			return true
		}
		if dir == Descending {
			return va.After(*vb)
		}
		return va.Before(*vb)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
