package cli

import (
	"fmt"
	"sort"
	"strings"
)

// SortOrder represents the available summary orderings
type SortOrder string

const (
	SortByPosition SortOrder = "position"
	SortByStatus   SortOrder = "status"
	SortByName     SortOrder = "name"
)

// ParseSortOrder validates a sort order name
func ParseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortByPosition, SortByStatus, SortByName:
		return order, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be 'position', 'status' or 'name')", s)
}

// statusRank puts problems first when sorting by status
var statusRank = map[string]int{
	"persistence failure": 0,
	"canceled":            1,
	"abandoned":           2,
	"not found":           3,
	"done":                4,
}

// sortRecords sorts records in place; ties keep input order
func sortRecords(records []RecordReport, order SortOrder) {
	switch order {
	case SortByPosition:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Position < records[j].Position
		})
	case SortByStatus:
		sort.SliceStable(records, func(i, j int) bool {
			if statusRank[records[i].Status] != statusRank[records[j].Status] {
				return statusRank[records[i].Status] < statusRank[records[j].Status]
			}
			return records[i].Position < records[j].Position
		})
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			a, b := strings.ToLower(records[i].Name), strings.ToLower(records[j].Name)
			if a != b {
				return a < b
			}
			return records[i].Position < records[j].Position
		})
	}
}
