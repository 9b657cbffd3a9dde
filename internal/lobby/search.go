package lobby

import (
	"iter"
	"slices"
	"strings"

	"github.com/hay-kot/lobby/internal/core/session"
)

// SearchStatus is the lifecycle state of one search generation.
type SearchStatus int

const (
	SearchIdle SearchStatus = iota
	SearchSearching
	SearchCompleted
	SearchFailed
)

func (s SearchStatus) String() string {
	switch s {
	case SearchIdle:
		return "idle"
	case SearchSearching:
		return "searching"
	case SearchCompleted:
		return "completed"
	case SearchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SearchState is a snapshot of the current search generation.
type SearchState struct {
	Status     SearchStatus
	Generation uint64
	Results    []session.Record // backend order
	FilterText string
	Err        error // set when Status is SearchFailed
}

// Visible returns the results matching FilterText.
func (s SearchState) Visible() iter.Seq[session.Record] {
	return Filter(s.FilterText, s.Results)
}

// Filter yields the records whose display name contains query, ignoring
// case, in input order. An empty query yields every record. The sequence is
// recomputed on every range, so it can be iterated repeatedly.
func Filter(query string, records []session.Record) iter.Seq[session.Record] {
	needle := strings.ToLower(query)

	return func(yield func(session.Record) bool) {
		for _, r := range records {
			if needle != "" && !strings.Contains(strings.ToLower(r.DisplayName), needle) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// FilterSlice collects Filter into a slice.
func FilterSlice(query string, records []session.Record) []session.Record {
	return slices.Collect(Filter(query, records))
}
