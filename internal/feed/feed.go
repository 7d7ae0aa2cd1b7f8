// Package feed defines the RecordFeed boundary: an unbounded, unordered,
// duplicate-prone stream of records matching a query. The engine never
// assumes completion and owns no retry logic; transport failures surface
// only as an absence of further records.
package feed

import (
	"github.com/veksa/loom/internal/record"
)

// Query selects records from a feed.
type Query struct {
	// Kinds filters by record kind (nil = all kinds).
	Kinds []record.Kind

	// Authors filters by author identity (nil = all authors).
	Authors []string

	// References filters to records whose reference tag points at one of
	// these keys (nil = no reference filter).
	References []string

	// Since restricts to records created at or after this Unix timestamp
	// (zero = no lower bound).
	Since int64
}

// Matches reports whether the record satisfies the query.
func (q Query) Matches(r record.Record) bool {
	if q.Since > 0 && r.CreatedAt < q.Since {
		return false
	}

	if len(q.Kinds) > 0 {
		matched := false
		for _, kind := range q.Kinds {
			if r.Kind == kind {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(q.Authors) > 0 {
		matched := false
		for _, author := range q.Authors {
			if r.Author == author {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(q.References) > 0 {
		ref, ok := r.Reference()
		if !ok {
			return false
		}
		matched := false
		for _, want := range q.References {
			if ref == want {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Feed yields records matching a query. Subscribe returns a channel of
// records and a cancel function; the channel is closed after cancellation.
// Feeds may deliver duplicates and records out of order.
type Feed interface {
	Subscribe(q Query) (<-chan record.Record, func())
}
