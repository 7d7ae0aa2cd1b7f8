// Package inbox classifies author-relevant records into a deduplicated,
// unread-annotated notification list.
package inbox

import (
	"sort"
	"sync"
	"time"

	"github.com/veksa/loom/internal/cursor"
	"github.com/veksa/loom/internal/record"
)

// Category is the semantic class of an inbox item.
type Category string

const (
	CategoryResponse Category = "response"
	CategoryMention  Category = "mention"
	CategoryReply    Category = "reply"
	CategoryReaction Category = "reaction"
	CategoryArticle  Category = "article"
)

// Item wraps one surviving record with its derived annotations.
type Item struct {
	Record      record.Record
	Category    Category
	Unread      bool
	Suggestions [][]string // suggestion tag arrays, verbatim in tag order
}

// Classify maps a record to its category. Records of the threaded-reply
// kind that carry an agent marker tag are reclassified as responses. ok is
// false for out-of-scope kinds, which the aggregator drops without error.
func Classify(r record.Record) (Category, bool) {
	switch r.Kind {
	case record.KindResponse:
		return CategoryResponse, true
	case record.KindMessage:
		return CategoryMention, true
	case record.KindReply:
		if record.Parse(r).AgentMarker {
			return CategoryResponse, true
		}
		return CategoryReply, true
	case record.KindReaction:
		return CategoryReaction, true
	case record.KindArticle:
		return CategoryArticle, true
	default:
		return "", false
	}
}

// Aggregator deduplicates incoming records by reference key (newest wins by
// createdAt) and annotates the survivors with read state from the tracker.
// The item list and unread count are recomputed from the retained set on
// every query, never incrementally patched.
type Aggregator struct {
	tracker *cursor.Tracker
	now     func() time.Time

	mu      sync.RWMutex
	records map[string]record.Record // group key -> newest record
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the aggregator's time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator creates an empty inbox backed by the given read cursor
// tracker.
func NewAggregator(tracker *cursor.Tracker, opts ...Option) *Aggregator {
	a := &Aggregator{
		tracker: tracker,
		now:     time.Now,
		records: make(map[string]record.Record),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ingest accepts one record. Out-of-scope kinds and invalid records are
// dropped; within a reference group only the greatest-createdAt record
// survives. Records without a reference tag form singleton groups keyed by
// their own id. Returns true when the retained set changed.
func (a *Aggregator) Ingest(r record.Record) bool {
	if !record.Valid(r) {
		return false
	}
	if _, ok := Classify(r); !ok {
		return false
	}

	key := r.GroupKey()
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.records[key]; ok && !record.Newer(r, existing) {
		return false
	}
	a.records[key] = record.Clone(r)
	return true
}

// Items returns the inbox sorted by createdAt descending, annotated with
// unread state and any suggestion tags.
func (a *Aggregator) Items() []Item {
	a.mu.RLock()
	records := make([]record.Record, 0, len(a.records))
	for _, r := range a.records {
		records = append(records, r)
	}
	a.mu.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})

	items := make([]Item, 0, len(records))
	for _, r := range records {
		category, ok := Classify(r)
		if !ok {
			continue
		}
		item := Item{
			Record:   r,
			Category: category,
			Unread:   a.tracker.IsUnread(r),
		}
		for _, suggestion := range record.Parse(r).Suggestions {
			item.Suggestions = append(item.Suggestions, append([]string(nil), suggestion.Values...))
		}
		items = append(items, item)
	}
	return items
}

// UnreadCount counts the items whose record postdates the read cursor.
// Recomputed on every call to avoid drift.
func (a *Aggregator) UnreadCount() int {
	count := 0
	for _, item := range a.Items() {
		if item.Unread {
			count++
		}
	}
	return count
}

// MarkRead advances the read cursor to now and persists it.
func (a *Aggregator) MarkRead() error {
	return a.tracker.MarkRead(a.now())
}
