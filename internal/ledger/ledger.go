// Package ledger deduplicates and merges per-conversation records into
// stable thread views.
package ledger

import (
	"sort"
	"strconv"
	"sync"

	"github.com/veksa/loom/internal/record"
)

// Thread is a derived conversation root view, merged from a root record,
// an optional metadata overlay, and the visible reply set.
type Thread struct {
	ID           string
	Author       string
	CollectionID string
	Title        string
	Summary      string
	CreatedAt    int64
	ReplyCount   int
	Phase        string
}

// ReplyStamp is the (author, time) pair of one reply, used by the relevance
// filters.
type ReplyStamp struct {
	Author    string
	CreatedAt int64
}

// Ledger accumulates thread-root, metadata-overlay, and reply records.
// Ingest may run concurrently with snapshot reads.
//
// Merge rules differ deliberately between the maps: a later-arriving root
// record with the same id fully replaces the earlier one (arrival order is
// assumed to reflect logical recency for roots, which are not re-issued),
// while overlays targeting the same thread keep the greater createdAt.
type Ledger struct {
	mu       sync.RWMutex
	roots    map[string]record.Record            // thread id -> root record
	overlays map[string]record.Record            // thread id -> newest overlay
	replies  map[string]map[string]record.Record // thread id -> reply id -> reply
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		roots:    make(map[string]record.Record),
		overlays: make(map[string]record.Record),
		replies:  make(map[string]map[string]record.Record),
	}
}

// Ingest routes a record into the root, overlay, or reply map by kind.
// Records of other kinds, and overlay/reply records with a malformed or
// absent reference, are skipped entirely.
func (l *Ledger) Ingest(r record.Record) {
	if !record.Valid(r) {
		return
	}

	switch r.Kind {
	case record.KindThreadRoot:
		l.mu.Lock()
		l.roots[r.ID] = record.Clone(r)
		l.mu.Unlock()

	case record.KindThreadMeta:
		ref, ok := record.Index(r).FirstValueTrimmed(record.TagReference)
		if !ok {
			return
		}
		l.mu.Lock()
		if existing, ok := l.overlays[ref]; !ok || record.Newer(r, existing) {
			l.overlays[ref] = record.Clone(r)
		}
		l.mu.Unlock()

	case record.KindReply:
		ref, ok := record.Index(r).FirstValueTrimmed(record.TagReference)
		if !ok {
			return
		}
		l.mu.Lock()
		group := l.replies[ref]
		if group == nil {
			group = make(map[string]record.Record)
			l.replies[ref] = group
		}
		if _, exists := group[r.ID]; !exists {
			group[r.ID] = record.Clone(r)
		}
		l.mu.Unlock()
	}
}

// Threads returns the merged thread views for a collection (empty
// collection = all). Unsorted; consumers order by createdAt descending.
func (l *Ledger) Threads(collection string) []Thread {
	l.mu.RLock()
	defer l.mu.RUnlock()

	threads := make([]Thread, 0, len(l.roots))
	for id, root := range l.roots {
		thread := threadFromRoot(root)
		if collection != "" && thread.CollectionID != collection {
			continue
		}

		if overlay, ok := l.overlays[id]; ok {
			idx := record.Index(overlay)
			if title, ok := idx.FirstValueTrimmed(record.TagTitle); ok {
				thread.Title = title
			}
			if summary, ok := idx.FirstValue(record.TagSummary); ok {
				thread.Summary = summary
			}
		}

		if count := len(l.replies[id]); count > 0 {
			thread.ReplyCount = count
		}
		threads = append(threads, thread)
	}
	return threads
}

// Thread returns the merged view for a single thread id.
func (l *Ledger) Thread(id string) (Thread, bool) {
	l.mu.RLock()
	root, ok := l.roots[id]
	l.mu.RUnlock()
	if !ok {
		return Thread{}, false
	}
	for _, thread := range l.Threads(threadFromRoot(root).CollectionID) {
		if thread.ID == id {
			return thread, true
		}
	}
	return Thread{}, false
}

// ReplyStamps returns the (author, time) pairs of the visible replies for a
// thread, unordered.
func (l *Ledger) ReplyStamps(threadID string) []ReplyStamp {
	l.mu.RLock()
	defer l.mu.RUnlock()

	group := l.replies[threadID]
	if len(group) == 0 {
		return nil
	}
	stamps := make([]ReplyStamp, 0, len(group))
	for _, reply := range group {
		stamps = append(stamps, ReplyStamp{Author: reply.Author, CreatedAt: reply.CreatedAt})
	}
	return stamps
}

// SortByCreatedAtDesc orders threads newest first, ties broken by id so the
// ordering is stable across recomputation.
func SortByCreatedAtDesc(threads []Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		if threads[i].CreatedAt != threads[j].CreatedAt {
			return threads[i].CreatedAt > threads[j].CreatedAt
		}
		return threads[i].ID < threads[j].ID
	})
}

func threadFromRoot(root record.Record) Thread {
	idx := record.Index(root)
	thread := Thread{
		ID:        root.ID,
		Author:    root.Author,
		CreatedAt: root.CreatedAt,
	}
	if title, ok := idx.FirstValueTrimmed(record.TagTitle); ok {
		thread.Title = title
	} else {
		thread.Title = root.Content
	}
	if summary, ok := idx.FirstValue(record.TagSummary); ok {
		thread.Summary = summary
	}
	if phase, ok := idx.FirstValueTrimmed(record.TagPhase); ok {
		thread.Phase = phase
	}
	if collection, ok := idx.FirstValueTrimmed(record.TagCollection); ok {
		thread.CollectionID = collection
	}
	// Roots may carry their own reply count; it is only used when no reply
	// records are visible.
	if raw, ok := idx.FirstValueTrimmed(record.TagReplies); ok {
		if count, err := strconv.Atoi(raw); err == nil && count > 0 {
			thread.ReplyCount = count
		}
	}
	return thread
}
