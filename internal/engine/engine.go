// Package engine wires the record feed to the materialized views and
// exposes the read-only view API.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/veksa/loom/internal/cursor"
	"github.com/veksa/loom/internal/feed"
	"github.com/veksa/loom/internal/inbox"
	"github.com/veksa/loom/internal/ledger"
	"github.com/veksa/loom/internal/logging"
	"github.com/veksa/loom/internal/record"
	"github.com/veksa/loom/internal/relevance"
	"github.com/veksa/loom/internal/roster"
)

// DefaultInboxCursorKey is the cursor store key for the inbox view.
const DefaultInboxCursorKey = "inbox_last_visit"

// Options configure an Engine.
type Options struct {
	// Viewer is the current viewer identity, used by the needs-response
	// filter and the inbox subscription's author relevance.
	Viewer string

	// InboxCursorKey overrides the cursor store key for the inbox.
	InboxCursorKey string

	// StaleAfter is the roster staleness threshold.
	StaleAfter time.Duration

	// Clock overrides the engine's time source.
	Clock func() time.Time
}

// Engine owns one instance of every materialized view and routes incoming
// records to them. Ingest is safe to call concurrently with any snapshot
// accessor; each view swaps whole derived structures, never exposes one
// mid-update.
type Engine struct {
	viewer     string
	staleAfter time.Duration
	now        func() time.Time
	logger     zerolog.Logger

	roster  *roster.Aggregator
	ledger  *ledger.Ledger
	inbox   *inbox.Aggregator
	tracker *cursor.Tracker

	mu        sync.Mutex
	listeners map[int]chan struct{}
	nextID    int
}

// New creates an engine backed by the given cursor store.
func New(store cursor.Store, opts Options) *Engine {
	key := opts.InboxCursorKey
	if key == "" {
		key = DefaultInboxCursorKey
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	staleAfter := opts.StaleAfter
	if staleAfter <= 0 {
		staleAfter = roster.DefaultStaleAfter
	}

	tracker := cursor.NewTracker(store, key, cursor.WithClock(now))
	return &Engine{
		viewer:     opts.Viewer,
		staleAfter: staleAfter,
		now:        now,
		logger:     logging.Component("engine"),
		roster:     roster.NewAggregator(),
		ledger:     ledger.New(),
		inbox:      inbox.NewAggregator(tracker, inbox.WithClock(now)),
		tracker:    tracker,
		listeners:  make(map[int]chan struct{}),
	}
}

// InboxQuery returns the feed query for author-relevant inbox records.
func (e *Engine) InboxQuery() feed.Query {
	return feed.Query{Kinds: []record.Kind{
		record.KindResponse,
		record.KindMessage,
		record.KindReply,
		record.KindReaction,
		record.KindArticle,
	}}
}

// ThreadQuery returns the feed query for thread-root, overlay, and reply
// records.
func (e *Engine) ThreadQuery() feed.Query {
	return feed.Query{Kinds: []record.Kind{
		record.KindThreadRoot,
		record.KindThreadMeta,
		record.KindReply,
	}}
}

// RosterQuery returns the feed query for roster records.
func (e *Engine) RosterQuery() feed.Query {
	return feed.Query{Kinds: []record.Kind{record.KindRoster}}
}

// Ingest routes one record to every view that consumes its kind. Reply
// records feed both the thread ledger and the inbox. Unknown kinds are
// dropped, not errors.
func (e *Engine) Ingest(r record.Record) {
	if !record.Valid(r) {
		e.logger.Debug().Str("record_id", r.ID).Msg("dropping invalid record")
		return
	}

	changed := false
	switch r.Kind {
	case record.KindRoster:
		e.roster.Ingest(r)
		changed = true
	case record.KindThreadRoot, record.KindThreadMeta:
		e.ledger.Ingest(r)
		changed = true
	case record.KindReply:
		e.ledger.Ingest(r)
		e.inbox.Ingest(r)
		changed = true
	case record.KindResponse, record.KindMessage, record.KindReaction, record.KindArticle:
		changed = e.inbox.Ingest(r)
	default:
		e.logger.Debug().Int("kind", int(r.Kind)).Str("record_id", r.ID).Msg("dropping record of unhandled kind")
	}

	if changed {
		e.notify()
	}
}

// IngestBatch ingests records in order.
func (e *Engine) IngestBatch(records []record.Record) {
	for _, r := range records {
		e.Ingest(r)
	}
}

// Run subscribes the engine to the feed and ingests records until the
// context is cancelled or the feed closes. The feed owns the subscription
// lifecycle; the engine has no retry logic.
func (e *Engine) Run(ctx context.Context, f feed.Feed) error {
	queries := []feed.Query{e.RosterQuery(), e.ThreadQuery(), e.InboxQuery()}

	var wg sync.WaitGroup
	cancels := make([]func(), 0, len(queries))
	for _, q := range queries {
		ch, cancelSub := f.Subscribe(q)
		cancels = append(cancels, cancelSub)
		wg.Add(1)
		go func(ch <-chan record.Record) {
			defer wg.Done()
			for r := range ch {
				e.Ingest(r)
			}
		}(ch)
	}

	<-ctx.Done()
	for _, cancelSub := range cancels {
		cancelSub()
	}
	wg.Wait()
	return ctx.Err()
}

// CurrentRoster returns the roster members for a scope, sorted by display
// name, plus whether the roster is stale.
func (e *Engine) CurrentRoster(scopeKey string) ([]roster.Member, bool) {
	snapshot, ok := e.roster.Roster(scopeKey)
	if !ok {
		return nil, true
	}
	return snapshot.SortedMembers(), snapshot.Stale(e.now(), e.staleAfter)
}

// CurrentThreads returns the merged threads for a collection, newest first.
func (e *Engine) CurrentThreads(collectionKey string) []ledger.Thread {
	threads := e.ledger.Threads(collectionKey)
	ledger.SortByCreatedAtDesc(threads)
	return threads
}

// FilteredThreads applies a relevance filter over the collection's threads,
// evaluated at the engine's now. The engine's viewer identity fills in when
// the filter does not name one.
func (e *Engine) FilteredThreads(collectionKey string, f relevance.Filter) []ledger.Thread {
	if f.Viewer == "" {
		f.Viewer = e.viewer
	}
	threads := relevance.Apply(e.CurrentThreads(collectionKey), e.ledger.ReplyStamps, f, e.now())
	ledger.SortByCreatedAtDesc(threads)
	return threads
}

// InboxItems returns the inbox, newest first, annotated with unread state.
func (e *Engine) InboxItems() []inbox.Item {
	return e.inbox.Items()
}

// UnreadCount returns the number of unread inbox items.
func (e *Engine) UnreadCount() int {
	return e.inbox.UnreadCount()
}

// MarkInboxRead advances the inbox read cursor to now and persists it.
func (e *Engine) MarkInboxRead() error {
	if err := e.inbox.MarkRead(); err != nil {
		return err
	}
	e.notify()
	return nil
}

// Subscribe returns a channel that receives a signal whenever a view
// changes, plus a cancel function. Signals are coalesced: a slow listener
// sees at least one signal for any burst of changes.
func (e *Engine) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = ch
	e.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
	return ch, cancel
}

func (e *Engine) notify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
