package feed

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veksa/loom/internal/record"
)

const defaultSubscribeBuffer = 256

type memorySubscription struct {
	id    string
	query Query
	ch    chan record.Record
}

// MemoryFeed is an in-process Feed with fan-out subscriptions. It replays
// nothing: subscribers only see records published after they subscribe.
type MemoryFeed struct {
	mu     sync.Mutex
	subs   map[string]*memorySubscription
	buffer int
	closed bool
}

// NewMemoryFeed creates an empty in-memory feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		subs:   make(map[string]*memorySubscription),
		buffer: defaultSubscribeBuffer,
	}
}

// Subscribe registers a query and returns the record channel plus a cancel
// function. Cancel is idempotent and closes the channel.
func (f *MemoryFeed) Subscribe(q Query) (<-chan record.Record, func()) {
	sub := &memorySubscription{
		id:    uuid.New().String(),
		query: q,
		ch:    make(chan record.Record, f.buffer),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	f.subs[sub.id] = sub
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			if _, ok := f.subs[sub.id]; ok {
				delete(f.subs, sub.id)
				close(sub.ch)
			}
			f.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish delivers the record to every matching subscriber. Slow consumers
// with a full buffer drop the record rather than blocking the publisher.
func (f *MemoryFeed) Publish(r record.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for _, sub := range f.subs {
		if !sub.query.Matches(r) {
			continue
		}
		select {
		case sub.ch <- r:
		default:
		}
	}
}

// PublishAll publishes a batch in order.
func (f *MemoryFeed) PublishAll(records []record.Record) {
	for _, r := range records {
		f.Publish(r)
	}
}

// Close cancels every subscription.
func (f *MemoryFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, sub := range f.subs {
		delete(f.subs, id)
		close(sub.ch)
	}
}

// NewRecord builds a record with a generated id and the current time, for
// publishers that mint records locally.
func NewRecord(author string, kind record.Kind, content string, tags [][]string) record.Record {
	return record.Record{
		ID:        uuid.New().String(),
		Author:    author,
		Kind:      kind,
		CreatedAt: time.Now().UTC().Unix(),
		Content:   content,
		Tags:      tags,
	}
}
