package cursor

import (
	"sync"
	"time"

	"github.com/veksa/loom/internal/logging"
	"github.com/veksa/loom/internal/record"
)

// Tracker owns one view's read cursor. The cursor is lazily initialized to
// "now" on first access when nothing is persisted, mutated only by MarkRead,
// and never deleted. A store load failure is treated as "no persisted
// cursor" and falls back to the lazy default.
type Tracker struct {
	store Store
	key   string
	now   func() time.Time

	mu     sync.Mutex
	loaded bool
	cursor float64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the tracker's time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a tracker for the given view key.
func NewTracker(store Store, key string, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store: store,
		key:   key,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Key returns the logical view key this tracker persists under.
func (t *Tracker) Key() string { return t.key }

// Cursor returns the current read cursor as a Unix timestamp.
func (t *Tracker) Cursor() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursorLocked()
}

func (t *Tracker) cursorLocked() float64 {
	if t.loaded {
		return t.cursor
	}
	t.loaded = true

	if t.store != nil {
		value, ok, err := t.store.Load(t.key)
		if err != nil {
			logger := logging.WithView(t.key)
			logger.Debug().Err(err).Msg("cursor load failed, using default")
		} else if ok {
			t.cursor = value
			return t.cursor
		}
	}

	// First use: everything before now counts as read.
	t.cursor = float64(t.now().UTC().Unix())
	if t.store != nil {
		if err := t.store.Save(t.key, t.cursor); err != nil {
			logger := logging.WithView(t.key)
			logger.Debug().Err(err).Msg("cursor save failed")
		}
	}
	return t.cursor
}

// MarkRead persists at as the new cursor. The value is accepted as-is;
// callers are expected to pass now. Save failure leaves the in-memory value
// updated and returns the error so persistence stays visible at call sites.
func (t *Tracker) MarkRead(at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.loaded = true
	t.cursor = float64(at.UTC().Unix())
	if t.store == nil {
		return nil
	}
	return t.store.Save(t.key, t.cursor)
}

// IsUnread reports whether the record was created after the cursor.
func (t *Tracker) IsUnread(r record.Record) bool {
	return float64(r.CreatedAt) > t.Cursor()
}
