package engine

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veksa/loom/internal/cursor"
	"github.com/veksa/loom/internal/feed"
	"github.com/veksa/loom/internal/record"
	"github.com/veksa/loom/internal/relevance"
)

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0).UTC() }
}

func testRecords() []record.Record {
	return []record.Record{
		{
			ID: "roster-1", Author: "alice", Kind: record.KindRoster, CreatedAt: 1000,
			Tags: [][]string{
				{record.TagScope, "team-a"},
				{record.TagMember, "alice", "Alice"},
				{record.TagMember, "bob", "Bob"},
			},
		},
		{
			ID: "root-1", Author: "alice", Kind: record.KindThreadRoot, CreatedAt: 1010,
			Content: "plan",
			Tags: [][]string{
				{record.TagCollection, "proj"},
				{record.TagTitle, "Plan"},
			},
		},
		{
			ID: "reply-1", Author: "bob", Kind: record.KindReply, CreatedAt: 1020,
			Content: "on it",
			Tags:    [][]string{{record.TagReference, "root-1"}},
		},
		{
			ID: "reaction-1", Author: "bob", Kind: record.KindReaction, CreatedAt: 1030,
			Content: "+1",
		},
	}
}

func newTestEngine(t *testing.T, nowUnix int64) *Engine {
	t.Helper()
	return New(cursor.NewMemoryStore(), Options{
		Viewer: "alice",
		Clock:  fixedClock(nowUnix),
	})
}

func TestEngine_IngestBatchPopulatesAllViews(t *testing.T) {
	eng := newTestEngine(t, 900)
	eng.IngestBatch(testRecords())

	members, stale := eng.CurrentRoster("team-a")
	require.Len(t, members, 2)
	require.False(t, stale)

	threads := eng.CurrentThreads("proj")
	require.Len(t, threads, 1)
	require.Equal(t, "Plan", threads[0].Title)
	require.Equal(t, 1, threads[0].ReplyCount)

	items := eng.InboxItems()
	require.Len(t, items, 2)
	require.Equal(t, "reaction-1", items[0].Record.ID)
	require.Equal(t, "reply-1", items[1].Record.ID)

	// The cursor lazily initialized to the clock's 900, so both items are
	// unread.
	require.True(t, items[0].Unread)
	require.True(t, items[1].Unread)
	require.Equal(t, 2, eng.UnreadCount())
}

func TestEngine_UnreadCountAndMarkRead(t *testing.T) {
	current := int64(900)
	eng := New(cursor.NewMemoryStore(), Options{
		Viewer: "alice",
		Clock:  func() time.Time { return time.Unix(current, 0).UTC() },
	})
	eng.IngestBatch(testRecords())

	require.Equal(t, 2, eng.UnreadCount())

	// The visit happens after the newest record, so marking read clears
	// everything.
	current = 2000
	require.NoError(t, eng.MarkInboxRead())
	require.Equal(t, 0, eng.UnreadCount())
}

func TestEngine_OrderInvariance(t *testing.T) {
	records := testRecords()
	records = append(records,
		record.Record{
			ID: "roster-2", Author: "alice", Kind: record.KindRoster, CreatedAt: 1005,
			Tags: [][]string{
				{record.TagScope, "team-a"},
				{record.TagModel, "fast-1", "Alice"},
			},
		},
		record.Record{
			ID: "meta-1", Author: "bob", Kind: record.KindThreadMeta, CreatedAt: 1040,
			Tags: [][]string{
				{record.TagReference, "root-1"},
				{record.TagTitle, "Plan v2"},
			},
		},
		record.Record{
			ID: "reply-2", Author: "alice", Kind: record.KindReply, CreatedAt: 1050,
			Tags: [][]string{{record.TagReference, "root-1"}},
		},
	)

	baseline := newTestEngine(t, 900)
	baseline.IngestBatch(records)
	wantMembers, _ := baseline.CurrentRoster("team-a")
	wantThreads := baseline.CurrentThreads("proj")
	wantItems := baseline.InboxItems()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := make([]record.Record, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		eng := newTestEngine(t, 900)
		eng.IngestBatch(shuffled)

		gotMembers, _ := eng.CurrentRoster("team-a")
		require.Equal(t, wantMembers, gotMembers)
		require.Equal(t, wantThreads, eng.CurrentThreads("proj"))
		require.Equal(t, wantItems, eng.InboxItems())
	}
}

func TestEngine_FilteredThreadsFillsViewer(t *testing.T) {
	now := int64(10000)
	eng := newTestEngine(t, now)
	eng.IngestBatch([]record.Record{
		{
			ID: "root-1", Author: "alice", Kind: record.KindThreadRoot, CreatedAt: now - 7200,
			Tags: [][]string{{record.TagCollection, "proj"}},
		},
		{
			ID: "reply-1", Author: "bob", Kind: record.KindReply, CreatedAt: now - 7200,
			Tags: [][]string{{record.TagReference, "root-1"}},
		},
	})

	// Bob replied two hours ago and alice (the engine viewer) never answered,
	// so the thread needs a response at the default one-hour threshold.
	got := eng.FilteredThreads("proj", relevance.Filter{Mode: relevance.ModeNeedsResponse})
	require.Len(t, got, 1)

	// Once alice answers after bob, the thread drops out.
	eng.Ingest(record.Record{
		ID: "reply-2", Author: "alice", Kind: record.KindReply, CreatedAt: now - 3600,
		Tags: [][]string{{record.TagReference, "root-1"}},
	})
	require.Empty(t, eng.FilteredThreads("proj", relevance.Filter{Mode: relevance.ModeNeedsResponse}))
}

func TestEngine_CurrentRosterUnknownScopeIsStale(t *testing.T) {
	eng := newTestEngine(t, 900)
	members, stale := eng.CurrentRoster("nowhere")
	require.Empty(t, members)
	require.True(t, stale)
}

func TestEngine_IngestDropsInvalidAndUnknown(t *testing.T) {
	eng := newTestEngine(t, 900)
	eng.Ingest(record.Record{ID: "", Kind: record.KindReply, CreatedAt: 1000})
	eng.Ingest(record.Record{ID: "x", Kind: record.Kind(9999), CreatedAt: 1000})
	require.Empty(t, eng.InboxItems())
	require.Empty(t, eng.CurrentThreads(""))
}

func TestEngine_SubscribeNotifiesOnChange(t *testing.T) {
	eng := newTestEngine(t, 900)
	ch, cancel := eng.Subscribe()
	defer cancel()

	eng.Ingest(record.Record{
		ID: "reaction-1", Author: "bob", Kind: record.KindReaction, CreatedAt: 1000,
	})

	select {
	case <-ch:
	default:
		t.Fatal("expected change notification after ingest")
	}

	// Re-ingesting the same record changes nothing and stays silent.
	eng.Ingest(record.Record{
		ID: "reaction-1", Author: "bob", Kind: record.KindReaction, CreatedAt: 1000,
	})
	select {
	case <-ch:
		t.Fatal("unexpected notification for idempotent ingest")
	default:
	}
}

func TestEngine_RunIngestsFromFeed(t *testing.T) {
	eng := newTestEngine(t, 900)
	memory := feed.NewMemoryFeed()
	defer memory.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx, memory) }()

	ch, cancelSub := eng.Subscribe()
	defer cancelSub()

	memory.PublishAll(testRecords())

	waitFor(t, func() bool { return len(eng.InboxItems()) == 2 }, ch)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.Len(t, eng.CurrentThreads("proj"), 1)
	members, _ := eng.CurrentRoster("team-a")
	require.Len(t, members, 2)
}

func waitFor(t *testing.T, cond func() bool, signal <-chan struct{}) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-signal:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("condition not reached in time")
		}
	}
}
