package roster

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veksa/loom/internal/record"
)

func rosterRecord(id string, createdAt int64, tags [][]string) record.Record {
	return record.Record{
		ID:        id,
		Author:    "owner",
		Kind:      record.KindRoster,
		CreatedAt: createdAt,
		Tags:      append([][]string{{record.TagScope, "sim-1"}}, tags...),
	}
}

func TestRoster_MergeScenario(t *testing.T) {
	// Bob never appears in a membership tag, so his tool tag is dropped.
	agg := NewAggregator()
	agg.Ingest(rosterRecord("r1", 1700000000, [][]string{
		{"member", "pk1", "Alice"},
		{"model", "gpt-4", "Alice"},
		{"tool", "search", "Alice"},
		{"tool", "search", "Bob"},
	}))

	roster, ok := agg.Roster("sim-1")
	require.True(t, ok)
	require.Len(t, roster.Members, 1)

	alice := roster.Members["Alice"]
	require.Equal(t, "pk1", alice.Identity)
	require.Equal(t, "Alice", alice.DisplayName)
	require.Equal(t, "gpt-4", alice.Model)
	require.Equal(t, []string{"search"}, alice.Tools)
	require.False(t, alice.IsGlobal)
}

func TestRoster_TagFamiliesAcrossRecords(t *testing.T) {
	// Membership in one record, capabilities in later updates.
	agg := NewAggregator()
	agg.Ingest(rosterRecord("r1", 100, [][]string{
		{"member", "pk1", "Alice", "global"},
	}))
	agg.Ingest(rosterRecord("r2", 200, [][]string{
		{"model", "gpt-4", "Alice"},
		{"tool", "search", "Alice"},
		{"tool", "compute", "Alice"},
	}))

	roster, ok := agg.Roster("sim-1")
	require.True(t, ok)
	alice := roster.Members["Alice"]
	require.True(t, alice.IsGlobal)
	require.Equal(t, "gpt-4", alice.Model)
	require.Equal(t, []string{"compute", "search"}, alice.Tools)
	require.EqualValues(t, 200, roster.CreatedAt)
}

func TestRoster_IngestIdempotent(t *testing.T) {
	agg := NewAggregator()
	rec := rosterRecord("r1", 100, [][]string{
		{"member", "pk1", "Alice"},
		{"tool", "search", "Alice"},
	})
	for i := 0; i < 5; i++ {
		agg.Ingest(rec)
	}

	roster, ok := agg.Roster("sim-1")
	require.True(t, ok)
	require.Len(t, roster.Members, 1)
	require.Equal(t, []string{"search"}, roster.Members["Alice"].Tools)
}

func TestRoster_OrderInvariantAcrossPermutations(t *testing.T) {
	records := []record.Record{
		rosterRecord("r1", 100, [][]string{{"member", "pk1", "Alice"}}),
		rosterRecord("r2", 110, [][]string{{"member", "pk2", "Bob"}}),
		rosterRecord("r3", 120, [][]string{{"model", "gpt-4", "Alice", "Bob"}}),
		rosterRecord("r4", 130, [][]string{{"tool", "search", "Alice"}, {"tool", "compute", "Bob"}}),
	}

	reference := NewAggregator()
	for _, r := range records {
		reference.Ingest(r)
	}
	want, ok := reference.Roster("sim-1")
	require.True(t, ok)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]record.Record(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		agg := NewAggregator()
		for _, r := range shuffled {
			agg.Ingest(r)
		}
		got, ok := agg.Roster("sim-1")
		require.True(t, ok)
		require.Equal(t, want.Members, got.Members)
		require.Equal(t, want.CreatedAt, got.CreatedAt)
	}
}

func TestRoster_MissingScopeSkipped(t *testing.T) {
	agg := NewAggregator()
	agg.Ingest(record.Record{
		ID:        "r1",
		Kind:      record.KindRoster,
		CreatedAt: 100,
		Tags:      [][]string{{"member", "pk1", "Alice"}},
	})

	_, ok := agg.Roster("sim-1")
	require.False(t, ok)
	require.Empty(t, agg.Scopes())
}

func TestRoster_Staleness(t *testing.T) {
	created := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	roster := Roster{CreatedAt: created.Unix()}

	require.False(t, roster.Stale(created.Add(4*time.Minute), 5*time.Minute))
	require.True(t, roster.Stale(created.Add(6*time.Minute), 5*time.Minute))
	// Zero threshold falls back to the default.
	require.False(t, roster.Stale(created.Add(4*time.Minute), 0))
}

func TestRoster_SortedMembers(t *testing.T) {
	agg := NewAggregator()
	agg.Ingest(rosterRecord("r1", 100, [][]string{
		{"member", "pk2", "Bob"},
		{"member", "pk1", "Alice"},
	}))

	roster, ok := agg.Roster("sim-1")
	require.True(t, ok)
	members := roster.SortedMembers()
	require.Len(t, members, 2)
	require.Equal(t, "Alice", members[0].DisplayName)
	require.Equal(t, "Bob", members[1].DisplayName)
}
