// Package roster folds roster records into composite member entities.
//
// A roster record carries up to three tag families: membership tags create
// entities, capability tags annotate entities that already exist. The fold
// runs the families in a fixed order (membership, then model, then tool)
// over the full accumulated tag set, so re-running it is idempotent and the
// result does not depend on tag order within a family.
package roster

import (
	"sort"
	"sync"
	"time"

	"github.com/veksa/loom/internal/record"
)

// DefaultStaleAfter is how long a roster stays fresh without a new record.
const DefaultStaleAfter = 5 * time.Minute

// Member is a composite roster entity assembled from several tag families.
type Member struct {
	Identity    string
	DisplayName string
	IsGlobal    bool
	Model       string   // optional model selection
	Tools       []string // sorted set of tool names
}

// Roster is a value-only snapshot of one scope's members.
type Roster struct {
	Scope     string
	CreatedAt int64 // createdAt of the newest contributing record
	Members   map[string]Member
}

// Stale reports whether the roster should be treated as offline: true once
// staleAfter has elapsed since the owning record's timestamp. Pure function
// of the supplied clock, no background timers.
func (r Roster) Stale(now time.Time, staleAfter time.Duration) bool {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return now.UTC().Sub(time.Unix(r.CreatedAt, 0)) > staleAfter
}

// SortedMembers returns the members ordered by display name.
func (r Roster) SortedMembers() []Member {
	members := make([]Member, 0, len(r.Members))
	for _, m := range r.Members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].DisplayName < members[j].DisplayName
	})
	return members
}

// Aggregator accumulates roster records per scope key and folds them into
// Roster snapshots on demand. Ingest may run concurrently with Roster.
type Aggregator struct {
	mu     sync.RWMutex
	scopes map[string]map[string]record.Record // scope -> record id -> record
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{scopes: make(map[string]map[string]record.Record)}
}

// Ingest accepts a roster record. Records without a scope tag or with the
// wrong kind are skipped; re-ingesting a record id is a no-op.
func (a *Aggregator) Ingest(r record.Record) {
	if r.Kind != record.KindRoster || !record.Valid(r) {
		return
	}
	scope, ok := record.Index(r).FirstValueTrimmed(record.TagScope)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	records := a.scopes[scope]
	if records == nil {
		records = make(map[string]record.Record)
		a.scopes[scope] = records
	}
	if _, exists := records[r.ID]; exists {
		return
	}
	records[r.ID] = record.Clone(r)
}

// Scopes returns the known scope keys, sorted.
func (a *Aggregator) Scopes() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	scopes := make([]string, 0, len(a.scopes))
	for scope := range a.scopes {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes
}

// Roster folds the accumulated records for the scope from scratch. ok is
// false when no roster record for the scope has arrived.
func (a *Aggregator) Roster(scope string) (Roster, bool) {
	a.mu.RLock()
	records := make([]record.Record, 0, len(a.scopes[scope]))
	for _, r := range a.scopes[scope] {
		records = append(records, r)
	}
	a.mu.RUnlock()

	if len(records) == 0 {
		return Roster{}, false
	}

	// Deterministic fold order: records by (createdAt, id). The result is
	// order-independent within each pass, sorting just keeps overwrite
	// outcomes stable when two records disagree.
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})

	return fold(scope, records), true
}

// fold runs the three passes in membership -> model -> tool order. The
// capability passes require membership entities to already exist; tags
// naming unknown members are dropped.
func fold(scope string, records []record.Record) Roster {
	parsed := make([]record.ParsedTags, len(records))
	createdAt := int64(0)
	for i, r := range records {
		parsed[i] = record.Parse(r)
		if r.CreatedAt > createdAt {
			createdAt = r.CreatedAt
		}
	}

	members := make(map[string]Member)
	for _, tags := range parsed {
		for _, m := range tags.Memberships {
			members[m.DisplayName] = Member{
				Identity:    m.Identity,
				DisplayName: m.DisplayName,
				IsGlobal:    m.Global,
			}
		}
	}

	for _, tags := range parsed {
		for _, cap := range tags.Capabilities {
			if cap.Family != record.TagModel {
				continue
			}
			for _, target := range cap.Targets {
				member, ok := members[target]
				if !ok {
					continue
				}
				member.Model = cap.Value
				members[target] = member
			}
		}
	}

	toolSets := make(map[string]map[string]struct{})
	for _, tags := range parsed {
		for _, cap := range tags.Capabilities {
			if cap.Family != record.TagTool {
				continue
			}
			for _, target := range cap.Targets {
				if _, ok := members[target]; !ok {
					continue
				}
				set := toolSets[target]
				if set == nil {
					set = make(map[string]struct{})
					toolSets[target] = set
				}
				set[cap.Value] = struct{}{}
			}
		}
	}
	for name, set := range toolSets {
		member := members[name]
		tools := make([]string, 0, len(set))
		for tool := range set {
			tools = append(tools, tool)
		}
		sort.Strings(tools)
		member.Tools = tools
		members[name] = member
	}

	return Roster{Scope: scope, CreatedAt: createdAt, Members: members}
}
