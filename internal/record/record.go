// Package record defines the immutable record model the engine consumes and
// the tag parsing helpers every derived view is built on.
package record

import (
	"strings"
	"time"
)

// Kind is the numeric type code carried by every record.
type Kind int

const (
	// KindMessage is a general message that may mention a collaborator.
	KindMessage Kind = 1

	// KindResponse is a direct response addressed to the viewer.
	KindResponse Kind = 4

	// KindReaction is a lightweight reaction to another record.
	KindReaction Kind = 7

	// KindThreadRoot opens a conversation thread.
	KindThreadRoot Kind = 11

	// KindThreadMeta overlays newer title/summary metadata onto an
	// existing thread, keyed by its reference tag.
	KindThreadMeta Kind = 12

	// KindReply is a threaded reply referencing a thread root.
	KindReply Kind = 1111

	// KindArticle references a long-form article.
	KindArticle Kind = 30023

	// KindRoster carries roster membership and capability tags.
	KindRoster Kind = 30311
)

// Well-known tag names.
const (
	TagReference  = "ref"
	TagMember     = "member"
	TagModel      = "model"
	TagTool       = "tool"
	TagSuggestion = "suggestion"
	TagAgent      = "agent"
	TagTitle      = "title"
	TagSummary    = "summary"
	TagPhase      = "phase"
	TagCollection = "collection"
	TagScope      = "scope"
	TagReplies    = "replies"
)

// Record is an immutable signed unit of data. The engine never mutates a
// record; it only replaces one record with another of the same logical key.
type Record struct {
	ID        string     `json:"id"`
	Author    string     `json:"author"`
	Kind      Kind       `json:"kind"`
	CreatedAt int64      `json:"created_at"`
	Content   string     `json:"content"`
	Tags      [][]string `json:"tags,omitempty"`
}

// Time returns the record's creation time.
func (r Record) Time() time.Time {
	return time.Unix(r.CreatedAt, 0).UTC()
}

// Reference returns the record's reference key, the conventional "points
// back at this other record" tag. ok is false when no reference tag with a
// value is present.
func (r Record) Reference() (string, bool) {
	return Index(r).FirstValue(TagReference)
}

// GroupKey is the deduplication key: the reference tag when present,
// otherwise the record's own id (a group of one).
func (r Record) GroupKey() string {
	if ref, ok := r.Reference(); ok {
		return ref
	}
	return r.ID
}

// Clone returns a copy with its own tag backing arrays.
func Clone(r Record) Record {
	cloned := r
	if len(r.Tags) > 0 {
		cloned.Tags = make([][]string, len(r.Tags))
		for i := range r.Tags {
			cloned.Tags[i] = append([]string(nil), r.Tags[i]...)
		}
	}
	return cloned
}

// Newer reports whether a should replace b under the newest-wins merge rule:
// greater createdAt wins, ties broken by id so the outcome is the same for
// every arrival order. A record never replaces itself.
func Newer(a, b Record) bool {
	if a.ID == b.ID {
		return false
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID > b.ID
}

// Valid reports whether the record carries the minimum shape the engine
// accepts: a non-blank id and a plausible timestamp.
func Valid(r Record) bool {
	return strings.TrimSpace(r.ID) != "" && r.CreatedAt > 0
}
