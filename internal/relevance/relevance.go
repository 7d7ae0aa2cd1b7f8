// Package relevance applies time-windowed predicates over thread views.
//
// The two filter families point in opposite directions: the activity filter
// keeps threads whose latest reply is recent, the needs-response filter
// keeps threads whose latest unanswered other-party reply has aged past the
// window. Both evaluate against the caller's "now", nothing is cached.
package relevance

import (
	"time"

	"github.com/veksa/loom/internal/ledger"
)

// Mode selects the filter family.
type Mode int

const (
	// ModeActivity keeps threads with a reply (or root) inside the window.
	ModeActivity Mode = iota

	// ModeNeedsResponse keeps threads where the viewer has not answered
	// the latest other-party reply and the gap has aged past the window.
	ModeNeedsResponse
)

// DefaultWindow is the default threshold for both filter families.
const DefaultWindow = time.Hour

// Filter parameterizes one evaluation.
type Filter struct {
	Mode      Mode
	Threshold time.Duration

	// Viewer is the current viewer identity, required by ModeNeedsResponse.
	// When empty that mode is a no-op and threads pass unfiltered.
	Viewer string
}

// StampSource yields the visible reply stamps for a thread id.
type StampSource func(threadID string) []ledger.ReplyStamp

// Apply evaluates the filter over the given threads at now.
func Apply(threads []ledger.Thread, stamps StampSource, f Filter, now time.Time) []ledger.Thread {
	threshold := f.Threshold
	if threshold <= 0 {
		threshold = DefaultWindow
	}

	switch f.Mode {
	case ModeNeedsResponse:
		if f.Viewer == "" {
			return threads
		}
		out := make([]ledger.Thread, 0, len(threads))
		for _, thread := range threads {
			if needsResponse(stamps(thread.ID), f.Viewer, now, threshold) {
				out = append(out, thread)
			}
		}
		return out

	default:
		out := make([]ledger.Thread, 0, len(threads))
		for _, thread := range threads {
			if active(thread, stamps(thread.ID), now, threshold) {
				out = append(out, thread)
			}
		}
		return out
	}
}

// active reports whether the thread saw a reply inside the window. A thread
// with no replies yet falls back to its own creation time.
func active(thread ledger.Thread, stamps []ledger.ReplyStamp, now time.Time, threshold time.Duration) bool {
	last := thread.CreatedAt
	for _, stamp := range stamps {
		if stamp.CreatedAt > last {
			last = stamp.CreatedAt
		}
	}
	return now.UTC().Sub(time.Unix(last, 0)) <= threshold
}

// needsResponse applies the inverted comparison: the unanswered other-party
// reply must have aged past the threshold, not fall inside it.
func needsResponse(stamps []ledger.ReplyStamp, viewer string, now time.Time, threshold time.Duration) bool {
	var lastOther, lastViewer int64
	hasOther, hasViewer := false, false
	for _, stamp := range stamps {
		if stamp.Author == viewer {
			if stamp.CreatedAt > lastViewer {
				lastViewer = stamp.CreatedAt
			}
			hasViewer = true
			continue
		}
		if stamp.CreatedAt > lastOther {
			lastOther = stamp.CreatedAt
		}
		hasOther = true
	}

	if !hasOther {
		return false
	}
	if hasViewer && lastViewer > lastOther {
		return false
	}
	return now.UTC().Sub(time.Unix(lastOther, 0)) >= threshold
}
