package feed

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/veksa/loom/internal/record"
)

const defaultPollInterval = 500 * time.Millisecond

// LoadLog reads a JSONL record log: one JSON-encoded record per line. Blank
// lines are skipped; a malformed line aborts with its line number so a
// corrupt log is caught up front rather than silently truncated.
func LoadLog(path string) ([]record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record log: %w", err)
	}
	defer f.Close()

	var records []record.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var r record.Record
		if err := json.Unmarshal([]byte(text), &r); err != nil {
			return nil, fmt.Errorf("record log line %d: %w", line, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read record log: %w", err)
	}
	return records, nil
}

// LogFeed tails a JSONL record log. Each subscription replays the lines
// present at subscribe time and then polls for appended lines until
// cancelled. Truncated or rewritten logs are re-read from the start; the
// per-subscription seen set keeps replays duplicate-free on our side even
// though the Feed contract permits duplicates.
type LogFeed struct {
	path string
	poll time.Duration
}

// NewLogFeed creates a feed over the given record log path.
func NewLogFeed(path string, poll time.Duration) *LogFeed {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &LogFeed{path: path, poll: poll}
}

// Subscribe starts a tailing goroutine for the query.
func (f *LogFeed) Subscribe(q Query) (<-chan record.Record, func()) {
	ch := make(chan record.Record, defaultSubscribeBuffer)
	done := make(chan struct{})

	var once sync.Once
	cancel := func() {
		once.Do(func() { close(done) })
	}

	go func() {
		defer close(ch)
		seen := make(map[string]struct{})
		ticker := time.NewTicker(f.poll)
		defer ticker.Stop()

		emit := func() {
			records, err := LoadLog(f.path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return
				}
				return
			}
			for _, r := range records {
				if _, ok := seen[r.ID]; ok {
					continue
				}
				seen[r.ID] = struct{}{}
				if !q.Matches(r) {
					continue
				}
				select {
				case ch <- r:
				case <-done:
					return
				}
			}
		}

		emit()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				emit()
			}
		}
	}()

	return ch, cancel
}

// AppendLog appends records to a JSONL log, creating it if needed.
func AppendLog(path string, records []record.Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open record log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", r.ID, err)
		}
		if _, err := w.Write(append(payload, '\n')); err != nil {
			return fmt.Errorf("failed to append record log: %w", err)
		}
	}
	return w.Flush()
}
