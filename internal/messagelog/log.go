package messagelog

import "github.com/daemonp/webasto-monitor/internal/types"

const DefaultCapacity = 1000

type Stats struct {
	Total int `json:"total" msgpack:"total"`
	TX    int `json:"tx" msgpack:"tx"`
	RX    int `json:"rx" msgpack:"rx"`
	Error int `json:"error" msgpack:"error"`
}

func (s Stats) add(d types.Direction, n int) Stats {
	s.Total += n
	switch d {
	case types.DirectionTX:
		s.TX += n
	case types.DirectionRX:
		s.RX += n
	case types.DirectionError:
		s.Error += n
	}
	return s
}

// arena tracks how much of a shared backing array has been handed out.
type arena struct {
	used int
}

// Log is a bounded, newest-first message log. A Log is a value: Append and
// Clear return a new Log and never change what an earlier value observes.
//
// Entries are stored oldest-first in items[start:]; reads reverse the index.
// Logs derived from one another share a backing array until a branch is
// detected, at which point the live window is copied. Append is not safe for
// concurrent use on logs sharing history; reads are.
type Log struct {
	items []types.MessageEntry
	start int
	limit int
	stats Stats
	arena *arena
}

// New returns an empty log holding at most limit entries.
func New(limit int) Log {
	if limit <= 0 {
		limit = DefaultCapacity
	}
	return Log{limit: limit}
}

// FromSnapshot builds a log from server-held history, newest first. Entries
// beyond the capacity are the oldest ones and are dropped.
func FromSnapshot(limit int, entries []types.MessageEntry) Log {
	l := New(limit)
	if len(entries) > l.limit {
		entries = entries[:l.limit]
	}
	items := make([]types.MessageEntry, len(entries), 2*l.limit+1)
	for i, e := range entries {
		items[len(entries)-1-i] = e
		l.stats = l.stats.add(e.Direction, 1)
	}
	l.items = items
	l.arena = &arena{used: len(items)}
	return l
}

func (l Log) Limit() int {
	if l.limit <= 0 {
		return DefaultCapacity
	}
	return l.limit
}

func (l Log) Len() int {
	return len(l.items) - l.start
}

// Append inserts e at the head, evicting the oldest entry when the log would
// exceed its capacity.
func (l Log) Append(e types.MessageEntry) Log {
	limit := l.Limit()
	if l.arena == nil || l.arena.used != len(l.items) || len(l.items) == cap(l.items) {
		live := l.items[l.start:]
		items := make([]types.MessageEntry, len(live), 2*limit+1)
		copy(items, live)
		l.items = items
		l.start = 0
		l.arena = &arena{used: len(items)}
	}

	l.items = append(l.items, e)
	l.arena.used++
	l.limit = limit
	l.stats = l.stats.add(e.Direction, 1)

	if l.Len() > limit {
		l.stats = l.stats.add(l.items[l.start].Direction, -1)
		l.start++
	}
	return l
}

// Clear returns an empty log with the same capacity.
func (l Log) Clear() Log {
	return New(l.limit)
}

// At returns the i-th entry, 0 being the newest.
func (l Log) At(i int) types.MessageEntry {
	return l.items[len(l.items)-1-i]
}

// Newest returns the most recent entry.
func (l Log) Newest() (types.MessageEntry, bool) {
	if l.Len() == 0 {
		return types.MessageEntry{}, false
	}
	return l.At(0), true
}

// Entries returns a newest-first copy of the log.
func (l Log) Entries() []types.MessageEntry {
	out := make([]types.MessageEntry, l.Len())
	for i := range out {
		out[i] = l.At(i)
	}
	return out
}

// Stats counts entries over the full log. Total includes SYSTEM entries.
func (l Log) Stats() Stats {
	return l.stats
}
