package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/daemonp/webasto-monitor/internal/event"
	"github.com/daemonp/webasto-monitor/internal/log"
	"github.com/daemonp/webasto-monitor/internal/messagelog"
	"github.com/daemonp/webasto-monitor/internal/metrics"
	"github.com/daemonp/webasto-monitor/internal/types"
)

const submitBuffer = 100

var ErrStopped = errors.New("monitor stopped")

// Snapshot is an immutable view of the projected state together with the
// filtered message subset and stats over the full log.
type Snapshot struct {
	State   State                `json:"state"`
	Visible []types.MessageEntry `json:"visible"`
	Stats   messagelog.Stats     `json:"stats"`
	Seq     uint64               `json:"seq"`
}

// Subscriber is called on the monitor goroutine after each state change and
// must not block.
type Subscriber func(Snapshot, Changes)

// Monitor serializes every projection on one goroutine.
type Monitor struct {
	log     *log.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	submit chan event.Event
	done   chan struct{}

	mu       sync.RWMutex
	snapshot Snapshot

	subMu       sync.Mutex
	subscribers []Subscriber
}

func New(logCapacity int, logger *log.Logger, m *metrics.Metrics) *Monitor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Monitor{
		log:     logger,
		metrics: m,
		now:     time.Now,
		submit:  make(chan event.Event, submitBuffer),
		done:    make(chan struct{}),
		snapshot: Snapshot{
			State:   NewState(logCapacity),
			Visible: []types.MessageEntry{},
		},
	}
}

// Run consumes the stream and submitted events until ctx is done. Stream
// events are projected in arrival order. A closed stream leaves the
// monitor serving submitted events.
func (m *Monitor) Run(ctx context.Context, stream <-chan event.Event) error {
	defer close(m.done)
	m.log.Info("Monitor started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info("Monitor stopped")
			return ctx.Err()
		case ev, ok := <-stream:
			if !ok {
				m.log.Debug("Event stream closed")
				stream = nil
				continue
			}
			m.handle(ev)
		case ev := <-m.submit:
			m.handle(ev)
		}
	}
}

func (m *Monitor) handle(ev event.Event) {
	m.mu.RLock()
	cur := m.snapshot
	m.mu.RUnlock()

	next, changes := Apply(cur.State, ev)
	if changes == 0 {
		m.log.Trace("Event %s changed nothing", ev.Kind())
		return
	}

	snap := Snapshot{
		State:   next,
		Visible: cur.Visible,
		Stats:   cur.Stats,
		Seq:     cur.Seq + 1,
	}
	if changes.Has(ChangedVisible) {
		snap.Visible = messagelog.Apply(next.Log, next.Filter)
		snap.Stats = next.Log.Stats()
		m.metrics.SetLogSize(next.Log.Len())
	}
	m.log.Debug("Event %s changed %s", ev.Kind(), changes)

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()

	m.subMu.Lock()
	subs := m.subscribers
	m.subMu.Unlock()
	for _, fn := range subs {
		fn(snap, changes)
	}
}

// Snapshot returns the latest published snapshot.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

func (m *Monitor) Subscribe(fn Subscriber) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	subs := make([]Subscriber, len(m.subscribers), len(m.subscribers)+1)
	copy(subs, m.subscribers)
	m.subscribers = append(subs, fn)
}

// Done is closed once Run has returned.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Submit queues ev behind any events already waiting.
func (m *Monitor) Submit(ev event.Event) error {
	select {
	case m.submit <- ev:
		return nil
	case <-m.done:
		return ErrStopped
	}
}

// SetFilter validates and installs a new message filter.
func (m *Monitor) SetFilter(direction, search string) error {
	f, err := messagelog.NewFilter(direction, search)
	if err != nil {
		return err
	}
	return m.Submit(event.FilterChanged{Filter: f})
}

func (m *Monitor) ClearLog() error {
	return m.Submit(event.LogCleared{})
}

// LoadSnapshot replaces the log with server history, newest first.
func (m *Monitor) LoadSnapshot(entries []types.MessageEntry) error {
	return m.Submit(event.LogSnapshot{Entries: entries})
}

// Notice appends a SYSTEM line to the message log.
func (m *Monitor) Notice(text string) error {
	return m.Submit(event.Notice{Text: text, At: m.now()})
}
