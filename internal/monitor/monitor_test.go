package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonp/webasto-monitor/internal/event"
	"github.com/daemonp/webasto-monitor/internal/messagelog"
	"github.com/daemonp/webasto-monitor/internal/types"
)

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
	seen  []Changes
}

func (r *recorder) record(s Snapshot, c Changes) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
	r.seen = append(r.seen, c)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

func startMonitor(t *testing.T, capacity int) (*Monitor, chan event.Event, *recorder) {
	t.Helper()
	m := New(capacity, nil, nil)
	rec := &recorder{}
	m.Subscribe(rec.record)

	stream := make(chan event.Event)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx, stream)
	t.Cleanup(func() {
		cancel()
		<-m.Done()
	})
	return m, stream, rec
}

func TestStreamEventsProjectedInOrder(t *testing.T) {
	m, stream, rec := startMonitor(t, 1000)

	stream <- event.Traffic{Wire: event.KindTxReceived, TX: "41 04", At: at}
	stream <- event.Traffic{Wire: event.KindRxReceived, RX: "41 04 FF", At: at.Add(time.Millisecond)}
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, messagelog.Stats{Total: 2, TX: 1, RX: 1}, snap.Stats)
	assert.Equal(t, uint64(2), snap.Seq)
	assert.Equal(t, "41 04 FF", snap.Visible[0].Data)
	assert.Equal(t, "41 04", snap.Visible[1].Data)

	require.NoError(t, m.SetFilter("rx", ""))
	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)

	snap = m.Snapshot()
	require.Len(t, snap.Visible, 1)
	assert.Equal(t, types.DirectionRX, snap.Visible[0].Direction)
	assert.Equal(t, 2, snap.Stats.Total)
}

func TestUnknownEventLeavesStateAndKeepsProcessing(t *testing.T) {
	m, stream, rec := startMonitor(t, 10)

	stream <- event.HeaterStateChanged{New: "HEATING"}
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	before := m.Snapshot()

	decoded, err := event.NewDecoder().Decode([]byte(`{"type":"UNKNOWN_FUTURE_EVENT","data":{}}`))
	require.NoError(t, err)
	stream <- decoded
	stream <- event.SensorInfo{Sensors: types.SensorSnapshot{Temperature: 42}}

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	after := m.Snapshot()
	assert.Equal(t, before.Seq+1, after.Seq)
	assert.Equal(t, before.State.Heater, after.State.Heater)
	assert.Equal(t, 42.0, after.State.Sensors.Temperature)
	assert.Equal(t, ChangedSensors, rec.seen[1])
}

func TestSubmittedEventsAndNotice(t *testing.T) {
	m, stream, rec := startMonitor(t, 10)
	m.now = func() time.Time { return at }

	stream <- event.SessionOpened{At: at}
	require.NoError(t, m.Notice("Connection request sent"))
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)

	snap := rec.last()
	assert.Equal(t, types.LinkConnected, snap.State.Link)
	require.Len(t, snap.Visible, 2)
	assert.Equal(t, "Connection request sent", snap.Visible[0].Data)
	assert.Equal(t, types.Timestamp(at), snap.Visible[0].Timestamp)

	require.NoError(t, m.ClearLog())
	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, m.Snapshot().Visible)
	assert.Equal(t, messagelog.Stats{}, m.Snapshot().Stats)
	assert.True(t, rec.last().State.Link == types.LinkConnected)
}

func TestLoadSnapshotDoesNotBlockAppends(t *testing.T) {
	m, stream, rec := startMonitor(t, 10)

	stream <- event.Traffic{Wire: event.KindCommandSent, TX: "live", At: at}
	require.NoError(t, m.LoadSnapshot([]types.MessageEntry{
		types.NewMessageEntry(at, types.DirectionRX, "history", ""),
	}))
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "history", m.Snapshot().Visible[0].Data)

	stream <- event.Traffic{Wire: event.KindCommandSent, TX: "after", At: at}

	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "after", m.Snapshot().Visible[0].Data)
}

func TestSetFilterRejectsInvalidDirection(t *testing.T) {
	m := New(10, nil, nil)
	assert.Error(t, m.SetFilter("SIDEWAYS", ""))
}

func TestSubmitAfterStop(t *testing.T) {
	m := New(10, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Run(ctx, nil), context.Canceled)

	// The buffered queue may still accept; once full, Submit reports the stop.
	var err error
	for i := 0; i <= submitBuffer && err == nil; i++ {
		err = m.Submit(event.LogCleared{})
	}
	assert.ErrorIs(t, err, ErrStopped)
}

func TestClosedStreamKeepsServingSubmissions(t *testing.T) {
	m := New(10, nil, nil)
	rec := &recorder{}
	m.Subscribe(rec.record)

	stream := make(chan event.Event)
	close(stream)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx, stream)

	require.NoError(t, m.Notice("still here"))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
}
