package messagelog

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonp/webasto-monitor/internal/types"
)

var base = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func entry(i int, dir types.Direction, data string) types.MessageEntry {
	return types.NewMessageEntry(base.Add(time.Duration(i)*time.Second), dir, data, "")
}

func datas(entries []types.MessageEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Data
	}
	return out
}

func TestAppendStatsAndDirectionFilter(t *testing.T) {
	l := New(DefaultCapacity)
	l = l.Append(entry(0, types.DirectionTX, "41 04"))
	l = l.Append(entry(1, types.DirectionRX, "41 04 FF"))

	assert.Equal(t, Stats{Total: 2, TX: 1, RX: 1, Error: 0}, l.Stats())

	f, err := NewFilter("RX", "")
	require.NoError(t, err)
	visible := Apply(l, f)
	require.Len(t, visible, 1)
	assert.Equal(t, "41 04 FF", visible[0].Data)
	assert.Equal(t, types.DirectionRX, visible[0].Direction)
}

func TestCapacityEvictsOldest(t *testing.T) {
	l := New(3)
	for i, d := range []string{"A", "B", "C", "D"} {
		l = l.Append(entry(i, types.DirectionTX, d))
	}

	assert.Equal(t, []string{"D", "C", "B"}, datas(l.Entries()))
	assert.Equal(t, 3, l.Stats().Total)
}

func TestCapacityNeverExceededAndEvictsByAge(t *testing.T) {
	dirs := []types.Direction{types.DirectionTX, types.DirectionRX, types.DirectionError, types.DirectionSystem}
	l := New(7)
	for i := 0; i < 100; i++ {
		l = l.Append(entry(i, dirs[i%len(dirs)], fmt.Sprintf("%03d", i)))
		require.LessOrEqual(t, l.Len(), 7)

		oldest := i - l.Len() + 1
		assert.Equal(t, fmt.Sprintf("%03d", oldest), l.At(l.Len()-1).Data)
		assert.Equal(t, fmt.Sprintf("%03d", i), l.At(0).Data)
		assert.Equal(t, l.Len(), l.Stats().Total)
	}
}

func TestStatsMatchFullRecount(t *testing.T) {
	dirs := []types.Direction{types.DirectionTX, types.DirectionRX, types.DirectionError}
	l := New(5)
	for i := 0; i < 23; i++ {
		l = l.Append(entry(i, dirs[(i*7)%3], "x"))

		var want Stats
		for _, e := range l.Entries() {
			want = want.add(e.Direction, 1)
		}
		assert.Equal(t, want, l.Stats())
		assert.Equal(t, l.Stats().Total, l.Stats().TX+l.Stats().RX+l.Stats().Error)
	}

	l = l.Clear()
	assert.Equal(t, Stats{}, l.Stats())
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 5, l.Limit())
}

func TestEarlierValuesAreUnchanged(t *testing.T) {
	l := New(3)
	l = l.Append(entry(0, types.DirectionTX, "A"))
	l = l.Append(entry(1, types.DirectionTX, "B"))
	before := l

	left := before.Append(entry(2, types.DirectionRX, "left"))
	right := before.Append(entry(3, types.DirectionRX, "right"))
	right = right.Append(entry(4, types.DirectionRX, "more"))

	assert.Equal(t, []string{"B", "A"}, datas(before.Entries()))
	assert.Equal(t, []string{"left", "B", "A"}, datas(left.Entries()))
	assert.Equal(t, []string{"more", "right", "B"}, datas(right.Entries()))
	assert.Equal(t, Stats{Total: 2, TX: 2}, before.Stats())
}

func TestEntriesReturnsCopy(t *testing.T) {
	l := New(3).Append(entry(0, types.DirectionTX, "A"))
	got := l.Entries()
	got[0].Data = "mutated"
	assert.Equal(t, "A", l.At(0).Data)
}

func TestNewest(t *testing.T) {
	_, ok := New(2).Newest()
	assert.False(t, ok)

	e, ok := New(2).Append(entry(0, types.DirectionTX, "A")).Append(entry(1, types.DirectionRX, "B")).Newest()
	require.True(t, ok)
	assert.Equal(t, "B", e.Data)
}

func TestFromSnapshotKeepsServerOrderAndNewest(t *testing.T) {
	snapshot := []types.MessageEntry{
		entry(3, types.DirectionRX, "D"),
		entry(2, types.DirectionTX, "C"),
		entry(1, types.DirectionRX, "B"),
		entry(0, types.DirectionTX, "A"),
	}

	l := FromSnapshot(3, snapshot)
	assert.Equal(t, []string{"D", "C", "B"}, datas(l.Entries()))
	assert.Equal(t, Stats{Total: 3, TX: 1, RX: 2}, l.Stats())

	l = l.Append(entry(4, types.DirectionError, "E"))
	assert.Equal(t, []string{"E", "D", "C"}, datas(l.Entries()))
	assert.Equal(t, Stats{Total: 3, TX: 1, RX: 1, Error: 1}, l.Stats())
}

func TestZeroValueUsesDefaultCapacity(t *testing.T) {
	var l Log
	l = l.Append(entry(0, types.DirectionSystem, "hello"))
	assert.Equal(t, DefaultCapacity, l.Limit())
	assert.Equal(t, Stats{Total: 1}, l.Stats())
}
