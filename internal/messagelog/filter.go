package messagelog

import (
	"fmt"
	"strings"

	"github.com/daemonp/webasto-monitor/internal/types"
)

// DirectionAll disables the direction predicate.
const DirectionAll types.Direction = "ALL"

type Filter struct {
	Direction types.Direction `json:"direction" msgpack:"direction"`
	Search    string          `json:"search" msgpack:"search"`
}

// NewFilter validates direction (ALL, TX, RX or ERROR, empty meaning ALL) and
// case-folds search.
func NewFilter(direction, search string) (Filter, error) {
	f := Filter{Direction: DirectionAll, Search: strings.ToLower(search)}

	dir := strings.ToUpper(strings.TrimSpace(direction))
	if dir == "" || types.Direction(dir) == DirectionAll {
		return f, nil
	}

	switch d := types.Direction(dir); d {
	case types.DirectionTX, types.DirectionRX, types.DirectionError:
		f.Direction = d
		return f, nil
	default:
		return Filter{}, fmt.Errorf("invalid filter direction %q", direction)
	}
}

// Match applies the direction predicate, then the substring predicate.
func (f Filter) Match(e types.MessageEntry) bool {
	if f.Direction != "" && f.Direction != DirectionAll &&
		!strings.EqualFold(string(e.Direction), string(f.Direction)) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Data), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Apply returns a fresh, newest-first slice of the entries of l matching f.
func Apply(l Log, f Filter) []types.MessageEntry {
	out := make([]types.MessageEntry, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		if e := l.At(i); f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
