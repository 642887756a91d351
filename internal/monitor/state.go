package monitor

import (
	"strings"

	"github.com/daemonp/webasto-monitor/internal/event"
	"github.com/daemonp/webasto-monitor/internal/messagelog"
	"github.com/daemonp/webasto-monitor/internal/types"
)

const (
	descCommandSent      = "Command sent"
	descResponseReceived = "Response received"
	descCommandFailed    = "Command failed"

	sessionOpenedNotice = "WebSocket connected"
)

// State holds every derived view. It is a value; Apply never modifies the
// State it is given.
type State struct {
	Link       types.LinkState       `json:"link"`
	Connection types.ConnectionState `json:"connection"`
	Heater     types.HeaterState     `json:"heater"`
	Sensors    types.SensorSnapshot  `json:"sensors"`
	Components types.ComponentFlags  `json:"components"`
	Errors     []types.ErrorRecord   `json:"errors"`
	Device     types.DeviceInfo      `json:"device"`
	Log        messagelog.Log        `json:"-"`
	Filter     messagelog.Filter     `json:"filter"`
}

func NewState(logCapacity int) State {
	return State{
		Link:       types.LinkDisconnected,
		Connection: types.ConnectionDisconnected,
		Heater:     types.HeaterOff,
		Errors:     []types.ErrorRecord{},
		Log:        messagelog.New(logCapacity),
		Filter:     messagelog.Filter{Direction: messagelog.DirectionAll},
	}
}

// Changes is the set of views an event touched.
type Changes uint16

const (
	ChangedLink Changes = 1 << iota
	ChangedConnection
	ChangedHeater
	ChangedSensors
	ChangedComponents
	ChangedErrors
	ChangedDevice
	ChangedLogAppended
	ChangedLogReset
	ChangedFilter
)

// ChangedVisible covers every change that invalidates the filtered subset.
const ChangedVisible = ChangedLogAppended | ChangedLogReset | ChangedFilter

func (c Changes) Has(flag Changes) bool {
	return c&flag != 0
}

func (c Changes) String() string {
	names := []string{"link", "connection", "heater", "sensors", "components", "errors", "device", "log_appended", "log_reset", "filter"}
	var parts []string
	for i, name := range names {
		if c&(1<<uint(i)) != 0 {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Project folds one event into the state.
func Project(prev State, ev event.Event) State {
	next, _ := Apply(prev, ev)
	return next
}

// Apply is Project that also reports which views changed.
func Apply(s State, ev event.Event) (State, Changes) {
	switch e := ev.(type) {
	case event.ConnectionStateChanged:
		s.Connection = e.New
		return s, ChangedConnection

	case event.HeaterStateChanged:
		s.Heater = e.New
		return s, ChangedHeater

	case event.SensorInfo:
		s.Sensors = e.Sensors
		return s, ChangedSensors

	case event.ComponentFlags:
		s.Components = s.Components.With(e.Flags)
		return s, ChangedComponents

	case event.ErrorReport:
		errs := make([]types.ErrorRecord, len(e.Errors))
		copy(errs, e.Errors)
		s.Errors = errs
		return s, ChangedErrors

	case event.Traffic:
		return applyTraffic(s, e)

	case event.SessionOpened:
		s.Link = types.LinkConnected
		s.Log = s.Log.Append(types.NewMessageEntry(e.At, types.DirectionSystem, sessionOpenedNotice, ""))
		return s, ChangedLink | ChangedLogAppended

	case event.SessionClosed:
		if s.Link == types.LinkDisconnected {
			return s, 0
		}
		s.Link = types.LinkDisconnected
		return s, ChangedLink

	case event.SessionError:
		s.Link = types.LinkError
		return s, ChangedLink

	case event.Notice:
		s.Log = s.Log.Append(types.NewMessageEntry(e.At, types.DirectionSystem, e.Text, ""))
		return s, ChangedLogAppended

	case event.DeviceInfoRefreshed:
		s.Device = e.Info
		return s, ChangedDevice

	case event.LogSnapshot:
		s.Log = messagelog.FromSnapshot(s.Log.Limit(), e.Entries)
		return s, ChangedLogReset

	case event.LogCleared:
		s.Log = s.Log.Clear()
		return s, ChangedLogReset

	case event.FilterChanged:
		s.Filter = e.Filter
		return s, ChangedFilter
	}

	return s, 0
}

func applyTraffic(s State, e event.Traffic) (State, Changes) {
	var entry types.MessageEntry
	switch e.Wire {
	case event.KindTxReceived, event.KindCommandSent:
		entry = types.NewMessageEntry(e.At, types.DirectionTX, e.Outbound(), descCommandSent)
	case event.KindRxReceived, event.KindCommandReceived:
		entry = types.NewMessageEntry(e.At, types.DirectionRX, e.Inbound(), descResponseReceived)
	case event.KindCommandSendError:
		entry = types.NewMessageEntry(e.At, types.DirectionError, e.Outbound(), descCommandFailed)
	default:
		return s, 0
	}
	s.Log = s.Log.Append(entry)
	return s, ChangedLogAppended
}
