package event

import (
	"fmt"
	"time"

	"github.com/daemonp/webasto-monitor/internal/messagelog"
	"github.com/daemonp/webasto-monitor/internal/types"
)

// Wire type tags sent by the controller.
const (
	TypeConnectionStateChanged = "CONNECTION_STATE_CHANGED"
	TypeHeaterStateChanged     = "HEATER_STATE_CHANGED"
	TypeSensorOperationalInfo  = "SENSOR_OPERATIONAL_INFO"
	TypeSensorOnOffFlags       = "SENSOR_ON_OFF_FLAGS"
	TypeWBusErrors             = "WBUS_ERRORS"
	TypeTxReceived             = "TX_RECEIVED"
	TypeRxReceived             = "RX_RECEIVED"
	TypeCommandSent            = "COMMAND_SENT"
	TypeCommandReceived        = "COMMAND_RECEIVED"
	// The firmware spells it this way.
	TypeCommandSentError = "COMMAND_SENT_ERRROR"
)

type Kind int

const (
	KindNoop Kind = iota
	KindConnectionStateChanged
	KindHeaterStateChanged
	KindSensorInfo
	KindComponentFlags
	KindErrorReport
	KindTxReceived
	KindRxReceived
	KindCommandSent
	KindCommandReceived
	KindCommandSendError

	// Produced locally, never on the wire.
	KindSessionOpened
	KindSessionClosed
	KindSessionError
	KindNotice
	KindDeviceInfo
	KindLogSnapshot
	KindLogCleared
	KindFilterChanged
)

var kindNames = map[Kind]string{
	KindNoop:                   "noop",
	KindConnectionStateChanged: "connection_state_changed",
	KindHeaterStateChanged:     "heater_state_changed",
	KindSensorInfo:             "sensor_operational_info",
	KindComponentFlags:         "component_flags",
	KindErrorReport:            "error_report",
	KindTxReceived:             "tx_received",
	KindRxReceived:             "rx_received",
	KindCommandSent:            "command_sent",
	KindCommandReceived:        "command_received",
	KindCommandSendError:       "command_send_error",
	KindSessionOpened:          "session_opened",
	KindSessionClosed:          "session_closed",
	KindSessionError:           "session_error",
	KindNotice:                 "notice",
	KindDeviceInfo:             "device_info",
	KindLogSnapshot:            "log_snapshot",
	KindLogCleared:             "log_cleared",
	KindFilterChanged:          "filter_changed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind_%d", int(k))
}

type Event interface {
	Kind() Kind
}

type ConnectionStateChanged struct {
	Old types.ConnectionState
	New types.ConnectionState
}

func (ConnectionStateChanged) Kind() Kind { return KindConnectionStateChanged }

type HeaterStateChanged struct {
	Old types.HeaterState
	New types.HeaterState
}

func (HeaterStateChanged) Kind() Kind { return KindHeaterStateChanged }

type SensorInfo struct {
	Sensors types.SensorSnapshot
}

func (SensorInfo) Kind() Kind { return KindSensorInfo }

// ComponentFlags carries only the components the payload named.
type ComponentFlags struct {
	Flags map[types.Component]bool
}

func (ComponentFlags) Kind() Kind { return KindComponentFlags }

type ErrorReport struct {
	Count  int
	Errors []types.ErrorRecord
}

func (ErrorReport) Kind() Kind { return KindErrorReport }

// Traffic is raw protocol traffic. Wire is one of KindTxReceived,
// KindRxReceived, KindCommandSent, KindCommandReceived or KindCommandSendError.
type Traffic struct {
	Wire Kind
	TX   string
	RX   string
	At   time.Time
}

func (t Traffic) Kind() Kind { return t.Wire }

// Outbound is the transmitted frame, falling back to RX.
func (t Traffic) Outbound() string {
	if t.TX != "" {
		return t.TX
	}
	return t.RX
}

// Inbound is the received frame, falling back to TX.
func (t Traffic) Inbound() string {
	if t.RX != "" {
		return t.RX
	}
	return t.TX
}

// Noop is any frame whose type this client does not know.
type Noop struct {
	Type string
}

func (Noop) Kind() Kind { return KindNoop }

type SessionOpened struct {
	At time.Time
}

func (SessionOpened) Kind() Kind { return KindSessionOpened }

type SessionClosed struct {
	Err error
	At  time.Time
}

func (SessionClosed) Kind() Kind { return KindSessionClosed }

type SessionError struct {
	Err error
	At  time.Time
}

func (SessionError) Kind() Kind { return KindSessionError }

// Notice is a SYSTEM line for the message log.
type Notice struct {
	Text string
	At   time.Time
}

func (Notice) Kind() Kind { return KindNotice }

type DeviceInfoRefreshed struct {
	Info types.DeviceInfo
}

func (DeviceInfoRefreshed) Kind() Kind { return KindDeviceInfo }

// LogSnapshot replaces the message log with server-held history, newest first.
type LogSnapshot struct {
	Entries []types.MessageEntry
}

func (LogSnapshot) Kind() Kind { return KindLogSnapshot }

type LogCleared struct{}

func (LogCleared) Kind() Kind { return KindLogCleared }

type FilterChanged struct {
	Filter messagelog.Filter
}

func (FilterChanged) Kind() Kind { return KindFilterChanged }
