package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/daemonp/webasto-monitor/internal/types"
)

// DecodeError reports a frame that could not be turned into an Event.
type DecodeError struct {
	Frame  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode frame: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type stateChange struct {
	OldState string `json:"oldState"`
	NewState string `json:"newState"`
}

type errorsPayload struct {
	Count  int                 `json:"count"`
	Errors []types.ErrorRecord `json:"errors"`
}

type trafficPayload struct {
	TX string `json:"tx"`
	RX string `json:"rx"`
}

var trafficKinds = map[string]Kind{
	TypeTxReceived:       KindTxReceived,
	TypeRxReceived:       KindRxReceived,
	TypeCommandSent:      KindCommandSent,
	TypeCommandReceived:  KindCommandReceived,
	TypeCommandSentError: KindCommandSendError,
}

type Decoder struct {
	now func() time.Time
}

func NewDecoder() *Decoder {
	return &Decoder{now: time.Now}
}

// NewDecoderWithClock stamps traffic events using now.
func NewDecoderWithClock(now func() time.Time) *Decoder {
	return &Decoder{now: now}
}

// Decode parses one stream frame. Unknown types yield Noop; structurally
// invalid frames and unparseable payloads yield a *DecodeError.
func (d *Decoder) Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, d.fail(frame, "invalid json", err)
	}
	if env.Type == "" {
		return nil, d.fail(frame, "missing type", nil)
	}

	if wire, ok := trafficKinds[env.Type]; ok {
		p, err := d.traffic(env)
		if err != nil {
			return nil, d.fail(frame, env.Type, err)
		}
		return Traffic{Wire: wire, TX: p.TX, RX: p.RX, At: d.now()}, nil
	}

	var (
		ev  Event
		err error
	)
	switch env.Type {
	case TypeConnectionStateChanged:
		ev, err = d.connectionState(env)
	case TypeHeaterStateChanged:
		ev, err = d.heaterState(env)
	case TypeSensorOperationalInfo:
		var s types.SensorSnapshot
		err = d.payload(env, &s)
		ev = SensorInfo{Sensors: s}
	case TypeSensorOnOffFlags:
		ev, err = d.flags(env)
	case TypeWBusErrors:
		ev, err = d.errors(env)
	default:
		return Noop{Type: env.Type}, nil
	}
	if err != nil {
		return nil, d.fail(frame, env.Type, err)
	}
	return ev, nil
}

func (d *Decoder) fail(frame []byte, reason string, err error) *DecodeError {
	return &DecodeError{Frame: string(frame), Reason: reason, Err: err}
}

func (d *Decoder) payload(env envelope, v interface{}) error {
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return fmt.Errorf("missing data")
	}
	return json.Unmarshal(env.Data, v)
}

// traffic accepts an object {tx, rx} or a bare hex string, which then stands
// for both directions.
func (d *Decoder) traffic(env envelope) (trafficPayload, error) {
	var p trafficPayload
	if len(env.Data) > 0 && env.Data[0] == '"' {
		var hex string
		if err := json.Unmarshal(env.Data, &hex); err != nil {
			return p, err
		}
		return trafficPayload{TX: hex, RX: hex}, nil
	}
	err := d.payload(env, &p)
	return p, err
}

func (d *Decoder) connectionState(env envelope) (Event, error) {
	var p stateChange
	if err := d.payload(env, &p); err != nil {
		return nil, err
	}
	next, err := types.ParseConnectionState(p.NewState)
	if err != nil {
		return nil, err
	}
	ev := ConnectionStateChanged{New: next}
	// oldState is informational only.
	if old, err := types.ParseConnectionState(p.OldState); err == nil {
		ev.Old = old
	}
	return ev, nil
}

func (d *Decoder) heaterState(env envelope) (Event, error) {
	var p stateChange
	if err := d.payload(env, &p); err != nil {
		return nil, err
	}
	if p.NewState == "" {
		return nil, fmt.Errorf("missing newState")
	}
	return HeaterStateChanged{Old: types.HeaterState(p.OldState), New: types.HeaterState(p.NewState)}, nil
}

func (d *Decoder) flags(env envelope) (Event, error) {
	var raw map[string]bool
	if err := d.payload(env, &raw); err != nil {
		return nil, err
	}

	flags := make(map[types.Component]bool, types.ComponentCount)
	for _, c := range types.Components() {
		active, ok := raw[c.Key()]
		if !ok {
			active, ok = raw[c.Alias()]
		}
		if !ok {
			return nil, fmt.Errorf("missing component flag %s", c.Key())
		}
		flags[c] = active
	}
	return ComponentFlags{Flags: flags}, nil
}

func (d *Decoder) errors(env envelope) (Event, error) {
	var p errorsPayload
	if err := d.payload(env, &p); err != nil {
		return nil, err
	}
	for _, rec := range p.Errors {
		if rec.Counter < 0 {
			return nil, fmt.Errorf("negative counter for error %s", rec.HexCode)
		}
	}
	if p.Errors == nil {
		p.Errors = []types.ErrorRecord{}
	}
	return ErrorReport{Count: p.Count, Errors: p.Errors}, nil
}
