package event

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonp/webasto-monitor/internal/types"
)

var receivedAt = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newTestDecoder() *Decoder {
	return NewDecoderWithClock(func() time.Time { return receivedAt })
}

const allFlags = `{"combustion_air_fan":true,"glow_plug":false,"fuel_pump":true,` +
	`"circulation_pump":true,"vehicle_fan_relay":false,"nozzle_stock_heating":false,` +
	`"flame_indicator":true}`

func TestDecodeKnownEvents(t *testing.T) {
	d := newTestDecoder()

	for _, tc := range []struct {
		name  string
		frame string
		want  Event
	}{
		{
			name:  "connection state",
			frame: `{"type":"CONNECTION_STATE_CHANGED","data":{"oldState":"CONNECTING","newState":"CONNECTED"}}`,
			want:  ConnectionStateChanged{Old: types.ConnectionConnecting, New: types.ConnectionConnected},
		},
		{
			name:  "heater state",
			frame: `{"type":"HEATER_STATE_CHANGED","data":{"oldState":"OFF","newState":"HEATING"}}`,
			want:  HeaterStateChanged{Old: types.HeaterOff, New: "HEATING"},
		},
		{
			name:  "sensors",
			frame: `{"type":"SENSOR_OPERATIONAL_INFO","data":{"temperature":21.5,"voltage":12.4,"heatingPower":2500,"flameDetected":true}}`,
			want: SensorInfo{Sensors: types.SensorSnapshot{
				Temperature: 21.5, Voltage: 12.4, HeatingPower: 2500, FlameDetected: true,
			}},
		},
		{
			name:  "errors",
			frame: `{"type":"WBUS_ERRORS","data":{"count":1,"errors":[{"hex_code":"0x0A","description":"No start","counter":3}]}}`,
			want: ErrorReport{Count: 1, Errors: []types.ErrorRecord{
				{HexCode: "0x0A", Description: "No start", Counter: 3},
			}},
		},
		{
			name:  "empty errors",
			frame: `{"type":"WBUS_ERRORS","data":{"count":0}}`,
			want:  ErrorReport{Errors: []types.ErrorRecord{}},
		},
		{
			name:  "tx",
			frame: `{"type":"TX_RECEIVED","data":{"tx":"F4 03 50 31 96"}}`,
			want:  Traffic{Wire: KindTxReceived, TX: "F4 03 50 31 96", At: receivedAt},
		},
		{
			name:  "command send error",
			frame: `{"type":"COMMAND_SENT_ERRROR","data":{"tx":"F4 03"}}`,
			want:  Traffic{Wire: KindCommandSendError, TX: "F4 03", At: receivedAt},
		},
		{
			name:  "tx as bare string",
			frame: `{"type":"TX_RECEIVED","data":"F4 03 50 03 A4"}`,
			want:  Traffic{Wire: KindTxReceived, TX: "F4 03 50 03 A4", RX: "F4 03 50 03 A4", At: receivedAt},
		},
		{
			name:  "rx as bare string",
			frame: `{"type":"RX_RECEIVED","data":"4F 03 D0 03 9F"}`,
			want:  Traffic{Wire: KindRxReceived, TX: "4F 03 D0 03 9F", RX: "4F 03 D0 03 9F", At: receivedAt},
		},
		{
			name:  "send error as bare string",
			frame: `{"type":"COMMAND_SENT_ERRROR","data":"F4 03 50 03 A4"}`,
			want:  Traffic{Wire: KindCommandSendError, TX: "F4 03 50 03 A4", RX: "F4 03 50 03 A4", At: receivedAt},
		},
		{
			name:  "connection failed",
			frame: `{"type":"CONNECTION_STATE_CHANGED","data":{"oldState":"CONNECTING","newState":"CONNECTION_FAILED"}}`,
			want:  ConnectionStateChanged{Old: types.ConnectionConnecting, New: types.ConnectionDisconnected},
		},
		{
			name:  "unrecognised old state",
			frame: `{"type":"CONNECTION_STATE_CHANGED","data":{"oldState":"REBOOTING","newState":"CONNECTING"}}`,
			want:  ConnectionStateChanged{New: types.ConnectionConnecting},
		},
		{
			name:  "firmware error keys",
			frame: `{"type":"WBUS_ERRORS","data":{"count":1,"errors":[{"code":10,"hexCode":"0x0a","errorName":"E10","errorDescription":"No start","counter":2}]}}`,
			want: ErrorReport{Count: 1, Errors: []types.ErrorRecord{
				{HexCode: "0x0a", Description: "No start", Counter: 2},
			}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := d.Decode([]byte(tc.frame))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeFlagsAcceptsAliases(t *testing.T) {
	frame := `{"type":"SENSOR_ON_OFF_FLAGS","data":{"combustionAirFan":true,"glowPlug":true,` +
		`"fuelPump":false,"circulationPump":false,"vehicleFanRelay":true,"nozzleStockHeating":false,` +
		`"flameIndicator":false,"somethingNew":true}}`

	got, err := newTestDecoder().Decode([]byte(frame))
	require.NoError(t, err)
	flags := got.(ComponentFlags).Flags
	assert.Len(t, flags, types.ComponentCount)
	assert.True(t, flags[types.ComponentGlowPlug])
	assert.True(t, flags[types.ComponentVehicleFanRelay])
	assert.False(t, flags[types.ComponentFuelPump])
}

func TestDecodeFlagsRejectsPartialPayload(t *testing.T) {
	_, err := newTestDecoder().Decode([]byte(`{"type":"SENSOR_ON_OFF_FLAGS","data":{"glow_plug":true}}`))

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, TypeSensorOnOffFlags, decodeErr.Reason)
	assert.Contains(t, err.Error(), "combustion_air_fan")

	got, err := newTestDecoder().Decode([]byte(`{"type":"SENSOR_ON_OFF_FLAGS","data":` + allFlags + `}`))
	require.NoError(t, err)
	assert.Len(t, got.(ComponentFlags).Flags, types.ComponentCount)
}

func TestDecodeUnknownTypeIsNoop(t *testing.T) {
	got, err := newTestDecoder().Decode([]byte(`{"type":"UNKNOWN_FUTURE_EVENT","data":{"x":1}}`))
	require.NoError(t, err)
	assert.Equal(t, Noop{Type: "UNKNOWN_FUTURE_EVENT"}, got)
	assert.Equal(t, KindNoop, got.Kind())
}

func TestDecodeMalformedFrames(t *testing.T) {
	d := newTestDecoder()
	for _, frame := range []string{
		`not json`,
		`{"data":{}}`,
		`{"type":"CONNECTION_STATE_CHANGED","data":{"newState":"LINKED"}}`,
		`{"type":"HEATER_STATE_CHANGED","data":{}}`,
		`{"type":"SENSOR_OPERATIONAL_INFO","data":{"temperature":"hot"}}`,
		`{"type":"TX_RECEIVED"}`,
		`{"type":"RX_RECEIVED","data":42}`,
		`{"type":"WBUS_ERRORS","data":{"errors":[{"hex_code":"01","counter":-1}]}}`,
	} {
		_, err := d.Decode([]byte(frame))
		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr), frame)
	}
}

func TestTrafficFallbacks(t *testing.T) {
	rxOnly := Traffic{Wire: KindCommandSent, RX: "AA"}
	assert.Equal(t, "AA", rxOnly.Outbound())

	txOnly := Traffic{Wire: KindCommandReceived, TX: "BB"}
	assert.Equal(t, "BB", txOnly.Inbound())

	both := Traffic{TX: "01", RX: "02"}
	assert.Equal(t, "01", both.Outbound())
	assert.Equal(t, "02", both.Inbound())
}
