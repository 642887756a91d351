package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionState(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want ConnectionState
	}{
		{"DISCONNECTED", ConnectionDisconnected},
		{"connecting", ConnectionConnecting},
		{" CONNECTED ", ConnectionConnected},
		{"CONNECTION_FAILED", ConnectionDisconnected},
	} {
		got, err := ParseConnectionState(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseConnectionState("LINKED")
	assert.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("rx")
	require.NoError(t, err)
	assert.Equal(t, DirectionRX, d)

	_, err = ParseDirection("ALL")
	assert.Error(t, err)
}

func TestTimestampIsISOUTC(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 6, 789_000_000, time.FixedZone("CET", 3600))
	assert.Equal(t, "2024-03-09T13:05:06.789Z", Timestamp(at))
}

func TestComponentFlagsWithOverwritesOnlyGivenKeys(t *testing.T) {
	var flags ComponentFlags
	flags = flags.With(map[Component]bool{ComponentGlowPlug: true, ComponentFuelPump: true})
	next := flags.With(map[Component]bool{ComponentGlowPlug: false})

	assert.True(t, flags.Active(ComponentGlowPlug), "receiver must not change")
	assert.False(t, next.Active(ComponentGlowPlug))
	assert.True(t, next.Active(ComponentFuelPump))
	assert.False(t, next.Active(Component(42)))
}

func TestComponentFlagsJSONUsesWireKeys(t *testing.T) {
	var flags ComponentFlags
	flags = flags.With(map[Component]bool{ComponentFlameIndicator: true})

	data, err := json.Marshal(flags)
	require.NoError(t, err)

	var decoded map[string]bool
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, ComponentCount)
	assert.True(t, decoded["flame_indicator"])
	assert.False(t, decoded["glow_plug"])
}

func TestComponentKeysAndAliases(t *testing.T) {
	assert.Len(t, Components(), ComponentCount)
	assert.Equal(t, "vehicle_fan_relay", ComponentVehicleFanRelay.Key())
	assert.Equal(t, "vehicleFanRelay", ComponentVehicleFanRelay.Alias())
	assert.Equal(t, "Nozzle Heating", ComponentNozzleStockHeating.String())
}

func TestErrorRecordAcceptsFirmwareKeys(t *testing.T) {
	var rec ErrorRecord
	require.NoError(t, json.Unmarshal([]byte(`{"code":10,"hexCode":"0x0a","errorDescription":"No start","counter":2}`), &rec))
	assert.Equal(t, ErrorRecord{HexCode: "0x0a", Description: "No start", Counter: 2}, rec)

	require.NoError(t, json.Unmarshal([]byte(`{"hex_code":"0x01","description":"Overheat","counter":1}`), &rec))
	assert.Equal(t, ErrorRecord{HexCode: "0x01", Description: "Overheat", Counter: 1}, rec)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hex_code":"0x01","description":"Overheat","counter":1}`, string(out))
}
