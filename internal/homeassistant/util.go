package homeassistant

import "github.com/daemonp/webasto-monitor/internal/types"

type sensor struct {
	key         string
	name        string
	field       string
	unit        string
	deviceClass string
}

var sensors = []sensor{
	{"temperature", "Temperature", "temperature", "°C", "temperature"},
	{"voltage", "Supply voltage", "voltage", "V", "voltage"},
	{"heating_power", "Heating power", "heatingPower", "W", "power"},
}

func getDeviceClass(c types.Component) string {
	switch c {
	case types.ComponentFlameIndicator, types.ComponentGlowPlug, types.ComponentNozzleStockHeating:
		return "heat"
	case types.ComponentCombustionAirFan, types.ComponentFuelPump,
		types.ComponentCirculationPump, types.ComponentVehicleFanRelay:
		return "running"
	}

	// Default to a plain power state
	return "power"
}
