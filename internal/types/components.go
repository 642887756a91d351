package types

import (
	"encoding/json"
	"fmt"
)

type Component int

const (
	ComponentCombustionAirFan Component = iota
	ComponentGlowPlug
	ComponentFuelPump
	ComponentCirculationPump
	ComponentVehicleFanRelay
	ComponentNozzleStockHeating
	ComponentFlameIndicator

	ComponentCount = 7
)

var componentKeys = [ComponentCount]string{
	"combustion_air_fan",
	"glow_plug",
	"fuel_pump",
	"circulation_pump",
	"vehicle_fan_relay",
	"nozzle_stock_heating",
	"flame_indicator",
}

// The controller firmware serializes the same flags in camelCase.
var componentAliases = [ComponentCount]string{
	"combustionAirFan",
	"glowPlug",
	"fuelPump",
	"circulationPump",
	"vehicleFanRelay",
	"nozzleStockHeating",
	"flameIndicator",
}

var ComponentNames = [ComponentCount]string{
	"Combustion Fan",
	"Glow Plug",
	"Fuel Pump",
	"Circulation Pump",
	"Vehicle Fan",
	"Nozzle Heating",
	"Flame Indicator",
}

func Components() []Component {
	out := make([]Component, ComponentCount)
	for i := range out {
		out[i] = Component(i)
	}
	return out
}

// Key is the wire key of the component.
func (c Component) Key() string {
	if c < 0 || c >= ComponentCount {
		return fmt.Sprintf("component_%d", int(c))
	}
	return componentKeys[c]
}

func (c Component) Alias() string {
	if c < 0 || c >= ComponentCount {
		return ""
	}
	return componentAliases[c]
}

func (c Component) String() string {
	if c < 0 || c >= ComponentCount {
		return fmt.Sprintf("Unknown Component(%d)", int(c))
	}
	return ComponentNames[c]
}

// ComponentFlags holds the active state of every known component.
type ComponentFlags [ComponentCount]bool

func (f ComponentFlags) Active(c Component) bool {
	if c < 0 || c >= ComponentCount {
		return false
	}
	return f[c]
}

// With returns a copy with only the given keys overwritten.
func (f ComponentFlags) With(update map[Component]bool) ComponentFlags {
	for c, active := range update {
		if c >= 0 && c < ComponentCount {
			f[c] = active
		}
	}
	return f
}

func (f ComponentFlags) Map() map[string]bool {
	out := make(map[string]bool, ComponentCount)
	for i, active := range f {
		out[componentKeys[i]] = active
	}
	return out
}

func (f ComponentFlags) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Map())
}
