package homeassistant

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/daemonp/webasto-monitor/internal/config"
	"github.com/daemonp/webasto-monitor/internal/log"
	"github.com/daemonp/webasto-monitor/internal/monitor"
	"github.com/daemonp/webasto-monitor/internal/mqtt"
	"github.com/daemonp/webasto-monitor/internal/types"
	"github.com/daemonp/webasto-monitor/internal/util"
)

type HomeAssistant struct {
	config *config.HomeAssistantConfig
	mqtt   mqtt.MQTTClient
	log    *log.Logger

	mu     sync.Mutex
	device types.DeviceInfo
}

func New(cfg *config.HomeAssistantConfig, mqttClient mqtt.MQTTClient, logger *log.Logger) *HomeAssistant {
	return &HomeAssistant{
		config: cfg,
		mqtt:   mqttClient,
		log:    logger,
	}
}

func (ha *HomeAssistant) Start() {
	ha.log.Info("Starting Home Assistant integration")
	ha.publishDiscoveryConfig()
}

// OnSnapshot republishes discovery when the device identity changes.
func (ha *HomeAssistant) OnSnapshot(snap monitor.Snapshot, changes monitor.Changes) {
	if !changes.Has(monitor.ChangedDevice) {
		return
	}
	ha.mu.Lock()
	same := ha.device == snap.State.Device
	ha.device = snap.State.Device
	ha.mu.Unlock()
	if !same {
		ha.publishDiscoveryConfig()
	}
}

func (ha *HomeAssistant) publishDiscoveryConfig() {
	ha.publishLinkConfig()
	ha.publishHeaterConfig()

	for _, s := range sensors {
		ha.publishSensorConfig(s)
	}
	ha.publishFlameConfig()

	for _, c := range types.Components() {
		ha.publishComponentConfig(c)
	}
}

func (ha *HomeAssistant) deviceConfig() map[string]interface{} {
	ha.mu.Lock()
	info := ha.device
	ha.mu.Unlock()

	name := util.Normalize(info.DeviceName)
	if name == "" {
		name = "Heater"
	}
	id := util.Normalize(info.SerialNumber)
	if id == "" {
		id = ha.mqtt.GetPrefix()
	}
	device := map[string]interface{}{
		"name":         fmt.Sprintf("Webasto %s", name),
		"identifiers":  []string{id},
		"manufacturer": "Webasto",
	}
	if model := util.Normalize(info.DeviceID); model != "" {
		device["model"] = model
	}
	if version := util.Normalize(info.WBusVersion); version != "" {
		device["sw_version"] = version
	}
	return device
}

func (ha *HomeAssistant) uniqueID(object string) string {
	return fmt.Sprintf("%s_%s", ha.mqtt.GetPrefix(), object)
}

func (ha *HomeAssistant) base(name, object, stateTopic string) map[string]interface{} {
	return map[string]interface{}{
		"name":                  name,
		"unique_id":             ha.uniqueID(object),
		"state_topic":           stateTopic,
		"availability_topic":    ha.mqtt.Topics().Status(),
		"payload_available":     "online",
		"payload_not_available": "offline",
		"device":                ha.deviceConfig(),
	}
}

func (ha *HomeAssistant) publishLinkConfig() {
	config := ha.base("Controller link", "link", ha.mqtt.Topics().Link())
	config["value_template"] = "{{ value_json.state }}"
	config["payload_on"] = types.LinkConnected.String()
	config["payload_off"] = types.LinkDisconnected.String()

	ha.publishConfig("binary_sensor", "link", "connectivity", config)
}

func (ha *HomeAssistant) publishHeaterConfig() {
	config := ha.base("Heater state", "heater", ha.mqtt.Topics().Heater())
	config["value_template"] = "{{ value_json.state }}"
	config["icon"] = "mdi:radiator"

	ha.publishConfig("sensor", "heater", "", config)
}

func (ha *HomeAssistant) publishSensorConfig(s sensor) {
	config := ha.base(s.name, s.key, ha.mqtt.Topics().Sensors())
	config["value_template"] = fmt.Sprintf("{{ value_json.%s }}", s.field)
	config["unit_of_measurement"] = s.unit
	config["state_class"] = "measurement"

	ha.publishConfig("sensor", s.key, s.deviceClass, config)
}

func (ha *HomeAssistant) publishFlameConfig() {
	config := ha.base("Flame", "flame", ha.mqtt.Topics().Sensors())
	config["value_template"] = "{{ 'ON' if value_json.flameDetected else 'OFF' }}"

	ha.publishConfig("binary_sensor", "flame", "heat", config)
}

func (ha *HomeAssistant) publishComponentConfig(c types.Component) {
	object := fmt.Sprintf("component_%s", c.Key())
	config := ha.base(c.String(), object, ha.mqtt.Topics().Component(c))
	config["value_template"] = "{{ value_json.state }}"
	config["payload_on"] = "ON"
	config["payload_off"] = "OFF"

	ha.publishConfig("binary_sensor", object, getDeviceClass(c), config)
}

func (ha *HomeAssistant) publishConfig(component, objectId, deviceClass string, config map[string]interface{}) {
	topic := fmt.Sprintf("%s/%s/%s/%s/config", ha.config.Prefix, component, ha.mqtt.GetPrefix(), objectId)

	if deviceClass != "" {
		config["device_class"] = deviceClass
	}

	payload, err := json.Marshal(config)
	if err != nil {
		ha.log.Error("Failed to marshal Home Assistant config: %v", err)
		return
	}

	ha.mqtt.Publish(topic, string(payload), true)
}
