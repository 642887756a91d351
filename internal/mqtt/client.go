package mqtt

// MQTTClient is the publishing side of the bridge, as used by discovery.
type MQTTClient interface {
	GetPrefix() string
	Topics() *Topics
	Publish(topic string, payload interface{}, retain bool)
}
