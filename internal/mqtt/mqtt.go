package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/daemonp/webasto-monitor/internal/config"
	"github.com/daemonp/webasto-monitor/internal/controller"
	"github.com/daemonp/webasto-monitor/internal/log"
	"github.com/daemonp/webasto-monitor/internal/monitor"
	"github.com/daemonp/webasto-monitor/internal/types"
)

const (
	offlinePayload = "offline"
	onlinePayload  = "online"

	queueSize = 256
)

// Commands are the operator intents reachable over MQTT.
type Commands interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Refresh(ctx context.Context) error
	StartMode(ctx context.Context, mode string, minutes int) error
	ControlPump(ctx context.Context, enable bool) error
	Shutdown(ctx context.Context, confirm controller.Confirmer) error
	ClearErrors(ctx context.Context) error
	TestComponent(ctx context.Context, component string, params controller.TestParams) error
	ClearMessages(ctx context.Context, confirm controller.Confirmer) error
}

type FilterSetter interface {
	SetFilter(direction, search string) error
}

type message struct {
	topic   string
	payload interface{}
	retain  bool
}

type MQTT struct {
	config   *config.MQTTConfig
	log      *log.Logger
	client   mqtt.Client
	topics   *Topics
	commands Commands
	filter   FilterSetter

	queue chan message
	done  chan struct{}
	wg    sync.WaitGroup

	mu       sync.Mutex
	last     monitor.Snapshot
	haveLast bool
	closing  bool
}

func NewMQTT(cfg *config.MQTTConfig, commands Commands, filter FilterSetter, logger *log.Logger) *MQTT {
	return &MQTT{
		config:   cfg,
		log:      logger,
		topics:   NewTopics(cfg.Prefix),
		commands: commands,
		filter:   filter,
		queue:    make(chan message, queueSize),
		done:     make(chan struct{}),
	}
}

func (m *MQTT) GetPrefix() string {
	return m.config.Prefix
}

func (m *MQTT) Topics() *Topics {
	return m.topics
}

func (m *MQTT) broker() (string, int, error) {
	if m.config.URL != "" {
		return ParseURL(m.config.URL)
	}
	return m.config.Host, m.config.Port, nil
}

func (m *MQTT) Connect() error {
	host, port, err := m.broker()
	if err != nil {
		return fmt.Errorf("invalid MQTT broker: %w", err)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", host, port))
	opts.SetClientID(m.config.ClientID)
	opts.SetUsername(m.config.Username)
	opts.SetPassword(m.config.Password)
	opts.SetCleanSession(m.config.Clean)
	opts.SetKeepAlive(secondsDuration(m.config.Keepalive))
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(m.onDisconnect)

	opts.SetWill(m.topics.Status(), offlinePayload, byte(m.config.QOS), true)

	m.client = mqtt.NewClient(opts)

	if !m.track() {
		return fmt.Errorf("MQTT bridge closed")
	}
	go m.publishLoop()

	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	m.log.Info("Connected to MQTT broker: %s:%d", host, port)
	return nil
}

func (m *MQTT) onConnect(client mqtt.Client) {
	m.log.Info("MQTT connection established")
	m.Publish(m.topics.Status(), onlinePayload, true)
	m.subscribeTopics()

	m.mu.Lock()
	snap, ok := m.last, m.haveLast
	m.mu.Unlock()
	if ok {
		m.publishViews(snap, allViews)
	}
}

func (m *MQTT) onDisconnect(client mqtt.Client, err error) {
	m.log.Error("MQTT connection lost: %v", err)
}

func (m *MQTT) subscribeTopics() {
	topic := m.topics.Commands()
	token := m.client.Subscribe(topic, byte(m.config.QOS), m.handleMessage)
	if token.Wait() && token.Error() != nil {
		m.log.Error("Failed to subscribe to topic %s: %v", topic, token.Error())
	} else {
		m.log.Debug("Subscribed to topic: %s", topic)
	}
}

func (m *MQTT) handleMessage(client mqtt.Client, msg mqtt.Message) {
	m.log.Debug("Received message on topic %s: %s", msg.Topic(), string(msg.Payload()))

	name, ok := m.topics.CommandName(msg.Topic())
	if !ok {
		m.log.Warn("Received message on unknown topic: %s", msg.Topic())
		return
	}
	cmd, err := ParseCommand(name, msg.Payload())
	if err != nil {
		m.log.Warn("Ignoring command %s: %v", name, err)
		return
	}

	// Gateway calls block; keep the paho router free.
	if !m.track() {
		m.log.Debug("Dropping command %s during shutdown", cmd.Name)
		return
	}
	go func() {
		defer m.wg.Done()
		if err := m.Execute(context.Background(), cmd); err != nil {
			m.log.Error("Command %s failed: %v", cmd.Name, err)
		}
	}()
}

// track registers a worker unless Close has started.
func (m *MQTT) track() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return false
	}
	m.wg.Add(1)
	return true
}

// Execute runs a parsed command.
func (m *MQTT) Execute(ctx context.Context, cmd Command) error {
	switch cmd.Name {
	case "connect":
		return m.commands.Connect(ctx)
	case "disconnect":
		return m.commands.Disconnect(ctx)
	case "refresh":
		return m.commands.Refresh(ctx)
	case "shutdown":
		return m.commands.Shutdown(ctx, cmd.confirmer())
	case "start":
		return m.commands.StartMode(ctx, cmd.Mode, cmd.Minutes)
	case "pump":
		return m.commands.ControlPump(ctx, cmd.Enable)
	case "test":
		return m.commands.TestComponent(ctx, cmd.Component, cmd.Params)
	case "errors/clear":
		return m.commands.ClearErrors(ctx)
	case "messages/clear":
		return m.commands.ClearMessages(ctx, cmd.confirmer())
	case "filter":
		return m.filter.SetFilter(cmd.Direction, cmd.Search)
	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}
}

const allViews = monitor.ChangedLink | monitor.ChangedConnection | monitor.ChangedHeater |
	monitor.ChangedSensors | monitor.ChangedComponents | monitor.ChangedErrors |
	monitor.ChangedDevice | monitor.ChangedLogReset

// OnSnapshot is a monitor subscriber. It only queues messages.
func (m *MQTT) OnSnapshot(snap monitor.Snapshot, changes monitor.Changes) {
	m.mu.Lock()
	m.last, m.haveLast = snap, true
	m.mu.Unlock()

	m.publishViews(snap, changes)
}

func (m *MQTT) publishViews(snap monitor.Snapshot, changes monitor.Changes) {
	s := snap.State
	if changes.Has(monitor.ChangedLink) {
		m.Publish(m.topics.Link(), map[string]string{"state": s.Link.String()}, true)
	}
	if changes.Has(monitor.ChangedConnection) {
		m.Publish(m.topics.Connection(), map[string]string{"state": s.Connection.String()}, true)
	}
	if changes.Has(monitor.ChangedHeater) {
		m.Publish(m.topics.Heater(), map[string]string{"state": string(s.Heater)}, true)
	}
	if changes.Has(monitor.ChangedSensors) {
		m.Publish(m.topics.Sensors(), s.Sensors, true)
	}
	if changes.Has(monitor.ChangedComponents) {
		m.Publish(m.topics.Components(), s.Components, true)
		for _, c := range types.Components() {
			m.Publish(m.topics.Component(c), componentStatus(c, s.Components.Active(c)), true)
		}
	}
	if changes.Has(monitor.ChangedErrors) {
		m.Publish(m.topics.Errors(), map[string]interface{}{
			"count":  len(s.Errors),
			"errors": s.Errors,
		}, true)
	}
	if changes.Has(monitor.ChangedDevice) {
		m.Publish(m.topics.Device(), s.Device, true)
	}
	if changes.Has(monitor.ChangedVisible) {
		m.Publish(m.topics.Stats(), snap.Stats, true)
	}
	if changes.Has(monitor.ChangedLogAppended) {
		if e, ok := s.Log.Newest(); ok {
			m.Publish(m.topics.Log(), e, m.config.RetainLog)
		}
	}
}

func componentStatus(c types.Component, active bool) map[string]interface{} {
	state := "OFF"
	if active {
		state = "ON"
	}
	return map[string]interface{}{
		"key":    c.Key(),
		"name":   c.String(),
		"active": active,
		"state":  state,
	}
}

// Publish queues a message. Strings and byte slices are sent as is, anything
// else is encoded as JSON. A full queue drops the message.
func (m *MQTT) Publish(topic string, payload interface{}, retain bool) {
	select {
	case <-m.done:
		return
	default:
	}
	select {
	case m.queue <- message{topic: topic, payload: payload, retain: retain}:
	default:
		m.log.Warn("MQTT publish queue full, dropping message for %s", topic)
	}
}

func (m *MQTT) publishLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case msg := <-m.queue:
			m.publish(msg.topic, msg.payload, msg.retain)
		}
	}
}

func (m *MQTT) publish(topic string, message interface{}, retain bool) {
	payload, err := encode(message)
	if err != nil {
		m.log.Error("Failed to marshal message for topic %s: %v", topic, err)
		return
	}

	token := m.client.Publish(topic, byte(m.config.QOS), retain || m.config.Retain, payload)
	if token.Wait() && token.Error() != nil {
		m.log.Error("Failed to publish message to topic %s: %v", topic, token.Error())
	} else {
		m.log.Trace("Published message to topic: %s", topic)
	}
}

func encode(message interface{}) ([]byte, error) {
	switch v := message.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

func (m *MQTT) Close() {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return
	}
	m.closing = true
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
	if m.client != nil && m.client.IsConnected() {
		m.publish(m.topics.Status(), offlinePayload, true)
		m.client.Disconnect(250)
	}
}
