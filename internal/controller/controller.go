package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/daemonp/webasto-monitor/internal/event"
	"github.com/daemonp/webasto-monitor/internal/gateway"
	"github.com/daemonp/webasto-monitor/internal/log"
	"github.com/daemonp/webasto-monitor/internal/types"
)

const (
	PromptShutdown      = "Are you sure you want to shutdown the heater?"
	PromptClearMessages = "Are you sure you want to clear all messages?"
)

var ErrUnknownComponent = errors.New("unknown test component")

// Gateway is the control API as used by the controller.
type Gateway interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Status(ctx context.Context) (gateway.Status, error)
	StartMode(ctx context.Context, mode string, minutes int) error
	ControlCirculationPump(ctx context.Context, enable bool) error
	Shutdown(ctx context.Context) error
	DeviceInfo(ctx context.Context) (types.DeviceInfo, error)
	SensorsData(ctx context.Context) (*types.SensorSnapshot, error)
	Errors(ctx context.Context) (gateway.ErrorList, error)
	ClearErrors(ctx context.Context) error
	TestComponent(ctx context.Context, component string, body interface{}) error
	Messages(ctx context.Context) ([]types.MessageEntry, error)
	ClearMessages(ctx context.Context) error
}

// Sink receives events for projection, normally the monitor.
type Sink interface {
	Submit(ev event.Event) error
}

// Confirmer asks the operator to confirm a destructive action.
type Confirmer func(prompt string) bool

// Confirmed is a Confirmer that always agrees.
func Confirmed(string) bool { return true }

// TestParams are the actuator test settings. Each component uses a subset.
type TestParams struct {
	Seconds   int `json:"seconds"`
	Power     int `json:"power"`
	Frequency int `json:"frequency"`
}

type secondsPower struct {
	Seconds int `json:"seconds"`
	Power   int `json:"power"`
}

type secondsFrequency struct {
	Seconds   int `json:"seconds"`
	Frequency int `json:"frequency"`
}

type secondsOnly struct {
	Seconds int `json:"seconds"`
}

var testBodies = map[string]func(TestParams) interface{}{
	"combustion-fan":   withPower,
	"glow-plug":        withPower,
	"circulation-pump": withPower,
	"fuel-preheating":  withPower,
	"fuel-pump": func(p TestParams) interface{} {
		return secondsFrequency{Seconds: p.Seconds, Frequency: p.Frequency}
	},
	"vehicle-fan": withSecondsOnly,
	"solenoid":    withSecondsOnly,
}

func withPower(p TestParams) interface{} {
	return secondsPower{Seconds: p.Seconds, Power: p.Power}
}

func withSecondsOnly(p TestParams) interface{} {
	return secondsOnly{Seconds: p.Seconds}
}

// TestableComponents lists the components accepted by TestComponent.
func TestableComponents() []string {
	names := make([]string, 0, len(testBodies))
	for name := range testBodies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Controller turns operator intents into gateway calls. Each intent makes
// exactly one call; its outcome is reported as a notice in the message log.
type Controller struct {
	gw   Gateway
	sink Sink
	log  *log.Logger
	now  func() time.Time
}

func New(gw Gateway, sink Sink, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Nop()
	}
	return &Controller{gw: gw, sink: sink, log: logger, now: time.Now}
}

func (c *Controller) Connect(ctx context.Context) error {
	return c.command(c.gw.Connect(ctx), "Connection request sent")
}

func (c *Controller) Disconnect(ctx context.Context) error {
	return c.command(c.gw.Disconnect(ctx), "Disconnection request sent")
}

func (c *Controller) StartMode(ctx context.Context, mode string, minutes int) error {
	return c.command(c.gw.StartMode(ctx, mode, minutes),
		fmt.Sprintf("Started %s mode for %d minutes", mode, minutes))
}

func (c *Controller) ControlPump(ctx context.Context, enable bool) error {
	state := "disabled"
	if enable {
		state = "enabled"
	}
	return c.command(c.gw.ControlCirculationPump(ctx, enable), "Circulation pump "+state)
}

// Shutdown stops the heater once confirm agrees. Declining is not an error.
func (c *Controller) Shutdown(ctx context.Context, confirm Confirmer) error {
	if confirm == nil || !confirm(PromptShutdown) {
		c.log.Info("Shutdown cancelled")
		return nil
	}
	return c.command(c.gw.Shutdown(ctx), "Heater shutdown initiated")
}

func (c *Controller) ClearErrors(ctx context.Context) error {
	return c.command(c.gw.ClearErrors(ctx), "Errors cleared")
}

func (c *Controller) TestComponent(ctx context.Context, component string, params TestParams) error {
	body, ok := testBodies[component]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, component)
	}
	return c.command(c.gw.TestComponent(ctx, component, body(params)),
		fmt.Sprintf("Testing %s...", component))
}

// ClearMessages clears the server history and, on success, the local log.
func (c *Controller) ClearMessages(ctx context.Context, confirm Confirmer) error {
	if confirm == nil || !confirm(PromptClearMessages) {
		c.log.Info("Clearing messages cancelled")
		return nil
	}
	if err := c.gw.ClearMessages(ctx); err != nil {
		return c.failed(err)
	}
	return c.submit(event.LogCleared{})
}

func (c *Controller) RefreshStatus(ctx context.Context) error {
	return c.reported(c.refreshStatus(ctx))
}

func (c *Controller) RefreshDeviceInfo(ctx context.Context) error {
	return c.reported(c.refreshDeviceInfo(ctx))
}

func (c *Controller) RefreshSensors(ctx context.Context) error {
	return c.reported(c.refreshSensors(ctx))
}

func (c *Controller) RefreshErrors(ctx context.Context) error {
	return c.reported(c.refreshErrors(ctx))
}

// Refresh re-reads status, device info, sensors and errors.
func (c *Controller) Refresh(ctx context.Context) error {
	return errors.Join(
		c.RefreshStatus(ctx),
		c.RefreshDeviceInfo(ctx),
		c.RefreshSensors(ctx),
		c.RefreshErrors(ctx),
	)
}

// LoadInitialData fetches every view and the message history. Each step is
// independent; failures are logged and never stop the others.
func (c *Controller) LoadInitialData(ctx context.Context) {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"status", c.refreshStatus},
		{"device info", c.refreshDeviceInfo},
		{"sensors", c.refreshSensors},
		{"errors", c.refreshErrors},
		{"messages", c.loadMessages},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			c.log.Warn("Failed to load %s: %v", step.name, err)
		}
	}
}

func (c *Controller) refreshStatus(ctx context.Context) error {
	st, err := c.gw.Status(ctx)
	if err != nil {
		return err
	}
	if err := c.submit(event.ConnectionStateChanged{New: st.Connection}); err != nil {
		return err
	}
	return c.submit(event.HeaterStateChanged{New: st.Heater})
}

func (c *Controller) refreshDeviceInfo(ctx context.Context) error {
	info, err := c.gw.DeviceInfo(ctx)
	if err != nil {
		return err
	}
	return c.submit(event.DeviceInfoRefreshed{Info: info})
}

func (c *Controller) refreshSensors(ctx context.Context) error {
	sensors, err := c.gw.SensorsData(ctx)
	if err != nil {
		return err
	}
	if sensors == nil {
		return nil
	}
	return c.submit(event.SensorInfo{Sensors: *sensors})
}

func (c *Controller) refreshErrors(ctx context.Context) error {
	list, err := c.gw.Errors(ctx)
	if err != nil {
		return err
	}
	return c.submit(event.ErrorReport{Count: list.Count, Errors: list.Errors})
}

func (c *Controller) loadMessages(ctx context.Context) error {
	entries, err := c.gw.Messages(ctx)
	if err != nil {
		return err
	}
	return c.submit(event.LogSnapshot{Entries: entries})
}

// command reports the outcome of one gateway call.
func (c *Controller) command(err error, success string) error {
	if err != nil {
		return c.failed(err)
	}
	c.log.Info("%s", success)
	return c.notice(success)
}

func (c *Controller) reported(err error) error {
	if err != nil {
		return c.failed(err)
	}
	return nil
}

func (c *Controller) failed(err error) error {
	c.log.Error("API Error: %v", err)
	if nerr := c.notice(fmt.Sprintf("API Error: %v", err)); nerr != nil {
		c.log.Warn("Failed to record notice: %v", nerr)
	}
	return err
}

func (c *Controller) notice(text string) error {
	return c.submit(event.Notice{Text: text, At: c.now()})
}

func (c *Controller) submit(ev event.Event) error {
	if err := c.sink.Submit(ev); err != nil {
		return fmt.Errorf("submit %s: %w", ev.Kind(), err)
	}
	return nil
}
