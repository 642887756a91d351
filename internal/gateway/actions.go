package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/daemonp/webasto-monitor/internal/types"
)

const (
	EndpointMessages      = "/api/messages"
	EndpointClearMessages = "/api/messages/clear"
	EndpointConnect       = "/api/connect"
	EndpointDisconnect    = "/api/disconnect"
	EndpointStatus        = "/api/status"
	EndpointShutdown      = "/api/shutdown"
	EndpointCirculation   = "/api/control/circulation-pump"
	EndpointDeviceInfo    = "/api/device/info"
	EndpointSensors       = "/api/sensors/data"
	EndpointErrors        = "/api/errors"
	EndpointClearErrors   = "/api/errors/clear"
)

// Heater operating modes accepted by /api/start/{mode}.
const (
	ModeParking      = "parking"
	ModeVentilation  = "ventilation"
	ModeSupplemental = "supplemental"
	ModeBoost        = "boost"
)

const (
	startPrefix = "/api/start/"
	testPrefix  = "/api/test/"
)

func StartEndpoint(mode string) string {
	return startPrefix + url.PathEscape(mode)
}

func TestEndpoint(component string) string {
	return testPrefix + url.PathEscape(component)
}

// route collapses parameterized endpoints to their template so metric
// labels stay bounded.
func route(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, startPrefix):
		return startPrefix + "{mode}"
	case strings.HasPrefix(endpoint, testPrefix):
		return testPrefix + "{component}"
	default:
		return endpoint
	}
}

// Status is the controller's view of the heater link.
type Status struct {
	Connection types.ConnectionState
	Heater     types.HeaterState
}

// The firmware has used both spellings.
type statusReply struct {
	ConnectionState      string `json:"connection_state"`
	HeaterState          string `json:"heater_state"`
	ConnectionStateCamel string `json:"connectionState"`
	HeaterStateCamel     string `json:"heaterState"`
}

type ErrorList struct {
	Count  int                 `json:"count"`
	Errors []types.ErrorRecord `json:"errors"`
}

type sensorsReply struct {
	OperationalMeasurements *types.SensorSnapshot `json:"operational_measurements"`
}

func (c *Client) post(ctx context.Context, endpoint string, body interface{}) error {
	_, err := c.Send(ctx, http.MethodPost, endpoint, body)
	return err
}

func (c *Client) get(ctx context.Context, endpoint string, v interface{}) error {
	resp, err := c.Send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if err := resp.Decode(v); err != nil {
		return &Error{Method: http.MethodGet, Endpoint: endpoint, Status: resp.Status, Err: err}
	}
	return nil
}

func (c *Client) Connect(ctx context.Context) error {
	return c.post(ctx, EndpointConnect, nil)
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.post(ctx, EndpointDisconnect, nil)
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var reply statusReply
	if err := c.get(ctx, EndpointStatus, &reply); err != nil {
		return Status{}, err
	}

	conn := reply.ConnectionState
	if conn == "" {
		conn = reply.ConnectionStateCamel
	}
	heater := reply.HeaterState
	if heater == "" {
		heater = reply.HeaterStateCamel
	}

	state, err := types.ParseConnectionState(conn)
	if err != nil {
		return Status{}, &Error{Method: http.MethodGet, Endpoint: EndpointStatus, Status: http.StatusOK, Err: err}
	}
	return Status{Connection: state, Heater: types.HeaterState(heater)}, nil
}

// StartMode starts the heater in mode for the given number of minutes.
func (c *Client) StartMode(ctx context.Context, mode string, minutes int) error {
	return c.post(ctx, StartEndpoint(mode), map[string]int{"minutes": minutes})
}

func (c *Client) ControlCirculationPump(ctx context.Context, enable bool) error {
	return c.post(ctx, EndpointCirculation, map[string]bool{"enable": enable})
}

func (c *Client) Shutdown(ctx context.Context) error {
	return c.post(ctx, EndpointShutdown, nil)
}

func (c *Client) DeviceInfo(ctx context.Context) (types.DeviceInfo, error) {
	var info types.DeviceInfo
	err := c.get(ctx, EndpointDeviceInfo, &info)
	return info, err
}

// SensorsData returns nil when the reply carries no measurements.
func (c *Client) SensorsData(ctx context.Context) (*types.SensorSnapshot, error) {
	var reply sensorsReply
	if err := c.get(ctx, EndpointSensors, &reply); err != nil {
		return nil, err
	}
	return reply.OperationalMeasurements, nil
}

func (c *Client) Errors(ctx context.Context) (ErrorList, error) {
	var list ErrorList
	if err := c.get(ctx, EndpointErrors, &list); err != nil {
		return ErrorList{}, err
	}
	if list.Errors == nil {
		list.Errors = []types.ErrorRecord{}
	}
	return list, nil
}

func (c *Client) ClearErrors(ctx context.Context) error {
	return c.post(ctx, EndpointClearErrors, nil)
}

// TestComponent runs an actuator test; body is the component-specific
// parameter object.
func (c *Client) TestComponent(ctx context.Context, component string, body interface{}) error {
	return c.post(ctx, TestEndpoint(component), body)
}

// Messages fetches the server-held message history, newest first.
func (c *Client) Messages(ctx context.Context) ([]types.MessageEntry, error) {
	var entries []types.MessageEntry
	if err := c.get(ctx, EndpointMessages, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) ClearMessages(ctx context.Context) error {
	return c.post(ctx, EndpointClearMessages, nil)
}
