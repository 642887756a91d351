package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout matches the ISO-8601 form browsers produce for Date.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t in UTC using TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

type ConnectionState int

const (
	ConnectionDisconnected ConnectionState = iota
	ConnectionConnecting
	ConnectionConnected
)

func (c ConnectionState) String() string {
	switch c {
	case ConnectionDisconnected:
		return "DISCONNECTED"
	case ConnectionConnecting:
		return "CONNECTING"
	case ConnectionConnected:
		return "CONNECTED"
	default:
		return fmt.Sprintf("Unknown ConnectionState(%d)", c)
	}
}

func (c ConnectionState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func ParseConnectionState(s string) (ConnectionState, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DISCONNECTED":
		return ConnectionDisconnected, nil
	case "CONNECTING":
		return ConnectionConnecting, nil
	case "CONNECTED":
		return ConnectionConnected, nil
	case "CONNECTION_FAILED":
		// A failed attempt leaves the heater bus disconnected.
		return ConnectionDisconnected, nil
	default:
		return ConnectionDisconnected, fmt.Errorf("unknown connection state %q", s)
	}
}

// LinkState is the stream link as seen by this client.
type LinkState int

const (
	LinkDisconnected LinkState = iota
	LinkConnected
	LinkError
)

func (l LinkState) String() string {
	switch l {
	case LinkDisconnected:
		return "Disconnected"
	case LinkConnected:
		return "Connected"
	case LinkError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown LinkState(%d)", l)
	}
}

func (l LinkState) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// HeaterState is a device-defined label such as "OFF" or "HEATING".
type HeaterState string

const HeaterOff HeaterState = "OFF"

type SensorSnapshot struct {
	Temperature   float64 `json:"temperature" msgpack:"temperature"`
	Voltage       float64 `json:"voltage" msgpack:"voltage"`
	HeatingPower  float64 `json:"heatingPower" msgpack:"heatingPower"`
	FlameDetected bool    `json:"flameDetected" msgpack:"flameDetected"`
}

type ErrorRecord struct {
	HexCode     string `json:"hex_code" msgpack:"hex_code"`
	Description string `json:"description" msgpack:"description"`
	Counter     int    `json:"counter" msgpack:"counter"`
}

// UnmarshalJSON also accepts the firmware's hexCode and errorDescription keys.
func (r *ErrorRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		HexCode          string `json:"hex_code"`
		HexCodeAlias     string `json:"hexCode"`
		Description      string `json:"description"`
		DescriptionAlias string `json:"errorDescription"`
		Counter          int    `json:"counter"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ErrorRecord{HexCode: raw.HexCode, Description: raw.Description, Counter: raw.Counter}
	if r.HexCode == "" {
		r.HexCode = raw.HexCodeAlias
	}
	if r.Description == "" {
		r.Description = raw.DescriptionAlias
	}
	return nil
}

type DeviceInfo struct {
	WBusVersion  string `json:"wbus_version"`
	DeviceName   string `json:"device_name"`
	DeviceID     string `json:"device_id"`
	SerialNumber string `json:"serial_number"`
}

type Direction string

const (
	DirectionTX     Direction = "TX"
	DirectionRX     Direction = "RX"
	DirectionError  Direction = "ERROR"
	DirectionSystem Direction = "SYSTEM"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case DirectionTX, DirectionRX, DirectionError, DirectionSystem:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// MessageEntry is one trace line of the message log. Entries are never
// modified after they are created.
type MessageEntry struct {
	Timestamp   string    `json:"timestamp" msgpack:"timestamp"`
	Direction   Direction `json:"direction" msgpack:"direction"`
	Data        string    `json:"data" msgpack:"data"`
	Description string    `json:"description" msgpack:"description"`
}

func NewMessageEntry(at time.Time, dir Direction, data, description string) MessageEntry {
	return MessageEntry{
		Timestamp:   Timestamp(at),
		Direction:   dir,
		Data:        data,
		Description: description,
	}
}
