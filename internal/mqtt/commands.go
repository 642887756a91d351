package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/daemonp/webasto-monitor/internal/controller"
)

const (
	confirmPayload = "confirm"
	defaultMinutes = 60
)

// Command is a parsed message from a command topic.
type Command struct {
	Name      string
	Mode      string
	Minutes   int
	Enable    bool
	Component string
	Params    controller.TestParams
	Confirmed bool
	Direction string
	Search    string
}

type filterPayload struct {
	Direction string `json:"direction"`
	Search    string `json:"search"`
}

// ParseCommand interprets payload sent to the command named name, the topic
// relative to {prefix}/command/.
func ParseCommand(name string, payload []byte) (Command, error) {
	text := strings.TrimSpace(string(payload))
	cmd := Command{Name: name}

	switch {
	case name == "connect", name == "disconnect", name == "refresh", name == "errors/clear":
		return cmd, nil

	case name == "shutdown", name == "messages/clear":
		cmd.Confirmed = strings.EqualFold(text, confirmPayload)
		return cmd, nil

	case strings.HasPrefix(name, "start/"):
		cmd.Name = "start"
		cmd.Mode = strings.TrimPrefix(name, "start/")
		cmd.Minutes = defaultMinutes
		if text != "" {
			minutes, err := strconv.Atoi(text)
			if err != nil || minutes <= 0 {
				return Command{}, fmt.Errorf("invalid minutes %q", text)
			}
			cmd.Minutes = minutes
		}
		return cmd, nil

	case name == "pump":
		switch strings.ToLower(text) {
		case "on", "true", "1":
			cmd.Enable = true
		case "off", "false", "0":
			cmd.Enable = false
		default:
			return Command{}, fmt.Errorf("invalid pump payload %q", text)
		}
		return cmd, nil

	case strings.HasPrefix(name, "test/"):
		cmd.Name = "test"
		cmd.Component = strings.TrimPrefix(name, "test/")
		if text != "" {
			if err := json.Unmarshal([]byte(text), &cmd.Params); err != nil {
				return Command{}, fmt.Errorf("invalid test parameters: %w", err)
			}
		}
		return cmd, nil

	case name == "filter":
		var f filterPayload
		if text != "" {
			if err := json.Unmarshal([]byte(text), &f); err != nil {
				return Command{}, fmt.Errorf("invalid filter: %w", err)
			}
		}
		cmd.Direction, cmd.Search = f.Direction, f.Search
		return cmd, nil
	}

	return Command{}, fmt.Errorf("unknown command %q", name)
}

func (c Command) confirmer() controller.Confirmer {
	return func(string) bool { return c.Confirmed }
}
