package mqtt

import (
	"fmt"
	"strings"

	"github.com/daemonp/webasto-monitor/internal/types"
	"github.com/daemonp/webasto-monitor/internal/util"
)

type Topics struct {
	prefix string
}

func NewTopics(prefix string) *Topics {
	return &Topics{prefix: prefix}
}

func (t *Topics) Status() string {
	return fmt.Sprintf("%s/status", t.prefix)
}

func (t *Topics) Link() string {
	return fmt.Sprintf("%s/link", t.prefix)
}

func (t *Topics) Connection() string {
	return fmt.Sprintf("%s/connection", t.prefix)
}

func (t *Topics) Heater() string {
	return fmt.Sprintf("%s/heater", t.prefix)
}

func (t *Topics) Sensors() string {
	return fmt.Sprintf("%s/sensors", t.prefix)
}

func (t *Topics) Components() string {
	return fmt.Sprintf("%s/components", t.prefix)
}

func (t *Topics) Component(c types.Component) string {
	return fmt.Sprintf("%s/component/%s", t.prefix, util.Slugify(c.String()))
}

func (t *Topics) Errors() string {
	return fmt.Sprintf("%s/errors", t.prefix)
}

func (t *Topics) Device() string {
	return fmt.Sprintf("%s/device", t.prefix)
}

func (t *Topics) Stats() string {
	return fmt.Sprintf("%s/stats", t.prefix)
}

func (t *Topics) Log() string {
	return fmt.Sprintf("%s/log", t.prefix)
}

func (t *Topics) Command(name string) string {
	return fmt.Sprintf("%s/command/%s", t.prefix, name)
}

// Commands matches every command topic.
func (t *Topics) Commands() string {
	return t.Command("#")
}

// CommandName strips the command prefix from topic.
func (t *Topics) CommandName(topic string) (string, bool) {
	base := t.Command("")
	if !strings.HasPrefix(topic, base) {
		return "", false
	}
	return strings.TrimPrefix(topic, base), true
}
