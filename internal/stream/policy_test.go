package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyTransitions(t *testing.T) {
	for _, tc := range []struct {
		name     string
		triggers []Trigger
		state    State
		action   Action
	}{
		{"start dials", []Trigger{TriggerStart}, StateConnecting, ActionDial},
		{"start twice is ignored", []Trigger{TriggerStart, TriggerStart}, StateConnecting, ActionNone},
		{"opened", []Trigger{TriggerStart, TriggerOpened}, StateConnected, ActionNone},
		{"close schedules", []Trigger{TriggerStart, TriggerOpened, TriggerClosed}, StateWaitingToRetry, ActionScheduleRetry},
		{"dial failure schedules", []Trigger{TriggerStart, TriggerClosed}, StateWaitingToRetry, ActionScheduleRetry},
		{"duplicate close is ignored", []Trigger{TriggerStart, TriggerClosed, TriggerClosed}, StateWaitingToRetry, ActionNone},
		{"start while waiting is ignored", []Trigger{TriggerStart, TriggerClosed, TriggerStart}, StateWaitingToRetry, ActionNone},
		{"retry dials", []Trigger{TriggerStart, TriggerClosed, TriggerRetryDue}, StateConnecting, ActionDial},
		{"stale retry is ignored", []Trigger{TriggerStart, TriggerOpened, TriggerRetryDue}, StateConnected, ActionNone},
		{"stop cancels retry", []Trigger{TriggerStart, TriggerClosed, TriggerStop}, StateIdle, ActionCancelRetry},
		{"stop while connected", []Trigger{TriggerStart, TriggerOpened, TriggerStop}, StateIdle, ActionNone},
		{"stopped ignores start", []Trigger{TriggerStop, TriggerStart}, StateIdle, ActionNone},
		{"stopped ignores close", []Trigger{TriggerStart, TriggerOpened, TriggerStop, TriggerClosed}, StateIdle, ActionNone},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPolicy(3 * time.Second)
			var last Action
			for _, trig := range tc.triggers {
				last = p.Fire(trig)
			}
			assert.Equal(t, tc.state, p.State())
			assert.Equal(t, tc.action, last)
		})
	}
}

func TestPolicyDelayIsConstant(t *testing.T) {
	p := NewPolicy(3000 * time.Millisecond)
	for i := 0; i < 5; i++ {
		assert.Equal(t, 3*time.Second, p.Delay())
	}
}

func TestStreamURL(t *testing.T) {
	assert.Equal(t, "ws://192.168.4.1:81/", StreamURL("192.168.4.1", false, 81))
	assert.Equal(t, "wss://heater.local:81/", StreamURL("heater.local:443", true, 0))
	assert.Equal(t, "ws://[fe80::1]:9000/", StreamURL("[fe80::1]:80", false, 9000))
}
