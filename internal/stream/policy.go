package stream

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateWaitingToRetry
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateWaitingToRetry:
		return "WaitingToRetry"
	default:
		return fmt.Sprintf("Unknown State(%d)", s)
	}
}

type Trigger int

const (
	TriggerStart Trigger = iota
	TriggerOpened
	TriggerClosed
	TriggerRetryDue
	TriggerStop
)

func (t Trigger) String() string {
	switch t {
	case TriggerStart:
		return "Start"
	case TriggerOpened:
		return "Opened"
	case TriggerClosed:
		return "Closed"
	case TriggerRetryDue:
		return "RetryDue"
	case TriggerStop:
		return "Stop"
	default:
		return fmt.Sprintf("Unknown Trigger(%d)", t)
	}
}

// Action is the side effect the session must perform after a transition.
type Action int

const (
	ActionNone Action = iota
	ActionDial
	ActionScheduleRetry
	ActionCancelRetry
)

type transition struct {
	next   State
	action Action
}

// Pairs missing from the table leave the state unchanged and do nothing.
var transitions = map[State]map[Trigger]transition{
	StateIdle: {
		TriggerStart: {StateConnecting, ActionDial},
	},
	StateConnecting: {
		TriggerOpened: {StateConnected, ActionNone},
		TriggerClosed: {StateWaitingToRetry, ActionScheduleRetry},
		TriggerStop:   {StateIdle, ActionNone},
	},
	StateConnected: {
		TriggerClosed: {StateWaitingToRetry, ActionScheduleRetry},
		TriggerStop:   {StateIdle, ActionNone},
	},
	StateWaitingToRetry: {
		TriggerClosed:   {StateWaitingToRetry, ActionNone},
		TriggerRetryDue: {StateConnecting, ActionDial},
		TriggerStop:     {StateIdle, ActionCancelRetry},
	},
}

// Policy is the reconnect state machine: a fixed interval, unlimited
// attempts and at most one pending retry. It is not safe for concurrent use.
type Policy struct {
	state   State
	stopped bool
	backoff backoff.BackOff
}

func NewPolicy(interval time.Duration) *Policy {
	return &Policy{backoff: backoff.NewConstantBackOff(interval)}
}

func (p *Policy) State() State {
	return p.state
}

// Fire applies t and returns the action to perform. Once stopped, every
// trigger is ignored.
func (p *Policy) Fire(t Trigger) Action {
	if p.stopped {
		return ActionNone
	}
	if t == TriggerStop {
		p.stopped = true
	}

	tr, ok := transitions[p.state][t]
	if !ok {
		return ActionNone
	}
	p.state = tr.next
	return tr.action
}

// Delay is the wait before the next reconnect attempt.
func (p *Policy) Delay() time.Duration {
	return p.backoff.NextBackOff()
}
