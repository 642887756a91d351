package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/daemonp/webasto-monitor/internal/event"
	"github.com/daemonp/webasto-monitor/internal/log"
	"github.com/daemonp/webasto-monitor/internal/metrics"
)

const (
	eventBuffer  = 100
	closeTimeout = time.Second
)

var ErrNotConnected = errors.New("stream not connected")

type Timer interface {
	Stop() bool
}

// Clock schedules reconnect attempts.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Options struct {
	URL           string
	RetryInterval time.Duration
	Dialer        *websocket.Dialer
	Clock         Clock
	Decoder       *event.Decoder
	Logger        *log.Logger
	Metrics       *metrics.Metrics
}

// Session owns the live connection to the event stream. Decoded frames and
// lifecycle events are delivered in order on Events.
type Session struct {
	url     string
	dialer  *websocket.Dialer
	clock   Clock
	decoder *event.Decoder
	log     *log.Logger
	metrics *metrics.Metrics

	events chan event.Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	policy *Policy
	conn   *websocket.Conn
	timer  Timer
	closed bool

	writeMu sync.Mutex
}

func NewSession(opts Options) *Session {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Decoder == nil {
		opts.Decoder = event.NewDecoder()
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		url:     opts.URL,
		dialer:  opts.Dialer,
		clock:   opts.Clock,
		decoder: opts.Decoder,
		log:     opts.Logger,
		metrics: opts.Metrics,
		events:  make(chan event.Event, eventBuffer),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		policy:  NewPolicy(opts.RetryInterval),
	}
}

// Events is closed after Close returns.
func (s *Session) Events() <-chan event.Event {
	return s.events
}

// Start begins connecting. Calling it again has no effect.
func (s *Session) Start() {
	s.fire(TriggerStart)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.State()
}

// Send writes v as a JSON text frame on the live connection.
func (s *Session) Send(v interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}

// Close cancels any pending reconnect, closes the connection and waits for
// the session goroutines before closing Events.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.perform(s.policy.Fire(TriggerStop))
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	close(s.done)
	s.cancel()
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, s.clock.Now().Add(closeTimeout))
		conn.Close()
	}

	s.wg.Wait()
	close(s.events)
	s.log.Info("Stream session closed")
	return nil
}

func (s *Session) fire(t Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.perform(s.policy.Fire(t))
}

// perform runs with mu held.
func (s *Session) perform(a Action) {
	switch a {
	case ActionDial:
		s.timer = nil
		s.wg.Add(1)
		go s.dial()
	case ActionScheduleRetry:
		delay := s.policy.Delay()
		s.metrics.ReconnectScheduled()
		s.log.Info("Reconnecting to %s in %s", s.url, delay)
		s.timer = s.clock.AfterFunc(delay, func() { s.fire(TriggerRetryDue) })
	case ActionCancelRetry:
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
	}
}

func (s *Session) dial() {
	defer s.wg.Done()

	s.log.Debug("Connecting to %s", s.url)
	conn, _, err := s.dialer.DialContext(s.ctx, s.url, nil)
	if err != nil {
		s.log.Warn("Failed to connect to %s: %v", s.url, err)
		s.emit(event.SessionError{Err: err, At: s.clock.Now()})
		s.closedWith(err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.perform(s.policy.Fire(TriggerOpened))
	s.mu.Unlock()

	s.log.Info("Connected to %s", s.url)
	s.metrics.SetLinkUp(true)
	s.emit(event.SessionOpened{At: s.clock.Now()})
	s.readLoop(conn)
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			s.mu.Unlock()
			conn.Close()

			select {
			case <-s.done:
				return
			default:
			}
			s.log.Warn("Stream connection closed: %v", err)
			s.closedWith(err)
			return
		}

		ev, err := s.decoder.Decode(frame)
		if err != nil {
			s.log.Warn("Discarding frame: %v", err)
			s.metrics.DecodeError()
			continue
		}
		s.metrics.FrameReceived(ev.Kind().String())
		s.emit(ev)
	}
}

func (s *Session) closedWith(err error) {
	s.metrics.SetLinkUp(false)
	s.emit(event.SessionClosed{Err: err, At: s.clock.Now()})
	s.fire(TriggerClosed)
}

func (s *Session) emit(ev event.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}
