package goOTP

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/goOTP/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DisplayState is the lifecycle state of one on-screen OTP field.
type DisplayState uint8

const (
	// DisplayIdle means no secret is attached and no ticks are delivered.
	DisplayIdle DisplayState = iota
	// DisplayRunning means the display receives an Update on every tick.
	DisplayRunning
)

func (s DisplayState) String() string {
	switch s {
	case DisplayRunning:
		return "running"
	default:
		return "idle"
	}
}

// Update is what a display renders: a code and the countdown of the window it
// belongs to. Both fields always come from the same clock read, so a rendered
// code never lags behind its countdown.
type Update struct {
	DisplayID string
	Code      string
	Counter   uint64
	Period    int
	Remaining int
	// Rotated is true on the first update of a new window after the display
	// started, i.e. the tick on which Remaining wrapped back to Period.
	Rotated bool
	At      time.Time
}

// UpdateFunc receives display updates. It runs on the scheduler goroutine
// (or on the caller of Display.Start for the initial update) and must not call
// Start or Stop on the display that invoked it.
type UpdateFunc func(Update)

// Scheduler drives every running Display from a single ticker. Each tick reads
// the clock once and hands that instant to all displays, so codes shown side by
// side never disagree about the current window. The ticker exists only while
// at least one display is running, and its first tick lands on the next
// multiple of the interval so rotations follow the wall clock.
type Scheduler struct {
	clock    clock.Clock
	deriver  *Deriver
	interval time.Duration
	defaults Params
	metrics  *Metrics
	audit    *auditDispatcher
	log      logrus.FieldLogger

	mu       sync.Mutex
	displays map[*Display]struct{}
	align    clock.Timer
	ticker   clock.Ticker
	stop     chan struct{}
	done     chan struct{}
	closed   bool
}

func newScheduler(clk clock.Clock, deriver *Deriver, interval time.Duration, defaults Params, metrics *Metrics, audit *auditDispatcher, log logrus.FieldLogger) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	if deriver == nil {
		deriver = defaultDeriver
	}
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		clock:    clk,
		deriver:  deriver,
		interval: interval,
		defaults: defaults.withDefaults(),
		metrics:  metrics,
		audit:    audit,
		log:      log,
		displays: make(map[*Display]struct{}),
	}
}

// NewDisplay returns an idle display that reports to fn once started.
func (s *Scheduler) NewDisplay(fn UpdateFunc) *Display {
	if fn == nil {
		fn = func(Update) {}
	}
	return &Display{
		id:    uuid.NewString(),
		sched: s,
		fn:    fn,
	}
}

// Running reports how many displays are currently attached to the ticker.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.displays)
}

// Close stops every display and releases the ticker. It waits for an in-flight
// tick to finish, so it must not be called from an UpdateFunc.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	displays := make([]*Display, 0, len(s.displays))
	for d := range s.displays {
		displays = append(displays, d)
	}
	done := s.stopTickerLocked()
	s.mu.Unlock()

	for _, d := range displays {
		d.Stop()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Scheduler) register(d *Display) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrDisplayClosed
	}
	s.displays[d] = struct{}{}
	if s.stop == nil {
		stop := make(chan struct{})
		started := make(chan clock.Ticker, 1)
		s.stop = stop
		s.done = make(chan struct{})
		s.align = s.clock.AfterFunc(s.alignDelay(), func() { s.startTicker(stop, started) })
		go s.run(started, stop, s.done)
	}
	return nil
}

// alignDelay is the time left until the next multiple of the interval.
func (s *Scheduler) alignDelay() time.Duration {
	now := s.clock.Now()
	return now.Truncate(s.interval).Add(s.interval).Sub(now)
}

func (s *Scheduler) startTicker(stop chan struct{}, started chan<- clock.Ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != stop {
		return
	}
	s.align = nil
	s.ticker = s.clock.NewTicker(s.interval)
	started <- s.ticker
}

func (s *Scheduler) unregister(d *Display) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.displays[d]; !ok {
		return
	}
	delete(s.displays, d)
	if len(s.displays) == 0 {
		s.stopTickerLocked()
	}
}

func (s *Scheduler) stopTickerLocked() chan struct{} {
	if s.stop == nil {
		return nil
	}
	if s.align != nil {
		s.align.Stop()
		s.align = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stop)
	done := s.done
	s.ticker = nil
	s.stop = nil
	s.done = nil
	return done
}

func (s *Scheduler) run(started <-chan clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	var t clock.Ticker
	select {
	case <-stop:
		return
	case t = <-started:
	}
	s.tick(stop)
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			s.tick(stop)
		}
	}
}

func (s *Scheduler) tick(stop <-chan struct{}) {
	start := time.Now()

	s.mu.Lock()
	if s.stop == nil || s.stop != stop {
		s.mu.Unlock()
		return
	}
	displays := make([]*Display, 0, len(s.displays))
	for d := range s.displays {
		displays = append(displays, d)
	}
	s.mu.Unlock()

	now := s.clock.Now()
	for _, d := range displays {
		d.advance(now)
	}

	s.metrics.Inc(MetricSchedulerTick)
	s.metrics.Observe(MetricTickLatency, time.Since(start))
}

// Display is the countdown state machine of one on-screen OTP field.
type Display struct {
	id    string
	sched *Scheduler
	fn    UpdateFunc

	mu         sync.Mutex
	state      DisplayState
	secret     string
	params     Params
	hasCounter bool
	current    Update
}

// ID returns the display's unique identifier.
func (d *Display) ID() string {
	return d.id
}

// State returns the current lifecycle state.
func (d *Display) State() DisplayState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Current returns the last delivered update while the display is running.
func (d *Display) Current() (Update, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DisplayRunning {
		return Update{}, false
	}
	return d.current, true
}

// Start attaches secret to the display, delivers the current code and
// countdown immediately and joins the scheduler's tick. Starting a running
// display replaces its secret. An invalid secret or parameter set leaves the
// display idle so callers render a placeholder instead of a wrong code.
func (d *Display) Start(secret string, p Params) error {
	s := d.sched
	if p.Digits == 0 {
		p.Digits = s.defaults.Digits
	}
	if p.Period == 0 {
		p.Period = s.defaults.Period
	}
	if err := p.Validate(); err != nil {
		s.metrics.Inc(MetricInvalidParameters)
		d.Stop()
		return err
	}
	key := DecodeSecret(secret)
	empty := len(key) == 0
	clear(key)
	if empty {
		s.metrics.Inc(MetricInvalidSecret)
		d.Stop()
		return ErrInvalidSecret
	}
	if s.isClosed() {
		return ErrDisplayClosed
	}

	now := s.clock.Now()

	d.mu.Lock()
	wasRunning := d.state == DisplayRunning
	d.secret = secret
	d.params = p
	d.hasCounter = false
	u, err := d.computeLocked(now)
	if err != nil {
		d.state = DisplayIdle
		d.secret = ""
		d.mu.Unlock()
		s.unregister(d)
		return err
	}
	d.state = DisplayRunning
	d.current = u
	d.fn(u)
	d.mu.Unlock()

	if err := s.register(d); err != nil {
		d.mu.Lock()
		d.state = DisplayIdle
		d.secret = ""
		d.mu.Unlock()
		return err
	}

	if !wasRunning {
		s.metrics.Inc(MetricDisplayStarted)
		s.audit.Emit(context.Background(), newAuditEvent(auditEventDisplayStarted, true, "", d.id, nil, map[string]string{
			"period": strconv.Itoa(p.Period),
			"digits": strconv.Itoa(p.Digits),
		}))
		s.log.WithFields(logrus.Fields{"display_id": d.id, "period": p.Period}).Debug("goOTP: display started")
	}
	return nil
}

// Stop detaches the secret and leaves the scheduler tick. Once Stop returns no
// further update is delivered. Stopping an idle display is a no-op.
func (d *Display) Stop() {
	d.mu.Lock()
	if d.state != DisplayRunning {
		d.mu.Unlock()
		return
	}
	d.state = DisplayIdle
	d.secret = ""
	d.current = Update{}
	d.hasCounter = false
	d.mu.Unlock()

	s := d.sched
	s.unregister(d)
	s.metrics.Inc(MetricDisplayStopped)
	s.audit.Emit(context.Background(), newAuditEvent(auditEventDisplayStopped, true, "", d.id, nil, nil))
	s.log.WithField("display_id", d.id).Debug("goOTP: display stopped")
}

func (d *Display) advance(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DisplayRunning {
		return
	}
	u, err := d.computeLocked(now)
	if err != nil {
		d.sched.log.WithError(err).WithField("display_id", d.id).Warn("goOTP: display tick skipped")
		return
	}
	d.current = u
	d.fn(u)
}

// computeLocked derives the update for now. The code is re-derived whenever
// the counter differs from the previous update, before Remaining is reported.
func (d *Display) computeLocked(now time.Time) (Update, error) {
	s := d.sched
	unix := now.Unix()
	counter, err := Counter(unix, d.params.Period)
	if err != nil {
		return Update{}, err
	}

	u := Update{
		DisplayID: d.id,
		Counter:   counter,
		Period:    d.params.Period,
		Remaining: Remaining(unix, d.params.Period),
		At:        now,
	}

	if d.hasCounter && d.current.Counter == counter {
		u.Code = d.current.Code
		return u, nil
	}

	code, err := s.deriver.codeForCounter(d.secret, counter, d.params.Digits)
	if err != nil {
		return Update{}, err
	}
	u.Code = code
	u.Rotated = d.hasCounter
	d.hasCounter = true

	s.metrics.Inc(MetricCodeGenerated)
	if u.Rotated {
		s.metrics.Inc(MetricWindowRotated)
		s.log.WithFields(logrus.Fields{"display_id": d.id, "counter": counter}).Debug("goOTP: window rotated")
	}
	return u, nil
}
