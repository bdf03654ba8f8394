package clock

import (
	"sync"
	"time"
)

// Fake is a deterministic Clock. Time only moves when Advance or Set is called;
// tickers then deliver at most one pending tick each (like time.Ticker, a slow
// reader drops ticks) and expired timers run on the caller's goroutine.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers map[*fakeTicker]struct{}
	timers  map[*fakeTimer]struct{}
}

// NewFake returns a Fake clock positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{
		now:     start,
		tickers: make(map[*fakeTicker]struct{}),
		timers:  make(map[*fakeTimer]struct{}),
	}
}

// Now returns the current virtual time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTicker registers a ticker that fires every d of virtual time.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTicker{
		clock:  f,
		period: d,
		next:   f.now.Add(d),
		ch:     make(chan time.Time, 1),
	}
	f.tickers[t] = struct{}{}
	return t
}

// AfterFunc schedules fn to run once the virtual clock reaches now+d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	t := &fakeTimer{clock: f, deadline: f.now.Add(d), fn: fn}
	f.timers[t] = struct{}{}
	f.mu.Unlock()

	if d <= 0 {
		f.fireTimers()
	}
	return t
}

// Advance moves the clock forward by d and fires everything that came due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
	f.fire()
}

// Set jumps the clock to t. Moving backwards fires nothing.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
	f.fire()
}

// ActiveTickers reports how many tickers have not been stopped.
func (f *Fake) ActiveTickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// PendingTimers reports how many timers are neither stopped nor fired.
func (f *Fake) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

func (f *Fake) fire() {
	f.fireTickers()
	f.fireTimers()
}

func (f *Fake) fireTickers() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for t := range f.tickers {
		var last time.Time
		due := false
		for !t.next.After(f.now) {
			last = t.next
			due = true
			t.next = t.next.Add(t.period)
		}
		if !due {
			continue
		}
		select {
		case t.ch <- last:
		default:
		}
	}
}

func (f *Fake) fireTimers() {
	f.mu.Lock()
	var due []*fakeTimer
	for t := range f.timers {
		if !t.deadline.After(f.now) {
			due = append(due, t)
			delete(f.timers, t)
		}
	}
	f.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

type fakeTicker struct {
	clock  *Fake
	period time.Duration
	next   time.Time
	ch     chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time {
	return t.ch
}

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	delete(t.clock.tickers, t)
	t.clock.mu.Unlock()
}

type fakeTimer struct {
	clock    *Fake
	deadline time.Time
	fn       func()
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if _, ok := t.clock.timers[t]; !ok {
		return false
	}
	delete(t.clock.timers, t)
	return true
}
