package xhermes

import (
	"context"
	"errors"
	"io"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

var _ HealthChecker = (*Bus)(nil)

// reservedNames are the bus operation names a busline may not take.
var reservedNames = []string{
	DefaultBusline,
	"subscribe",
	"unsubscribe",
	"trigger",
	"resolve",
	"enable",
	"disable",
	"activate",
	"deactivate",
	"hasEvent",
	"destroy",
	"reset",
	"hardReset",
	"busline",
	"buslines",
	"loadSubscribers",
	"require",
}

// Bus owns every busline, its observers and triggers. Independent Bus values share nothing.
type Bus struct {
	clock    xclock.Clock
	logger   *xlog.Logger
	invoker  Invoker
	reserved map[string]struct{}
	baseDir  string

	mu       sync.RWMutex
	lines    map[string]*line
	main     *line
	mainHdl  *Busline
	loadedMu sync.Mutex
	loaded   map[string]struct{}

	probePool *ProbePool
	probesMu  sync.RWMutex
	probes    []Probe

	metrics   *busMetrics
	closed    atomic.Bool
	closeOnce sync.Once
}

// busMetrics uses lock-free atomics for telemetry.
type busMetrics struct {
	triggerCount   atomic.Uint64
	completedCount atomic.Uint64
	unknownCount   atomic.Uint64
	inactiveCount  atomic.Uint64
	invokedCount   atomic.Uint64
	faultCount     atomic.Uint64
	processingNs   atomic.Int64
}

func newBus(clock xclock.Clock, logger *xlog.Logger, reserved []string) *Bus {
	b := &Bus{
		clock:    clock,
		logger:   logger,
		invoker:  RecoveryMiddleware()(invokeListener),
		reserved: make(map[string]struct{}, len(reservedNames)+len(reserved)),
		lines:    make(map[string]*line),
		loaded:   make(map[string]struct{}),
		metrics:  &busMetrics{},
	}
	for _, n := range reservedNames {
		b.reserved[n] = struct{}{}
	}
	for _, n := range reserved {
		b.reserved[n] = struct{}{}
	}
	b.main = newLine(uuid.NewString(), DefaultBusline)
	b.lines[DefaultBusline] = b.main
	b.mainHdl = &Busline{bus: b, line: b.main}
	return b
}

// IsReserved reports whether name collides with the bus API surface.
func (b *Bus) IsReserved(name string) bool {
	_, ok := b.reserved[name]
	return ok
}

// Subscribe registers every listener of sub on the named busline ("" means the
// default busline), creating the busline and trigger entries as needed.
// Nothing is registered when an error is returned.
func (b *Bus) Subscribe(busline string, sub Subscription) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if busline == "" {
		busline = DefaultBusline
	} else if b.IsReserved(busline) {
		return &InvalidBuslineNameError{Name: busline}
	}
	for _, l := range sub {
		if !l.valid() {
			return ErrInvalidListener
		}
	}
	if len(sub) == 0 {
		return nil
	}

	b.mu.Lock()
	ln, ok := b.lines[busline]
	if !ok {
		ln = newLine(uuid.NewString(), busline)
		b.lines[busline] = ln
	}
	created := ln.add(sub, b.newTrigger)
	b.mu.Unlock()

	if !ok {
		b.logger.Debug().Str("busline", busline).Msg("xhermes: busline created")
		b.notifyAsync(Signal{Type: SignalBuslineCreated, Busline: busline})
	}
	for _, ev := range created {
		b.logger.Debug().Str("busline", busline).Str("event", ev).Str("binding", TriggerName(ev)).Msg("xhermes: trigger bound")
	}
	b.notifyAsync(Signal{Type: SignalSubscribed, Busline: busline, Observers: len(sub)})
	return nil
}

// Unsubscribe removes the observers registered with exactly these listeners.
// Absent buslines or listeners are ignored; trigger entries remain.
func (b *Bus) Unsubscribe(busline string, sub Subscription) {
	if busline == "" {
		busline = DefaultBusline
	}
	b.mu.RLock()
	ln, ok := b.lines[busline]
	b.mu.RUnlock()
	if !ok || len(sub) == 0 {
		return
	}
	if n := ln.remove(sub); n > 0 {
		b.notifyAsync(Signal{Type: SignalUnsubscribed, Busline: busline, Observers: n})
	}
}

// Main returns the default busline handle. It stays valid across Reset and HardReset.
func (b *Bus) Main() *Busline { return b.mainHdl }

// Busline looks up a live busline by name.
func (b *Bus) Busline(name string) (*Busline, bool) {
	if name == "" || name == DefaultBusline {
		return b.mainHdl, true
	}
	b.mu.RLock()
	ln, ok := b.lines[name]
	b.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return &Busline{bus: b, line: ln}, true
}

// Buslines returns the sorted names of all live buslines, the default one included.
func (b *Bus) Buslines() []string {
	b.mu.RLock()
	out := make([]string, 0, len(b.lines))
	for name := range b.lines {
		out = append(out, name)
	}
	b.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Trigger runs event on the default busline.
func (b *Bus) Trigger(ctx context.Context, event string, args ...any) *Completion {
	return b.dispatch(ctx, b.main, event, args)
}

// Enable re-activates event on the default busline.
func (b *Bus) Enable(event string) error { return b.mainHdl.Enable(event) }

// Disable deactivates event on the default busline.
func (b *Bus) Disable(event string) error { return b.mainHdl.Disable(event) }

// HasEvent reports whether the default busline has a trigger entry for event.
func (b *Bus) HasEvent(event string) bool { return b.mainHdl.HasEvent(event) }

// Reset clears observers, triggers and named bindings of the default busline only.
func (b *Bus) Reset() {
	b.mu.Lock()
	removed := b.main.clear()
	b.mu.Unlock()

	b.logger.Debug().Str("busline", DefaultBusline).Msg("xhermes: default busline reset")
	b.notifyAsync(Signal{Type: SignalReset, Busline: DefaultBusline, Observers: len(removed)})
}

// HardReset destroys every busline and re-initializes the default one: it is
// left empty under a new ID, reachable through the same Main handle.
func (b *Bus) HardReset() {
	b.mu.Lock()
	var names []string
	for name, ln := range b.lines {
		if ln == b.main {
			continue
		}
		b.destroyLocked(ln)
		names = append(names, name)
	}
	removed := b.main.renew(uuid.NewString())
	b.mu.Unlock()

	for _, name := range names {
		b.notifyAsync(Signal{Type: SignalBuslineDestroyed, Busline: name})
	}
	b.notifyAsync(Signal{Type: SignalHardReset})
	b.logger.Debug().Str("busline", DefaultBusline).Msg("xhermes: default busline reset")
	b.notifyAsync(Signal{Type: SignalReset, Busline: DefaultBusline, Observers: len(removed)})
}

// destroy removes a non-default busline instance from the bus.
func (b *Bus) destroy(ln *line) error {
	if ln == b.main {
		return ErrDefaultBusline
	}
	b.mu.Lock()
	if ln.destroyed.Load() {
		b.mu.Unlock()
		return ErrUnknownBusline
	}
	b.destroyLocked(ln)
	b.mu.Unlock()

	b.logger.Debug().Str("busline", ln.name).Msg("xhermes: busline destroyed")
	b.notifyAsync(Signal{Type: SignalBuslineDestroyed, Busline: ln.name})
	return nil
}

// destroyLocked tears a busline down while b.mu is held, so no caller sees a partial teardown.
func (b *Bus) destroyLocked(ln *line) {
	ln.destroyed.Store(true)
	ln.clear()
	if cur, ok := b.lines[ln.name]; ok && cur == ln {
		delete(b.lines, ln.name)
	}
}

// GetMetrics returns current bus metrics.
func (b *Bus) GetMetrics() Metrics {
	var dropped uint64
	if b.probePool != nil {
		dropped = b.probePool.Stats().Dropped
	}
	b.mu.RLock()
	lines := len(b.lines)
	b.mu.RUnlock()
	return Metrics{
		Triggered:           b.metrics.triggerCount.Load(),
		Completed:           b.metrics.completedCount.Load(),
		UnknownEvents:       b.metrics.unknownCount.Load(),
		InactiveEvents:      b.metrics.inactiveCount.Load(),
		ObserversInvoked:    b.metrics.invokedCount.Load(),
		Faults:              b.metrics.faultCount.Load(),
		SignalsDropped:      dropped,
		Buslines:            lines,
		AvgProcessingTimeMs: float64(b.metrics.processingNs.Load()) / 1e6,
	}
}

// Health reports "degraded" when more than 5% of invoked observers faulted.
func (b *Bus) Health(ctx context.Context) HealthStatus {
	if b.closed.Load() {
		return HealthStatus{
			Status:    "unhealthy",
			Timestamp: b.clock.Now(),
			Message:   "bus is closed",
		}
	}

	metrics := b.GetMetrics()
	status := "healthy"
	if metrics.Faults > 0 && metrics.ObserversInvoked > 0 {
		faultRate := float64(metrics.Faults) / float64(metrics.ObserversInvoked)
		if faultRate > 0.05 {
			status = "degraded"
		}
	}

	return HealthStatus{
		Status:    status,
		Metrics:   metrics,
		Timestamp: b.clock.Now(),
	}
}

// Close stops accepting subscriptions and triggers, drains the probe pool and
// closes probes that implement io.Closer. Passes already running are left to finish.
func (b *Bus) Close(ctx context.Context) error {
	var closeErr error
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		if b.probePool != nil {
			timeout := 5 * time.Second
			if dl, ok := ctx.Deadline(); ok {
				timeout = time.Until(dl)
			}
			if err := b.probePool.Close(timeout); err != nil {
				b.logger.Warn().Err(err).Msg("xhermes: probe pool shutdown timeout")
				closeErr = err
			}
		}

		b.probesMu.RLock()
		probes := slices.Clone(b.probes)
		b.probesMu.RUnlock()
		for _, p := range probes {
			c, ok := p.(io.Closer)
			if !ok {
				continue
			}
			if err := c.Close(); err != nil {
				b.logger.Warn().Err(err).Msg("xhermes: probe close failed")
				closeErr = errors.Join(closeErr, err)
			}
		}
	})
	return closeErr
}

// AddProbe registers a probe (thread-safe).
func (b *Bus) AddProbe(p Probe) {
	if p == nil {
		return
	}
	b.probesMu.Lock()
	b.probes = append(b.probes, p)
	b.probesMu.Unlock()
}

// RemoveProbe removes the first registered probe equal to p. Probes of a
// non-comparable type, such as ProbeFunc, cannot be matched and are left in place.
func (b *Bus) RemoveProbe(p Probe) {
	if p == nil || !reflect.TypeOf(p).Comparable() {
		return
	}
	b.probesMu.Lock()
	defer b.probesMu.Unlock()
	for i, o := range b.probes {
		if reflect.TypeOf(o).Comparable() && o == p {
			b.probes = slices.Delete(b.probes, i, i+1)
			break
		}
	}
}

// notifyAsync hands a signal to the probe pool, or delivers it inline when no pool is configured.
func (b *Bus) notifyAsync(s Signal) {
	b.probesMu.RLock()
	none := len(b.probes) == 0
	b.probesMu.RUnlock()
	if none {
		return
	}
	if s.At.IsZero() {
		s.At = b.clock.Now()
	}
	if b.probePool != nil {
		b.probePool.Notify(s)
		return
	}
	b.deliverSignal(s)
}

// deliverSignal fans s out to the probes registered at delivery time.
func (b *Bus) deliverSignal(s Signal) {
	b.probesMu.RLock()
	probes := slices.Clone(b.probes)
	b.probesMu.RUnlock()
	for _, p := range probes {
		dispatchSignal(p, s)
	}
}

// recordProcessingTime records pass duration using an exponential moving average.
func (b *Bus) recordProcessingTime(ns int64) {
	const alpha = 0.2
	current := b.metrics.processingNs.Load()
	if current == 0 {
		b.metrics.processingNs.Store(ns)
		return
	}
	newAvg := int64(float64(ns)*alpha + float64(current)*(1-alpha))
	b.metrics.processingNs.Store(newAvg)
}
