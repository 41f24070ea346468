package xhermes

import (
	"context"
	"time"
)

// DefaultBusline is the name of the busline used when none is given.
const DefaultBusline = "main"

// Role is the execution phase an observer belongs to.
type Role uint8

const (
	// RoleBefore observers run first, before any primary observer starts.
	RoleBefore Role = iota
	// RoleOn observers are the primary observers of an event.
	RoleOn
	// RoleAfter observers run once every primary observer is done.
	RoleAfter
)

var roles = [...]Role{RoleBefore, RoleOn, RoleAfter}

func (r Role) String() string {
	switch r {
	case RoleBefore:
		return "before"
	case RoleOn:
		return "on"
	case RoleAfter:
		return "after"
	default:
		return "unknown"
	}
}

// HandlerFunc is a fire-and-forget observer. The pass moves to the next
// observer as soon as it returns. A non-nil error is recorded as a fault.
type HandlerFunc func(ctx context.Context, args ...any) error

// SyncHandlerFunc is an awaited observer. The pass does not advance until
// resolve is called, possibly from another goroutine. Returning an error
// (or panicking) counts as resolving with a nil payload.
type SyncHandlerFunc func(ctx context.Context, resolve Resolve, args ...any) error

// Resolve signals completion of a synchronous observer. Only the first call counts.
type Resolve func(payload any)

// TriggerFunc runs the pipeline for one (busline, event) pair.
type TriggerFunc func(ctx context.Context, args ...any) *Completion

// Listener declares one observer. Exactly one of Handler or SyncHandler must be set.
// The *Listener pointer is the observer's identity for Unsubscribe, Activate and Deactivate.
type Listener struct {
	Event       string
	Role        Role
	Handler     HandlerFunc
	SyncHandler SyncHandlerFunc
	// Location is free-form registration site info reported with faults.
	Location string
}

// Sync reports whether the pass must await this listener's Resolve.
func (l *Listener) Sync() bool { return l.SyncHandler != nil }

// At records where the listener was registered and returns it for chaining.
func (l *Listener) At(location string) *Listener {
	l.Location = location
	return l
}

func (l *Listener) valid() bool {
	if l == nil || l.Event == "" || l.Role > RoleAfter {
		return false
	}
	return (l.Handler == nil) != (l.SyncHandler == nil)
}

// Subscription is the set of listeners passed to Subscribe and Unsubscribe.
type Subscription []*Listener

// Status describes how a trigger pass ended.
type Status uint8

const (
	// StatusPending is reported while the pass is still running.
	StatusPending Status = iota
	// StatusCompleted means all three stages ran.
	StatusCompleted
	// StatusInactive means the event was disabled; no observer ran.
	StatusInactive
	// StatusUnknownEvent means the busline has no trigger entry for the event.
	StatusUnknownEvent
	// StatusUnknownBusline means the busline handle was destroyed.
	StatusUnknownBusline
	// StatusClosed means the bus was closed before the trigger.
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusInactive:
		return "inactive"
	case StatusUnknownEvent:
		return "unknown_event"
	case StatusUnknownBusline:
		return "unknown_busline"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SignalType enumerates bus lifecycle signals delivered to probes.
type SignalType string

const (
	SignalSubscribed       SignalType = "subscribed"
	SignalUnsubscribed     SignalType = "unsubscribed"
	SignalTriggerStart     SignalType = "trigger_start"
	SignalTriggerDone      SignalType = "trigger_done"
	SignalStageDone        SignalType = "stage_done"
	SignalObserverFault    SignalType = "observer_fault"
	SignalUnknownEvent     SignalType = "unknown_event"
	SignalInactiveEvent    SignalType = "inactive_event"
	SignalResolveRepeated  SignalType = "resolve_repeated"
	SignalBuslineCreated   SignalType = "busline_created"
	SignalBuslineDestroyed SignalType = "busline_destroyed"
	SignalReset            SignalType = "reset"
	SignalHardReset        SignalType = "hard_reset"
)

// Signal carries telemetry for probes.
type Signal struct {
	Type       SignalType
	Busline    string
	Event      string
	Invocation string
	Role       Role
	Status     Status
	Observers  int
	Duration   time.Duration
	Err        error
	At         time.Time
}

// PoolStats reports probe pool counters.
type PoolStats struct {
	Dropped    uint64 // rejected: queue full or pool closed
	Delivered  uint64
	Panicked   uint64 // deliveries that panicked outside a probe
	Queued     int
	Workers    int
	BufferSize int
}

// Metrics defines observable telemetry for the bus.
type Metrics struct {
	Triggered           uint64
	Completed           uint64
	UnknownEvents       uint64
	InactiveEvents      uint64
	ObserversInvoked    uint64
	Faults              uint64
	SignalsDropped      uint64
	Buslines            int
	AvgProcessingTimeMs float64
}

// HealthStatus reports bus health.
type HealthStatus struct {
	Status    string // "healthy", "degraded", "unhealthy"
	Metrics   Metrics
	Timestamp time.Time
	Message   string
}
