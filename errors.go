package xhermes

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBuslineName       = errors.New("xhermes: invalid busline name")
	ErrInvalidListener          = errors.New("xhermes: invalid listener")
	ErrUnknownEvent             = errors.New("xhermes: unknown event")
	ErrUnknownBusline           = errors.New("xhermes: unregistered busline")
	ErrDefaultBusline           = errors.New("xhermes: default busline cannot be destroyed")
	ErrBusClosed                = errors.New("xhermes: bus is closed")
	ErrUnknownModule            = errors.New("xhermes: unknown subscriber module")
	ErrHandlerPanic             = errors.New("xhermes: handler panic")
	ErrProbePoolShutdownTimeout = errors.New("xhermes: probe pool shutdown timeout")
	ErrArgMissing               = errors.New("xhermes: argument missing")
	ErrArgType                  = errors.New("xhermes: argument type mismatch")
)

// InvalidBuslineNameError reports a busline name that collides with the reserved API surface.
type InvalidBuslineNameError struct{ Name string }

func (e *InvalidBuslineNameError) Error() string {
	return fmt.Sprintf("xhermes: busline name %q is reserved", e.Name)
}

func (e *InvalidBuslineNameError) Unwrap() error { return ErrInvalidBuslineName }

// UnknownModuleError is returned by LoadSubscribers for paths nobody registered.
type UnknownModuleError struct{ Path string }

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("xhermes: no subscriber module registered at %q", e.Path)
}

func (e *UnknownModuleError) Unwrap() error { return ErrUnknownModule }

// ObserverError records a fault raised by one observer during a trigger pass.
// The pass keeps going; faults are collected on the Completion.
type ObserverError struct {
	Busline  string
	Event    string
	Role     Role
	Location string
	Err      error
}

func (e *ObserverError) Error() string {
	loc := ""
	if e.Location != "" {
		loc = " (" + e.Location + ")"
	}
	return fmt.Sprintf("xhermes: %s observer of %s/%s failed%s: %v", e.Role, e.Busline, e.Event, loc, e.Err)
}

func (e *ObserverError) Unwrap() error { return e.Err }
