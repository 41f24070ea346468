package xhermes

import (
	"github.com/trickstertwo/xlog"
)

// ProbeFunc is an Adapter that lets a plain function satisfy Probe.
type ProbeFunc func(s Signal)

func (f ProbeFunc) OnSignal(s Signal) { f(s) }

// LoggingProbe is an Adapter that emits signals via xlog.
type LoggingProbe struct {
	Logger *xlog.Logger
}

func (p LoggingProbe) OnSignal(s Signal) {
	if p.Logger == nil {
		return
	}
	lg := p.Logger.With(
		xlog.Str("type", string(s.Type)),
		xlog.Str("busline", s.Busline),
		xlog.Str("event", s.Event),
		xlog.Str("invocation", s.Invocation),
	)
	switch s.Type {
	case SignalObserverFault, SignalUnknownEvent, SignalResolveRepeated:
		lg.Warn().Err(s.Err).Str("role", s.Role.String()).Msg("xhermes signal")
	default:
		if s.Duration > 0 {
			lg = lg.With(xlog.Dur("duration", s.Duration))
		}
		lg.Debug().Msg("xhermes signal")
	}
}

// dispatchSignal delivers one signal; a panicking probe must not take the caller down.
func dispatchSignal(p Probe, s Signal) {
	if p == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	p.OnSignal(s)
}
