package redisaudit

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trickstertwo/xhermes"
	"github.com/trickstertwo/xlog"
)

// Probe writes every xhermes signal to a Redis stream.
type Probe struct {
	cfg    Config
	client redis.UniversalClient
	owned  bool
	logger *xlog.Logger
	types  map[xhermes.SignalType]struct{}

	written atomic.Uint64
	failed  atomic.Uint64
	closed  atomic.Bool
}

var _ xhermes.Probe = (*Probe)(nil)

// Stats are the probe's write counters.
type Stats struct {
	Written uint64
	Failed  uint64
}

// NewProbe dials Redis and verifies the connection.
func NewProbe(cfg Config) (*Probe, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:    tls.VersionTLS12,
			ServerName:    cfg.TLSServerName,
			Renegotiation: tls.RenegotiateNever,
		}
	}

	client := redis.NewClient(opts)
	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, err
	}

	p := newProbe(cfg, client)
	p.owned = true
	return p, nil
}

// NewProbeWithClient wraps an existing client. Close leaves the client open.
func NewProbeWithClient(client redis.UniversalClient, cfg Config) (*Probe, error) {
	if client == nil {
		return nil, errors.New("redisaudit: nil client")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newProbe(cfg, client), nil
}

func newProbe(cfg Config, client redis.UniversalClient) *Probe {
	p := &Probe{
		cfg:    cfg,
		client: client,
		logger: xlog.Default(),
	}
	if len(cfg.Types) > 0 {
		p.types = make(map[xhermes.SignalType]struct{}, len(cfg.Types))
		for _, t := range cfg.Types {
			p.types[xhermes.SignalType(t)] = struct{}{}
		}
	}
	return p
}

// SetLogger replaces the logger used to report write failures.
func (p *Probe) SetLogger(l *xlog.Logger) {
	if l != nil {
		p.logger = l
	}
}

// Stream is the target stream name.
func (p *Probe) Stream() string { return p.cfg.Stream }

// OnSignal appends one entry per signal. Write failures are counted and
// logged; they never reach the bus.
func (p *Probe) OnSignal(s xhermes.Signal) {
	if p.closed.Load() {
		return
	}
	if p.types != nil {
		if _, ok := p.types[s.Type]; !ok {
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: p.cfg.Stream,
		ID:     "*",
		Values: entry(s),
	}
	if p.cfg.MaxLenApprox > 0 {
		args.MaxLen = p.cfg.MaxLenApprox
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		p.failed.Add(1)
		p.logger.Warn().
			Err(err).
			Str("stream", p.cfg.Stream).
			Str("type", string(s.Type)).
			Str("invocation", s.Invocation).
			Msg("redisaudit: xadd failed")
		return
	}
	p.written.Add(1)
}

// entry flattens a signal into stream fields; empty fields are left out.
func entry(s xhermes.Signal) map[string]any {
	vals := make(map[string]any, 10)
	vals[fieldType] = string(s.Type)
	vals[fieldAt] = s.At.UnixNano()
	if s.Busline != "" {
		vals[fieldBusline] = s.Busline
	}
	if s.Event != "" {
		vals[fieldEvent] = s.Event
	}
	if s.Invocation != "" {
		vals[fieldInvocation] = s.Invocation
	}
	switch s.Type {
	case xhermes.SignalStageDone, xhermes.SignalObserverFault, xhermes.SignalResolveRepeated:
		vals[fieldRole] = s.Role.String()
	}
	if s.Status != xhermes.StatusPending {
		vals[fieldStatus] = s.Status.String()
	}
	if s.Observers > 0 {
		vals[fieldObservers] = s.Observers
	}
	if s.Duration > 0 {
		vals[fieldDuration] = s.Duration.Nanoseconds()
	}
	if s.Err != nil {
		vals[fieldError] = s.Err.Error()
	}
	return vals
}

// Stats returns the write counters.
func (p *Probe) Stats() Stats {
	return Stats{Written: p.written.Load(), Failed: p.failed.Load()}
}

// Close stops recording and closes the client if the probe dialed it.
func (p *Probe) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	if p.owned {
		return p.client.Close()
	}
	return nil
}

func ping(c *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := c.Ping(ctx).Result()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("redis ping timeout: %w", err)
		}
		return err
	}
	if strings.ToUpper(res) != "PONG" {
		return fmt.Errorf("unexpected redis ping result: %s", res)
	}
	return nil
}
