package xhermes

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// ProbePool moves signal delivery off the trigger pass. Signals are queued
// and handed to deliver by a fixed set of workers; deliver decides which
// probes see them at that moment. A signal that finds the queue full, or the
// pool closed, is counted as dropped.
type ProbePool struct {
	deliver func(Signal)
	queue   chan Signal
	workers int

	// mu orders Notify against Close so nothing is sent on a closed queue.
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dropped   atomic.Uint64
	delivered atomic.Uint64
	panicked  atomic.Uint64
}

// NewProbePool starts workers that pass queued signals to deliver.
// workers defaults to 4 and bufferSize to 1000 when not positive.
func NewProbePool(workers, bufferSize int, deliver func(Signal)) *ProbePool {
	if workers < 1 {
		workers = 4
	}
	if bufferSize < 1 {
		bufferSize = 1000
	}
	pp := &ProbePool{
		deliver: deliver,
		queue:   make(chan Signal, bufferSize),
		workers: workers,
	}
	pp.wg.Add(workers)
	for range workers {
		go pp.run()
	}
	return pp
}

// Notify queues s without blocking and reports whether it was accepted.
func (pp *ProbePool) Notify(s Signal) bool {
	pp.mu.RLock()
	defer pp.mu.RUnlock()
	if pp.closed {
		pp.dropped.Add(1)
		return false
	}
	select {
	case pp.queue <- s:
		return true
	default:
		pp.dropped.Add(1)
		return false
	}
}

// run delivers until the queue is closed and empty.
func (pp *ProbePool) run() {
	defer pp.wg.Done()
	for s := range pp.queue {
		var pc panics.Catcher
		pc.Try(func() { pp.deliver(s) })
		if pc.Recovered() != nil {
			pp.panicked.Add(1)
			continue
		}
		pp.delivered.Add(1)
	}
}

// Close stops accepting signals and waits up to timeout for the queued ones
// to be delivered. Later Notify calls are counted as dropped.
func (pp *ProbePool) Close(timeout time.Duration) error {
	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		return nil
	}
	pp.closed = true
	close(pp.queue)
	pp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		pp.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrProbePoolShutdownTimeout
	}
}

// Stats returns current pool counters.
func (pp *ProbePool) Stats() PoolStats {
	return PoolStats{
		Dropped:    pp.dropped.Load(),
		Delivered:  pp.delivered.Load(),
		Panicked:   pp.panicked.Load(),
		Queued:     len(pp.queue),
		Workers:    pp.workers,
		BufferSize: cap(pp.queue),
	}
}
