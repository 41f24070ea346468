package xhermes

import (
	"context"
	"fmt"
)

// Default returns the process-wide Bus, building one with defaults on first use.
func Default() *Bus {
	defaultBusMu.Lock()
	defer defaultBusMu.Unlock()

	if defaultBus != nil {
		return defaultBus
	}

	bus, err := NewBusBuilder().Build()
	if err != nil {
		panic(fmt.Sprintf("xhermes: failed to initialize default bus: %v", err))
	}
	defaultBus = bus
	return defaultBus
}

// SetDefault replaces the process-wide default Bus.
func SetDefault(b *Bus) {
	if b == nil {
		panic("xhermes: SetDefault called with nil Bus")
	}
	defaultBusMu.Lock()
	defaultBus = b
	defaultBusMu.Unlock()
}

// Subscribe is the Facade using the default bus.
func Subscribe(busline string, sub Subscription) error {
	return Default().Subscribe(busline, sub)
}

// Unsubscribe is the Facade using the default bus.
func Unsubscribe(busline string, sub Subscription) {
	Default().Unsubscribe(busline, sub)
}

// Trigger is the Facade using the default bus's default busline.
func Trigger(ctx context.Context, event string, args ...any) *Completion {
	return Default().Trigger(ctx, event, args...)
}

// GetBusline is the Facade using the default bus.
func GetBusline(name string) (*Busline, bool) {
	return Default().Busline(name)
}

// Reset is the Facade using the default bus.
func Reset() { Default().Reset() }

// HardReset is the Facade using the default bus.
func HardReset() { Default().HardReset() }

// LoadSubscribers is the Facade using the default bus.
func LoadSubscribers(paths ...string) error {
	return Default().LoadSubscribers(paths...)
}
