package xhermes

import (
	"errors"
	"path"
	"strings"
	"sync"
)

// ModuleFunc performs a subscriber module's subscribe side effects on a bus.
type ModuleFunc func(b *Bus) error

var (
	moduleRegistryMu sync.RWMutex
	moduleRegistry   = map[string]ModuleFunc{}
)

// RegisterModule makes a subscriber module loadable by path, typically from an init func.
func RegisterModule(modulePath string, fn ModuleFunc) error {
	if modulePath == "" {
		return errors.New("module path must not be empty")
	}
	if fn == nil {
		return errors.New("module func must not be nil")
	}
	moduleRegistryMu.Lock()
	moduleRegistry[path.Clean(modulePath)] = fn
	moduleRegistryMu.Unlock()
	return nil
}

func lookupModule(modulePath string) (ModuleFunc, bool) {
	moduleRegistryMu.RLock()
	fn, ok := moduleRegistry[modulePath]
	moduleRegistryMu.RUnlock()
	return fn, ok
}

// resolveModulePath joins relative ("./", "../") paths onto baseDir.
func resolveModulePath(baseDir, p string) string {
	if strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") {
		return path.Clean(path.Join(baseDir, p))
	}
	return path.Clean(p)
}

// LoadSubscribers runs each named module once per bus. Paths starting with
// "./" or "../" are resolved against the configured base directory. Loading
// stops at the first unknown path or module error.
func (b *Bus) LoadSubscribers(paths ...string) error {
	for _, p := range paths {
		resolved := resolveModulePath(b.baseDir, p)
		fn, ok := lookupModule(resolved)
		if !ok {
			return &UnknownModuleError{Path: resolved}
		}

		b.loadedMu.Lock()
		_, done := b.loaded[resolved]
		if !done {
			b.loaded[resolved] = struct{}{}
		}
		b.loadedMu.Unlock()
		if done {
			continue
		}

		if err := fn(b); err != nil {
			b.loadedMu.Lock()
			delete(b.loaded, resolved)
			b.loadedMu.Unlock()
			return err
		}
		b.logger.Debug().Str("module", resolved).Msg("xhermes: subscribers loaded")
	}
	return nil
}
