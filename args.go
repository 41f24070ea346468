package xhermes

import "fmt"

// Arg returns args[i] as T. Observers receive trigger arguments untyped; this is
// the typed access point.
func Arg[T any](args []any, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(args) {
		return zero, fmt.Errorf("%w: index %d of %d", ErrArgMissing, i, len(args))
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: index %d is %T, want %T", ErrArgType, i, args[i], zero)
	}
	return v, nil
}

// ArgOr returns args[i] as T, or def when it is missing or of another type.
func ArgOr[T any](args []any, i int, def T) T {
	v, err := Arg[T](args, i)
	if err != nil {
		return def
	}
	return v
}
