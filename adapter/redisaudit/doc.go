// Package redisaudit records xhermes signals into a Redis stream.
//
// Every signal becomes one XADD entry with the fields listed in constants.go,
// so a pass can be reconstructed from its invocation id. The stream is
// trimmed approximately when max_len_approx is set.
//
// Minimal config keys:
// - addr: "host:port" (default "127.0.0.1:6379")
// - stream: target stream (default "xhermes:audit")
// - max_len_approx: approximate stream cap (default 100000, 0 disables)
// - timeout: per-XADD timeout (default 2s)
// - types: signal types to record (default all)
// - workers / buffer_size: async probe pool sizing (default 2 / 1024)
//
// Example:
//
//	bus := redisaudit.Use(redisaudit.Config{
//	    Addr:   "localhost:6379",
//	    Stream: "payments:audit",
//	}, redisaudit.WithLogger(logger))
//	defer bus.Close(context.Background())
package redisaudit
