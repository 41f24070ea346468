package redisaudit

// Stream entry fields.
const (
	fieldType       = "type"
	fieldBusline    = "busline"
	fieldEvent      = "event"
	fieldInvocation = "invocation"
	fieldRole       = "role"
	fieldStatus     = "status"
	fieldObservers  = "observers"
	fieldDuration   = "durationNs" // int64 ns
	fieldError      = "error"
	fieldAt         = "at" // int64 unix ns
)
