package db

// Op constants name the failing command in error context.
const (
	OpPing    = "PING"
	OpMGet    = "MGET"
	OpMSet    = "MSET"
	OpMigrate = "MIGRATE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
