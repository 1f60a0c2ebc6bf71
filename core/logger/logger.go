package logger

// Fields carries structured key/value pairs attached to a log entry.
type Fields = map[string]any

// Logger is the logging surface used by the orchestrator, the optimizer and
// the adapters around them.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields Fields)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// OrNop returns l, or a logger that discards everything when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nop{}
	}
	return l
}

type nop struct{}

func (nop) Debugf(string, ...any) {}
func (nop) Debugw(string, Fields) {}
func (nop) Infof(string, ...any)  {}
func (nop) Warnf(string, ...any)  {}
func (nop) Errorf(string, ...any) {}
