package core

// Logger is any service that can log app messages; unexpected errors are
// reported with full internal detail here while clients only ever receive
// a generic message.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
