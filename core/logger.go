package core

// Logger is the app-wide logging contract. Implementations live in
// services/logger.
//
// args may carry errors, maps and the acting user; implementations decide
// how to render them.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
