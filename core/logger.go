package core

import "log"

// Logger logs messages locally and, depending on the implementation, reports
// them to an error tracking service. Implementations may inspect args for a
// user value to attach the acting principal to the report.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// stdLogger is a plain stdlib-backed Logger for DEV|TEST mode.
type stdLogger struct {
	std     *log.Logger
	enabled bool
}

var _ Logger = (*stdLogger)(nil)

func NewStdLogger(std *log.Logger) Logger {
	return &stdLogger{std: std, enabled: true}
}

func (l *stdLogger) Enable(enabled bool) { l.enabled = enabled }

func (l *stdLogger) print(level, msg string, args []interface{}) {
	if !l.enabled {
		return
	}
	l.std.Println(level + ": " + msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *stdLogger) Debug(msg string, args ...interface{}) { l.print("DEBUG", msg, args) }
func (l *stdLogger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l *stdLogger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l *stdLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }

func (l *stdLogger) Fatal(msg string, args ...interface{}) {
	l.print("FATAL", msg, args)
	l.std.Fatal(msg)
}
