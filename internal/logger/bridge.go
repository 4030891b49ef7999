package logger

// APILogger adapts a Logger into the one-line-per-call sink the agromet
// client expects. The client's "verbose" level maps to debug so routine
// call lines stay out of info-level output.
type APILogger struct {
	log Logger
}

// NewAPILogger wraps log; a nil log yields a discarding sink.
func NewAPILogger(log Logger) *APILogger {
	if log == nil {
		log = NopLogger{}
	}
	return &APILogger{log: log}
}

// Log routes a call line to the structured logger by level. Unknown levels
// land on info.
func (a *APILogger) Log(level, message string) {
	switch level {
	case "verbose", "debug":
		a.log.DebugObj("api call", "call_line", message)
	case "warn", "warning":
		a.log.WarnObj("api call", "call_line", message)
	case "error":
		a.log.ErrorObj("api call failed", "call_line", message)
	default:
		a.log.InfoObj("api call", "call_line", message)
	}
}
