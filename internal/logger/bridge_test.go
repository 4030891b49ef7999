package logger

import "testing"

// recordingLogger captures the level each message lands on.
type recordingLogger struct {
	level string
	msg   string
	obj   any
}

func (r *recordingLogger) InfoObj(msg, _ string, obj any)  { r.level, r.msg, r.obj = "info", msg, obj }
func (r *recordingLogger) DebugObj(msg, _ string, obj any) { r.level, r.msg, r.obj = "debug", msg, obj }
func (r *recordingLogger) WarnObj(msg, _ string, obj any)  { r.level, r.msg, r.obj = "warn", msg, obj }
func (r *recordingLogger) ErrorObj(msg, _ string, obj any) { r.level, r.msg, r.obj = "error", msg, obj }

func TestAPILoggerLevelRouting(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"verbose", "debug"},
		{"debug", "debug"},
		{"warn", "warn"},
		{"error", "error"},
		{"info", "info"},
		{"custom", "info"},
	}
	for _, tc := range cases {
		rec := &recordingLogger{}
		NewAPILogger(rec).Log(tc.in, "[agromet] GET /x 200 OK")
		if rec.level != tc.want {
			t.Fatalf("level %q routed to %q, want %q", tc.in, rec.level, tc.want)
		}
		if rec.obj != any("[agromet] GET /x 200 OK") {
			t.Fatalf("expected the call line to pass through, got %v", rec.obj)
		}
	}
}

func TestAPILoggerNilLoggerIsSafe(t *testing.T) {
	sink := NewAPILogger(nil)
	sink.Log("error", "must not panic")
}
