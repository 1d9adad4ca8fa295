package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

var _ sdktrace.SpanProcessor = (*TaskReporter)(nil)

// TaskReporter turns task spans into Renderer calls. Each span the
// scheduler opens is one task; span IDs identify tasks in the renderer.
type TaskReporter struct {
	out ports.Renderer
}

// NewTaskReporter reports task spans to out. A nil out drops them.
func NewTaskReporter(out ports.Renderer) *TaskReporter {
	return &TaskReporter{out: out}
}

// OnStart announces the task. Tasks started under another span, such as
// the build target, carry that span's ID as parent.
func (r *TaskReporter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	id, ok := r.taskID(s.SpanContext())
	if !ok {
		return
	}
	r.out.OnTaskStart(id, parentTaskID(parent), s.Name(), s.StartTime())
}

// OnEnd reports how the task finished.
func (r *TaskReporter) OnEnd(s sdktrace.ReadOnlySpan) {
	id, ok := r.taskID(s.SpanContext())
	if !ok {
		return
	}
	r.out.OnTaskComplete(id, s.EndTime(), taskOutcome(s))
}

func (r *TaskReporter) taskID(sc trace.SpanContext) (string, bool) {
	if r.out == nil || !sc.IsValid() {
		return "", false
	}
	return sc.SpanID().String(), true
}

func parentTaskID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.SpanID().String()
}

// taskOutcome maps span state back to a task error. Skipped tasks report
// domain.ErrDependencyFailed; failed ones carry the recorded description.
func taskOutcome(s sdktrace.ReadOnlySpan) error {
	for _, attr := range s.Attributes() {
		if attr.Key == skippedKey && attr.Value.AsBool() {
			return domain.ErrDependencyFailed
		}
	}

	status := s.Status()
	switch {
	case status.Code != codes.Error:
		return nil
	case status.Description == "":
		return errors.New("task failed")
	default:
		return errors.New(status.Description)
	}
}

// ForceFlush is a no-op; nothing is buffered.
func (*TaskReporter) ForceFlush(context.Context) error { return nil }

// Shutdown is a no-op.
func (*TaskReporter) Shutdown(context.Context) error { return nil }
