package application

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/rcflow/rcflow/domain/notification"
	"github.com/rcflow/rcflow/domain/summary"
)

// Option configures the workflow service.
type Option func(*Workflow)

// WithSummaryGenerator sets the summary generator used on submit.
func WithSummaryGenerator(g summary.Generator) Option {
	return func(w *Workflow) {
		if g != nil {
			w.summarizer = g
		}
	}
}

// WithNotifier sets the notification sink.
func WithNotifier(n notification.Notifier) Option {
	return func(w *Workflow) {
		if n != nil {
			w.notifier = n
		}
	}
}

// WithTracer sets a custom tracer.
func WithTracer(t trace.Tracer) Option {
	return func(w *Workflow) {
		if t != nil {
			w.tracer = t
		}
	}
}

// WithUpstreamTimeout bounds external calls (snapshot fetch, publish,
// summary, notification).
func WithUpstreamTimeout(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.upstreamTimeout = d
		}
	}
}
