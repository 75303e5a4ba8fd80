// Package metrics holds the metric shapes emitted by the sensemaker services.
package metrics

import (
	"time"

	obserrors "github.com/target/sensemaker/internal/observability/errors"
	"github.com/target/sensemaker/internal/observability/statsd"
)

// Result tag values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Job transitions.
const (
	TransitionCreate  = "create"
	TransitionStart   = "start"
	TransitionFinish  = "finish"
	TransitionCancel  = "cancel"
	TransitionPublish = "publish"
	TransitionDestroy = "destroy"
)

// JobMetric describes one job lifecycle event.
type JobMetric struct {
	Script     string
	Transition string
	Result     string
	// Duration is the run time for finish transitions; zero skips the timing metric.
	Duration time.Duration
	Err      error
}

// EmitJobLifecycle counts job.transition and, when a duration is known, times job.duration.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"script":     in.Script,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		tags["error_class"] = obserrors.Classify(in.Err)
	}

	sink.Count("job.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, tags)
	}
}

// EmitCleanup counts files removed or left behind when a job is destroyed.
func EmitCleanup(sink statsd.Sink, script string, removed, failed int) {
	if sink == nil {
		return
	}
	if removed > 0 {
		sink.Count("job.cleanup.removed", int64(removed), map[string]string{"script": script})
	}
	if failed > 0 {
		sink.Count("job.cleanup.failed", int64(failed), map[string]string{"script": script})
	}
}
