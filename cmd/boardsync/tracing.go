package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// logSpans writes every finished span to the logger at debug level.
type logSpans struct {
	logger *log.Logger
}

func (p logSpans) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p logSpans) OnEnd(s sdktrace.ReadOnlySpan) {
	fields := log.Fields{
		"span":        s.Name(),
		"duration_ms": float64(s.EndTime().Sub(s.StartTime())) / float64(time.Millisecond),
		"trace_id":    s.SpanContext().TraceID().String(),
	}
	for _, kv := range s.Attributes() {
		fields[string(kv.Key)] = kv.Value.Emit()
	}
	entry := p.logger.WithFields(fields)
	if st := s.Status(); st.Code == codes.Error {
		entry.WithField("status", st.Description).Debug("span failed")
		return
	}
	entry.Debug("span")
}

func (p logSpans) Shutdown(context.Context) error   { return nil }
func (p logSpans) ForceFlush(context.Context) error { return nil }

// installTracing registers the global tracer provider. Spans are only
// recorded when debug logging is on.
func installTracing(logger *log.Logger) func(context.Context) error {
	if !logger.IsLevelEnabled(log.DebugLevel) {
		return func(context.Context) error { return nil }
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(logSpans{logger: logger}))
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
