package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"board-sync/domain"
)

const tracerName = "board-sync/service"

const (
	attrUserID    = attribute.Key("board.user_id")
	attrEntityID  = attribute.Key("board.entity_id")
	attrColumnID  = attribute.Key("board.column_id")
	attrErrorCode = attribute.Key("board.error_code")
	attrRows      = attribute.Key("board.rows")
)

// invoke runs one backend operation inside a span. Any failure, including a
// panic in the backend, leaves as a *domain.ServiceError; errors that are not
// already service errors get the fallback code.
func invoke(ctx context.Context, logger *log.Logger, op, fallback string, attrs []attribute.KeyValue, fn func(context.Context, trace.Span) error) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "service."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewServiceError(domain.CodeUnknown, fmt.Sprint(r))
		}
		entry := logger.WithFields(log.Fields{
			"op":          op,
			"duration_ms": durationToMillis(time.Since(start)),
		})
		if err != nil {
			se := domain.AsServiceError(err, fallback)
			err = se
			span.RecordError(se)
			span.SetStatus(codes.Error, se.Message)
			span.SetAttributes(attrErrorCode.String(se.Code))
			entry.WithField("code", se.Code).WithError(se).Warn("service call failed")
		} else {
			span.SetStatus(codes.Ok, "")
			entry.Debug("service call")
		}
		span.End()
	}()
	return fn(ctx, span)
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

func loggerOrDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.StandardLogger()
	}
	return logger
}
