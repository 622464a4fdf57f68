// Package trace brackets buffer operations with named spans. A span records
// its duration in metrics.OperationDuration and, at debug level, logs it.
package trace

import (
	"time"

	"github.com/fxnlabs/bufsync/internal/metrics"
	"go.uber.org/zap"
)

type Span struct {
	name  string
	start time.Time
	log   *zap.Logger
}

// Start opens a span. Typical use: defer trace.Start(log, "buffer.Write").End()
func Start(log *zap.Logger, name string) Span {
	return Span{name: name, start: time.Now(), log: log}
}

// End closes the span and returns its duration.
func (s Span) End() time.Duration {
	elapsed := time.Since(s.start)
	metrics.OperationDuration.WithLabelValues(s.name).Observe(elapsed.Seconds())
	if s.log != nil {
		if ce := s.log.Check(zap.DebugLevel, "trace"); ce != nil {
			ce.Write(zap.String("span", s.name), zap.Duration("elapsed", elapsed))
		}
	}
	return elapsed
}
