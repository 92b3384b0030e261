package observability

import (
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

var (
	_ log.Logger     = (*TemporalLogger)(nil)
	_ log.WithLogger = (*TemporalLogger)(nil)
)

// TemporalLogger routes Temporal SDK logs, including workflow and activity
// loggers, through zerolog under component "temporal-sdk".
type TemporalLogger struct {
	logger zerolog.Logger
}

// NewTemporalLogger wraps logger for client.Options.Logger.
func NewTemporalLogger(logger zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{logger: logger.With().Str("component", "temporal-sdk").Logger()}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug().Fields(keyvals).Msg(msg)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info().Fields(keyvals).Msg(msg)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn().Fields(keyvals).Msg(msg)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error().Fields(keyvals).Msg(msg)
}

// With returns a logger that carries keyvals on every entry. The SDK uses it
// to attach the workflow and activity identifiers, which are renamed to the
// service's own field names.
func (l *TemporalLogger) With(keyvals ...interface{}) log.Logger {
	ctx := l.logger.With()
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		switch key {
		case "WorkflowID":
			key = "workflow_id"
		case "RunID":
			key = "workflow_run_id"
		}
		ctx = ctx.Interface(key, keyvals[i+1])
	}
	return &TemporalLogger{logger: ctx.Logger()}
}
