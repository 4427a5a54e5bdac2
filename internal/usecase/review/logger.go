package review

import "context"

// Logger is the structured logging port used by the orchestrator. The
// default implementation lives in the observability adapter; a nil Logger
// is valid and silences all output.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// logInfo logs through an optional logger.
func logInfo(ctx context.Context, l Logger, message string, fields map[string]interface{}) {
	if l != nil {
		l.LogInfo(ctx, message, fields)
	}
}

// logWarning logs through an optional logger.
func logWarning(ctx context.Context, l Logger, message string, fields map[string]interface{}) {
	if l != nil {
		l.LogWarning(ctx, message, fields)
	}
}
