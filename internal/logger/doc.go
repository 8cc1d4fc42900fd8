// Package logger provides the process-wide zap logger used by the SDK, the
// sandbox and the CLI, plus helpers to carry a scoped logger in a context.
//
// Initialise once at startup:
//
//	logger.Init(logger.Config{
//	    Env:   os.Getenv("LOG_ENV"),   // "dev" or "prod"
//	    Level: os.Getenv("LOG_LEVEL"), // "debug", "info", "warn", "error"
//	})
//	defer logger.Sync()
//
// Library code logs through From(ctx), which falls back to L() when no scoped
// logger was attached.
package logger
