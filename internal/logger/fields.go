package logger

import (
	"time"

	"go.uber.org/zap"
)

// RequestID is the id sent in the X-Request-ID header.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method is the HTTP method.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path is the request path.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status is the HTTP status code.
func Status(v int) zap.Field { return zap.Int("status", v) }

// Duration is the elapsed time of a request or action.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// Operation names a remote operation or store action.
func Operation(v string) zap.Field { return zap.String("op", v) }

// ListName is a mutation list name.
func ListName(v string) zap.Field { return zap.String("list", v) }

// MutationID is a mutation identifier.
func MutationID(v string) zap.Field { return zap.String("mutation_id", v) }

// Page is a zero-based page number.
func Page(v int) zap.Field { return zap.Int("page", v) }
