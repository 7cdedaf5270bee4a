// Package logger builds the structured slog loggers used across the
// attribution kit.
//
// New returns a *slog.Logger configured through functional options (format,
// level, output, static attributes). Values stored in a context.Context, such
// as the request id or the resolved click id, are injected into every record by
// a handler decorator registered with WithContextValue or
// WithContextExtractors.
//
// Components never log through the global default logger. Each one accepts a
// *slog.Logger and falls back to Discard when none is supplied, so an embedded
// attribution engine stays silent unless the host wires a logger in.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "attributiond"),
//	    logger.WithContextValue("request_id", requestIDKey),
//	)
//	log.InfoContext(ctx, "click tracked", logger.ClickID(id), logger.Domain("dub.sh"))
package logger
