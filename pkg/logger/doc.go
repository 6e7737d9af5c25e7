// Package logger provides the structured logger used across goesbot.
//
// It wraps zerolog behind a small Logger interface so components can take
// a logger as a dependency and tests can swap in a TestLogger or a no-op
// logger.
//
//	logger.Initialize(&cfg.Logging)
//	logger.GetLogger().WithField("sector", "CONUS").Info("fetching index")
//
// When Logging.File is set, records go both to the console and, as JSON,
// to the file.
package logger
