// Package logging constructs slog loggers for Curator commands.
//
// Console output goes to stderr so stdout stays reserved for command results;
// when a log directory is configured the same records are appended to
// curator.log for post-run inspection by external monitoring.
package logging
