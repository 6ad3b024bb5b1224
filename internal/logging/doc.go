// Package logging builds slog loggers for the crosspost daemon and CLI.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log shipping. Attr helpers and standardized field keys keep
// structured output consistent across components.
package logging
