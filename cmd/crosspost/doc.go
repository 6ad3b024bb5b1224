// Package main hosts the crosspost CLI entrypoint and command graph.
//
// The Cobra-based command tree covers running the daemon in the foreground,
// queue inspection and maintenance, and configuration scaffolding. Commands
// operate directly on the SQLite queue store; WAL mode keeps that safe while
// a daemon is running. Configuration resolution happens once per invocation
// so subcommands can focus on user experience instead of wiring.
package main
