// Package main hosts the transforma CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces the reader integration's internals
// on the terminal: invoice routing decisions, duplicate-cache queries,
// foreground submissions, session inspection, and configuration
// scaffolding. It centralizes configuration resolution so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
