// Package main hosts the easel CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// collection runs, ledger status queries, and configuration scaffolding.
// It centralizes configuration resolution, structured logging setup, and
// run locking so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags
// here. That separation keeps the CLI declarative while the heavy lifting
// lives in reusable collection components.
package main
