// Package main hosts the curator CLI entrypoint and command graph.
//
// The Cobra-based command tree drives scoring passes, collection
// synchronization, run history inspection, and configuration scaffolding. It
// centralizes configuration resolution, client wiring, and structured logging
// setup so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
