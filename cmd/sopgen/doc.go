// Package main hosts the sopgen CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds the slog logger and
// run history store, and hands requests to internal/pipeline. Subcommands:
// generate (one video to one PDF procedure), history, serve (HTTP API with a
// websocket progress stream), doctor, test-notify, and config init/show.
//
// Keep this package lean: behaviour lives in the internal packages and the
// commands only translate flags into pipeline requests and render results.
package main
