// Package progress defines the structured progress events emitted while a
// run moves through transcription, sampling, synthesis and rendering.
//
// Producers call Emit with a Reporter they were handed; consumers (the CLI
// log, the websocket hub, tests) implement Reporter. Events are advisory and
// never influence ordering or error outcomes.
package progress
