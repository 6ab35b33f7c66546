// Package api exposes pipeline runs over HTTP for `sopgen serve`.
//
// Routes:
//   - GET  /health          liveness, uptime, busy flag (no auth)
//   - POST /v1/runs         run the pipeline synchronously; runs are serialized
//   - GET  /v1/runs         recent runs from history (?limit=N)
//   - GET  /v1/runs/{id}    one recorded run
//   - GET  /v1/events       websocket stream of progress events
//
// When api.token is set every /v1 route requires "Authorization: Bearer
// <token>"; websocket clients may pass ?token= instead.
package api
