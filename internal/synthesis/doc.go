// Package synthesis builds the single multimodal request that describes a
// sampled video and turns the model's answer into a validated sop.Document.
//
// The prompt (prompt.tmpl) names the domain, lists every frame with its
// timestamp, carries the transcript when one exists, mandates mirrored
// reassembly steps and pins the strict JSON output shape. Synthesize makes
// one call with no retry. A run moves through Idle, RequestBuilt and
// ResponseReceived into exactly one terminal state.
package synthesis
