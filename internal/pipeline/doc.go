// Package pipeline orchestrates one video-to-procedure run.
//
// The steps run strictly in sequence: probe the video, transcribe its audio
// (optional, never fatal), sample frames, synthesize the procedure with a
// single model call, then render the PDF under a file lock. Every other step
// failure ends the run with a StageError naming the step. Each run gets a
// UUID, per-step timings, a history row and an optional ntfy push.
package pipeline
