// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//
// Inspect runs ffprobe and parses the result; Parse decodes output captured
// elsewhere. Helpers expose duration, frame rate and native frame count.
package ffprobe
