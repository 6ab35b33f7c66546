// Package sampler converts a video into an ordered sequence of timestamped
// JPEG frames at a fixed cadence.
//
// The media work sits behind the Decoder interface; FFmpegDecoder shells out
// to ffprobe for metadata and to ffmpeg for a single
// fps=1/N,scale='min(iw,W)':-2 extraction pass. Sequence numbers come from
// output order and timestamps are computed as (index-1)*interval, never read
// back from the decoder. A video of duration D yields ceil(D/interval)
// frames.
//
// Decoding always happens in a private scratch directory that is removed on
// every exit path. Frames can additionally be persisted to a caller-chosen
// directory.
package sampler
