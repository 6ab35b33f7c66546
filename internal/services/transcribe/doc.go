// Package transcribe is the optional speech-to-text collaborator.
//
// It extracts a small mono MP3 with ffmpeg into a scratch directory, uploads
// it to an OpenAI-compatible /audio/transcriptions endpoint (Groq's
// whisper-large-v3 by default) and returns plain text. Transcription is never
// fatal: every failure is logged and yields an empty transcript.
package transcribe
