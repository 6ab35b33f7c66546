// Package sop defines the procedure document produced by synthesis and the
// strict decoder that turns raw model output into it.
//
// Decode is a hard gate: a document missing its title, its steps, or any
// step's number, instruction or timestamp is never returned. Properties the
// model is asked for but that do not invalidate a document (unique,
// increasing step numbers and in-range timestamps) are reported by
// Advisories instead.
package sop
