// Package render lays out a procedure document as a printable PDF.
//
// Each page carries the company header and a page-numbered footer. Steps are
// rendered in order with the sampled frame nearest to their timestamp and the
// model's reasoning underneath.
package render
