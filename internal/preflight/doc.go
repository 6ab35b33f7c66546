// Package preflight provides readiness checks for the tools, credentials and
// directories a run depends on.
//
// `sopgen doctor` prints every result. The pipeline itself only enforces the
// generation credential up front; missing media tools surface as extraction
// failures when the sampler runs.
package preflight
