package preflight

import (
	"context"
	"os"

	"sopgen/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Options selects the checks that reach the network.
type Options struct {
	// Online enables the generation service round trip.
	Online bool
}

// RunAll executes the filesystem and credential checks for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCredential("Generation API key", cfg.LLM.APIKey, "SOPGEN_LLM_API_KEY or OPENROUTER_API_KEY", false),
	}
	if cfg.Transcription.Enabled {
		results = append(results, CheckCredential("Transcription API key", cfg.Transcription.APIKey, "GROQ_API_KEY; transcription is skipped", true))
	}

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	scratch := cfg.Paths.ScratchDir
	if scratch == "" {
		scratch = os.TempDir()
	}
	results = append(results, CheckDirectoryAccess("Scratch directory", scratch))
	results = append(results, CheckFreeSpace("Scratch free space", scratch, MinFreeBytes))
	if cfg.Sampler.KeepFrames && cfg.Paths.FramesDir != "" {
		results = append(results, CheckDirectoryAccess("Frames directory", cfg.Paths.FramesDir))
	}

	if opts.Online {
		results = append(results, CheckLLM(ctx, cfg.LLM))
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
