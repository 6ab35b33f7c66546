package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"sopgen/internal/pipeline"
	"sopgen/internal/progress"
)

type generateOptions struct {
	output     string
	context    string
	company    string
	interval   float64
	maxWidth   int
	keepFrames bool
	framesDir  string
	jsonOutput bool
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate <video>",
		Short: "Generate an SOP document from a task video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, ctx, args[0], opts, nil)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output PDF path (default <output_dir>/<video>_sop.pdf)")
	cmd.Flags().StringVar(&opts.context, "context", "", "Free text describing the task domain")
	cmd.Flags().StringVar(&opts.company, "company", "", "Company name for the document header")
	cmd.Flags().Float64Var(&opts.interval, "interval", 0, "Seconds between sampled frames (default sampler.interval_seconds)")
	cmd.Flags().IntVar(&opts.maxWidth, "max-width", 0, "Maximum frame width in pixels (default sampler.max_width)")
	cmd.Flags().BoolVar(&opts.keepFrames, "keep-frames", false, "Keep sampled frames after the run")
	cmd.Flags().StringVar(&opts.framesDir, "frames-dir", "", "Directory for kept frames (default paths.frames_dir)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the run result as JSON")
	return cmd
}

// runGenerate executes one run. extra options let tests swap collaborators.
func runGenerate(cmd *cobra.Command, ctx *commandContext, video string, opts generateOptions, extra []pipeline.Option) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	runName := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	logger, closer, err := ctx.newLogger(cmd, runName)
	if err != nil {
		return err
	}
	defer closer.Close()

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithReporter(progress.NewLogReporter(logger)),
	}
	store, err := ctx.openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		pipeOpts = append(pipeOpts, pipeline.WithRecorder(store))
	}
	pipeOpts = append(pipeOpts, extra...)

	p, err := pipeline.New(cfg, pipeOpts...)
	if err != nil {
		return err
	}
	result, err := p.Run(cmd.Context(), pipeline.Request{
		VideoPath:       video,
		OutputPath:      opts.output,
		Context:         opts.context,
		Company:         opts.company,
		IntervalSeconds: opts.interval,
		MaxWidth:        opts.maxWidth,
		KeepFrames:      opts.keepFrames || opts.framesDir != "",
		FramesDir:       opts.framesDir,
	})
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return writeJSON(cmd, result)
	}
	printResult(cmd, result)
	return nil
}

func printResult(cmd *cobra.Command, result *pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "SOP written to %s\n", result.OutputPath)
	fmt.Fprintf(out, "Title: %s\n", result.Document.Title)
	fmt.Fprintf(out, "Steps: %d  Frames: %d  Run: %s\n", len(result.Document.Steps), result.FrameCount, result.RunID)
	if result.FramesDir != "" {
		fmt.Fprintf(out, "Frames kept in %s\n", result.FramesDir)
	}
	for _, note := range result.Advisories {
		fmt.Fprintf(out, "Note: %s\n", note)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, timingTable(result.Timings, isTerminal(cmd)))
}

func timingTable(t pipeline.Timings, withShare bool) string {
	stages := []struct {
		name string
		d    time.Duration
	}{
		{"Transcription", t.Transcription},
		{"Frame extraction", t.Extraction},
		{"Analysis", t.Analysis},
		{"Rendering", t.Rendering},
		{"Total", t.Total},
	}
	withShare = withShare && t.Total > 0
	headers := []string{"Stage", "Duration"}
	aligns := []columnAlignment{alignLeft, alignRight}
	if withShare {
		headers = append(headers, "Share")
		aligns = append(aligns, alignRight)
	}
	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		row := []string{s.name, formatSeconds(s.d)}
		if withShare {
			row = append(row, fmt.Sprintf("%.0f%%", s.d.Seconds()/t.Total.Seconds()*100))
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, aligns)
}

func isTerminal(cmd *cobra.Command) bool {
	type fder interface{ Fd() uintptr }
	f, ok := cmd.OutOrStdout().(fder)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
