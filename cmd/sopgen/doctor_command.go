package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sopgen/internal/preflight"
	"sopgen/internal/services"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var online bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, credentials and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config: %s\n\n", ctx.configPath)
			}

			failed := false
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			toolRows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				detail := s.Version
				if !s.Available {
					detail = s.Detail
					if !s.Optional {
						failed = true
					}
				}
				toolRows = append(toolRows, []string{s.Name, s.Command, statusLabel(s.Available, s.Optional), detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Tool", "Command", "Status", "Detail"}, toolRows, nil))

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Online: online})
			checkRows := make([][]string, 0, len(results))
			for _, r := range results {
				checkRows = append(checkRows, []string{r.Name, statusLabel(r.Passed, r.Optional), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, checkRows, nil))

			if failed || preflight.Failed(results) {
				return services.Wrap(services.ErrConfiguration, "doctor", "", "", errors.New("one or more required checks failed"))
			}
			fmt.Fprintln(out, "All required checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&online, "online", false, "Also call the generation service")
	return cmd
}

func statusLabel(ok, optional bool) string {
	switch {
	case ok:
		return "ok"
	case optional:
		return "warn"
	default:
		return "FAIL"
	}
}
