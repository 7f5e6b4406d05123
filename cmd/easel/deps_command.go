package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"easel/internal/deps"
)

func newDepsCommand() *cobra.Command {
	var runnerName string

	cmd := &cobra.Command{
		Use:         "deps",
		Short:       "Check external binaries the collection runners use",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			requirements := deps.All()
			if runnerName != "" {
				requirements = deps.ForRunner(runnerName)
				if len(requirements) == 0 {
					return fmt.Errorf("unknown runner %q (expected latex, webpage, or music)", runnerName)
				}
			}

			statuses := deps.CheckBinaries(requirements)
			var rows [][]string
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = "missing"
					if status.Optional {
						state = "missing (optional)"
					}
				}
				detail := status.Description
				if status.Detail != "" {
					detail = status.Detail
				}
				rows = append(rows, []string{status.Name, status.Command, state, detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"Binary", "Command", "Status", "Notes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required binaries: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runnerName, "runner", "", "Check only the binaries one runner needs")
	return cmd
}
