package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"easel/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show collected instance counts per runner and category",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			counts, err := store.AllCounts(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(counts) == 0 {
				fmt.Fprintln(out, "No instances collected yet.")
				return nil
			}

			runners := make([]string, 0, len(counts))
			for runner := range counts {
				runners = append(runners, runner)
			}
			sort.Strings(runners)

			var rows [][]string
			for _, runner := range runners {
				for _, category := range sortedKeys(counts[runner]) {
					rows = append(rows, []string{
						runner,
						category,
						fmt.Sprint(counts[runner][category]),
					})
				}
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Runner", "Category", "Collected"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
