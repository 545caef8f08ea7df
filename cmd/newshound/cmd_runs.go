package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/newshound/internal/store"
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		runs, err := st.ListRuns(context.Background(), limit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tFETCHED\tVERIFIED\tSTARTED")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				run.ID,
				run.Status,
				run.Counters.Fetched,
				run.Counters.Verified,
				run.StartedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}
