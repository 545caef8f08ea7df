package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/newshound/internal/feeds"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd, sourcesInitCmd)
	sourcesInitCmd.Flags().Bool("force", false, "overwrite an existing catalog")
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage the news source catalog",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured news sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		sources, err := feeds.LoadCatalog(cfg.Sources.Path)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tCATEGORY\tURL")
		for _, src := range sources {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", src.Name, src.Kind, src.Category, src.URL)
		}
		return w.Flush()
	},
}

var sourcesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in source catalog to the configured path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(cfg.Sources.Path); err == nil && !force {
			return fmt.Errorf("catalog %s already exists (use --force to overwrite)", cfg.Sources.Path)
		}
		if err := feeds.WriteDefaultCatalog(cfg.Sources.Path); err != nil {
			return fmt.Errorf("write catalog: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Wrote default catalog to %s\n", cfg.Sources.Path)
		return nil
	},
}
