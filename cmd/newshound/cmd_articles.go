package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/newshound/internal/store"
	"github.com/user/newshound/internal/types"
)

func init() {
	rootCmd.AddCommand(articlesCmd)
	articlesCmd.Flags().Int("limit", 20, "maximum articles to list")
	articlesCmd.Flags().String("category", "", "filter by category (finance, tech, government)")
}

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "List recently stored articles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		limit, _ := cmd.Flags().GetInt("limit")
		category, _ := cmd.Flags().GetString("category")

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		articles, err := st.RecentArticles(context.Background(), types.Category(category), limit)
		if err != nil {
			return fmt.Errorf("list articles: %w", err)
		}

		if len(articles) == 0 {
			fmt.Println("No articles stored.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TITLE\tCATEGORY\tSCORE\tSTATUS\tFETCHED")
		for _, a := range articles {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				clip(a.Title, 60),
				a.Category,
				a.CredibilityScore,
				a.ValidationStatus,
				a.FetchedAt.Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

// clip shortens s to at most n runes for table display.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
