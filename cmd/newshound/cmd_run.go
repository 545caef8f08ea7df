package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/user/newshound/internal/delivery"
	"github.com/user/newshound/internal/feeds"
	"github.com/user/newshound/internal/index"
	"github.com/user/newshound/internal/metrics"
	"github.com/user/newshound/internal/store"
	"github.com/user/newshound/internal/telegram"
	"github.com/user/newshound/internal/types"
	"github.com/user/newshound/internal/workflow"
	"github.com/user/newshound/pkg/llm"
	"github.com/user/newshound/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run in the foreground",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		idx, err := index.Open(cfg.Index.Path)
		if err != nil {
			return fmt.Errorf("open search index: %w", err)
		}
		defer idx.Close()

		sources, err := feeds.LoadCatalog(cfg.Sources.Path)
		if err != nil {
			return fmt.Errorf("load source catalog: %w", err)
		}

		provider := openai.New(&llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})

		// The workflow installs the digest as the chat's pending decision
		// even when nothing can deliver it, so a later /status or daemon
		// session picks it up.
		deliveryReg := delivery.NewRegistry()
		wf := workflow.New(workflow.Config{
			Store:  st,
			Sender: deliveryReg,
			Chat:   types.ChatID(cfg.Telegram.ChatID),
			Logger: slog.Default(),
		})
		if cfg.Telegram.Token != "" {
			adapter, err := telegram.New(cfg.Telegram.Token, wf, cfg.Telegram.MessageLimit, slog.Default())
			if err != nil {
				return fmt.Errorf("create telegram adapter: %w", err)
			}
			deliveryReg.Register("telegram", adapter.Send)
		}

		collector := metrics.NewCollector(prometheus.NewRegistry())
		runner := buildRunner(cfg, st, idx, provider, collector, wf, sources)

		run, err := runner.RunOnce(context.Background())
		if err != nil {
			return fmt.Errorf("run pipeline: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Run %s finished: %s\n", run.ID, run.Status)
		fmt.Fprintf(os.Stdout, "  fetched:    %d\n", run.Counters.Fetched)
		fmt.Fprintf(os.Stdout, "  deduped:    %d\n", run.Counters.Deduped)
		fmt.Fprintf(os.Stdout, "  verified:   %d\n", run.Counters.Verified)
		fmt.Fprintf(os.Stdout, "  actionable: %d\n", run.Counters.Actionable)
		fmt.Fprintf(os.Stdout, "  translated: %d\n", run.Counters.Translated)
		if run.Status == types.RunStatusFailed {
			return fmt.Errorf("pipeline failed: %s", run.ErrorMessage)
		}
		return nil
	},
}
