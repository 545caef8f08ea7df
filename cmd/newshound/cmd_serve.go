package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/user/newshound/internal/chat"
	"github.com/user/newshound/internal/config"
	"github.com/user/newshound/internal/crossref"
	"github.com/user/newshound/internal/dedup"
	"github.com/user/newshound/internal/delivery"
	"github.com/user/newshound/internal/digest"
	"github.com/user/newshound/internal/feeds"
	"github.com/user/newshound/internal/index"
	"github.com/user/newshound/internal/metrics"
	"github.com/user/newshound/internal/pipeline"
	"github.com/user/newshound/internal/scheduler"
	"github.com/user/newshound/internal/server"
	"github.com/user/newshound/internal/store"
	"github.com/user/newshound/internal/telegram"
	"github.com/user/newshound/internal/translate"
	"github.com/user/newshound/internal/types"
	"github.com/user/newshound/internal/validate"
	"github.com/user/newshound/internal/workflow"
	"github.com/user/newshound/pkg/llm"
	"github.com/user/newshound/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the newshound daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "newshound.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

// buildRunner wires the full ingestion pipeline. Shared with the one-shot
// run command, which passes a nil notifier.
func buildRunner(cfg *config.Config, st *store.Store, idx *index.Index, provider llm.Provider, collector *metrics.Collector, notifier pipeline.Notifier, sources []types.Source) *pipeline.Runner {
	logger := slog.Default()

	client := feeds.NewSafeClient(time.Duration(cfg.Pipeline.FetchTimeoutSec) * time.Second)
	fetchers := map[types.SourceKind]types.Fetcher{
		types.SourceKindRSS:        feeds.NewRSSFetcher(client, logger),
		types.SourceKindHackerNews: feeds.NewHackerNewsFetcher(client, logger),
	}
	aggregator := feeds.NewAggregator(fetchers, time.Duration(cfg.Pipeline.FetchTimeoutSec)*time.Second, logger)

	classifier := validate.NewLLMClassifier(provider, time.Duration(cfg.Pipeline.ClassifyTimeoutSec)*time.Second, logger)
	translator := translate.NewLLMTranslator(provider, time.Duration(cfg.Pipeline.TranslateTimeoutSec)*time.Second, logger)
	validator := validate.New(classifier, translator, int64(cfg.Pipeline.ValidatorConcurrency), logger)

	resolver := crossref.NewResolver(
		crossref.NewGoogleNews(client, time.Duration(cfg.Pipeline.CrossRefTimeoutSec)*time.Second, logger),
		logger,
	)

	return pipeline.NewRunner(pipeline.Config{
		Store:         st,
		Aggregator:    aggregator,
		Deduplicator:  dedup.New(st, cfg.Pipeline.DedupWindowDays, cfg.Pipeline.MaxArticlesPerRun, logger),
		Validator:     validator,
		Resolver:      resolver,
		Builder:       digest.NewBuilder(cfg.Pipeline.MaxDigestItems, cfg.Pipeline.CategoryBoost, logger),
		Indexer:       idx,
		Notifier:      notifier,
		Metrics:       collector,
		Sources:       sources,
		Chat:          types.ChatID(cfg.Telegram.ChatID),
		RetentionDays: cfg.Store.RetentionDays,
		Logger:        logger,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Write PID file
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Stores
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

	// Metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// LLM provider
	provider := openai.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	// Chat assistant
	chatCfg := chat.Config{
		Provider:         provider,
		History:          st,
		Digests:          st,
		Articles:         st,
		Model:            cfg.LLM.Model,
		MaxContextTokens: cfg.Chat.MaxContextTokens,
		HistoryWindow:    cfg.Chat.HistoryWindow,
		HistoryKeep:      cfg.Chat.HistoryMax,
		Logger:           slog.Default(),
	}
	if cfg.Search.APIKey != "" {
		chatCfg.Searcher = chat.NewBraveClient(cfg.Search.APIKey)
	} else {
		slog.Warn("web search disabled (no Brave API key)")
	}
	assistant, err := chat.New(chatCfg)
	if err != nil {
		return fmt.Errorf("create chat assistant: %w", err)
	}

	// Delivery registry
	deliveryReg := delivery.NewRegistry()

	// Workflow; the pipeline runner is bound below, once it exists
	wf := workflow.New(workflow.Config{
		Store:     st,
		Searcher:  index.NewSearcher(idx, st, slog.Default()),
		Assistant: assistant,
		Sender:    deliveryReg,
		Chat:      types.ChatID(cfg.Telegram.ChatID),
		Limiter:   workflow.NewChatLimiter(time.Duration(cfg.Telegram.RateLimitSec) * time.Second),
		Metrics:   collector,
		Logger:    slog.Default(),
	})

	runner := buildRunner(cfg, st, idx, provider, collector, wf, sources)
	wf.SetRunner(runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner.Start(ctx)
	defer runner.Stop()

	slog.Info("newshound started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"sources", len(sources),
		"store", cfg.Store.Path,
		"llm_model", cfg.LLM.Model,
		"pid_file", pidPath,
	)

	// Telegram adapter
	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, wf, cfg.Telegram.MessageLimit, slog.Default())
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		go adapter.Start(ctx)

		// Register telegram delivery for digest pushes and run notices
		deliveryReg.Register("telegram", adapter.Send)
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	// HTTP API
	srv := server.New(server.Config{
		Store:     st,
		Runner:    runner,
		Chat:      types.ChatID(cfg.Telegram.ChatID),
		AuthToken: cfg.HTTP.AuthToken,
		Metrics:   metrics.Handler(registry),
		Logger:    slog.Default(),
	})
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: srv,
	}
	go func() {
		slog.Info("http server started", "listen", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	// Scheduler
	sched, err := scheduler.New(scheduler.Config{
		RunSpecs:    cfg.Schedule.Specs,
		CleanupSpec: cfg.Schedule.CleanupSpec,
		Timezone:    cfg.Schedule.Timezone,
		Runner:      runner,
		Cleaner:     runner,
		Logger:      slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	slog.Info("scheduler started", "specs", cfg.Schedule.Specs, "timezone", cfg.Schedule.Timezone)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				// Re-write PID file since we failed to re-exec
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
