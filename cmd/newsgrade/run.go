package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsgrade/internal/agents"
	"github.com/mohammad-safakhou/newsgrade/internal/dedup"
	"github.com/mohammad-safakhou/newsgrade/internal/pipeline"
	"github.com/mohammad-safakhou/newsgrade/internal/scheduler"
	"github.com/mohammad-safakhou/newsgrade/internal/telemetry"
	"github.com/mohammad-safakhou/newsgrade/models"
	"github.com/mohammad-safakhou/newsgrade/news"
	"github.com/mohammad-safakhou/newsgrade/news/web"
	"github.com/mohammad-safakhou/newsgrade/provider"
)

func runCMD() *cobra.Command {
	var inputFile string
	var urls []string
	var category string
	var scheduled bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one scoring run (or loop on the cron schedule)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := telemetry.NewLogger("PIPELINE")
			llm, err := provider.New(cfg.LLM)
			if err != nil {
				return err
			}
			dedupStore, err := newDedupStore(ctx, cfg)
			if err != nil {
				return err
			}
			matrix, err := newMatrix(cfg)
			if err != nil {
				return err
			}
			runStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			if runStore != nil {
				defer runStore.Close()
			}
			idx, err := openIndex(cfg)
			if err != nil {
				return err
			}
			defer idx.Close()

			var metrics *telemetry.Metrics
			if cfg.Telemetry.Enabled {
				metrics = telemetry.NewMetrics()
			}

			invoker := agents.NewInvoker(cfg.Agents, llm, telemetry.NewLogger("AGENT"))
			chain := agents.NewChain(cfg.Agents, invoker, telemetry.NewLogger("CHAIN"))
			gate := dedup.New(cfg.Dedup, dedupStore, telemetry.NewLogger("DEDUP"))
			archiver := newArchiver(cfg)

			var sink pipeline.RunSink
			if runStore != nil {
				sink = runStore
			}
			orch := pipeline.New(cfg, gate, chain, matrix, archiver, metrics, sink, idx, logger)

			sources, err := buildSources(inputFile, urls, category)
			if err != nil {
				return err
			}

			job := func(ctx context.Context) error {
				if removed, err := archiver.CleanupExpired(); err != nil {
					logger.Printf("retention cleanup: %v", err)
				} else if removed > 0 {
					logger.Printf("retention cleanup removed %d folders", removed)
				}
				articles, errs := news.Collect(ctx, cfg.Pipeline.TargetArticleCount, sources...)
				for _, err := range errs {
					logger.Printf("source error: %v", err)
				}
				_, err := orch.Execute(ctx, articles)
				return err
			}

			if scheduled {
				sched, err := scheduler.New(cfg.Pipeline.CronSpec, job, telemetry.NewLogger("SCHED"))
				if err != nil {
					return err
				}
				return sched.Run(ctx)
			}
			return job(ctx)
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "JSON file of articles to score")
	cmd.Flags().StringSliceVar(&urls, "url", nil, "article URLs to fetch and score (repeatable)")
	cmd.Flags().StringVar(&category, "category", "crypto", "category for fetched URLs (crypto|macro)")
	cmd.Flags().BoolVar(&scheduled, "schedule", false, "loop on pipeline.cron_spec instead of running once")
	return cmd
}

func buildSources(inputFile string, urls []string, category string) ([]news.Source, error) {
	var sources []news.Source
	if inputFile != "" {
		sources = append(sources, news.FileSource{Path: inputFile})
	}
	if len(urls) > 0 {
		cat := models.Category(category)
		if cat != models.CategoryCrypto && cat != models.CategoryMacro {
			return nil, fmt.Errorf("unknown category %q", category)
		}
		sources = append(sources, web.New(urls, cat, telemetry.NewLogger("NEWS")))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no article sources: pass --input or --url")
	}
	return sources, nil
}
