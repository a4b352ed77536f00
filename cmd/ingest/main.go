package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"newsrag/app"
	"newsrag/config"
	"newsrag/llm"
	"newsrag/llm/parser"
	"newsrag/logger"
)

var (
	batchSize int
	feedLimit int
	rootCmd   = &cobra.Command{
		Use:          "newsrag-ingest",
		Short:        "Load news articles into the vector index",
		SilenceUsage: true,
	}
)

func main() {
	filesCmd := &cobra.Command{
		Use:   "files <glob>...",
		Short: "Index .md, .txt, .html and .json files matched by the globs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndexing(cmd.Context(), func(ctx context.Context, ix *app.Indexing, log zerolog.Logger) error {
				return ingestFiles(ctx, ix, log, args)
			})
		},
	}
	filesCmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Documents embedded concurrently (default INGEST_BATCH_SIZE)")

	feedCmd := &cobra.Command{
		Use:   "feed <url>...",
		Short: "Index the items of RSS or Atom feeds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndexing(cmd.Context(), func(ctx context.Context, ix *app.Indexing, log zerolog.Logger) error {
				return ingestFeeds(ctx, ix, log, args, feedLimit)
			})
		},
	}
	feedCmd.Flags().IntVarP(&feedLimit, "limit", "n", 0, "Maximum items per feed (0 for all)")
	feedCmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Documents embedded concurrently (default INGEST_BATCH_SIZE)")

	rootCmd.AddCommand(filesCmd, feedCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withIndexing(ctx context.Context, run func(context.Context, *app.Indexing, zerolog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if batchSize > 0 {
		cfg.IngestBatchSize = batchSize
	}

	log := logger.New("newsrag-ingest", cfg.LogLevel, cfg.IsDevelopment())
	ix, err := app.NewIndexing(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := ix.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to close index")
		}
	}()

	return run(ctx, ix, log)
}

func ingestFiles(ctx context.Context, ix *app.Indexing, log zerolog.Logger, patterns []string) error {
	files, err := parser.ExpandGlobs(patterns...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched %v", patterns)
	}

	registry := parser.DefaultRegistry()
	var docs []llm.Document
	skipped := 0
	for _, path := range files {
		parsed, err := registry.ParseFile(ctx, path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping file")
			skipped++
			continue
		}
		docs = append(docs, parsed...)
	}

	if err := ix.Retrieval.IndexDocuments(ctx, docs); err != nil {
		return err
	}
	log.Info().Int("files", len(files)).Int("skipped", skipped).Int("documents", len(docs)).Msg("files indexed")
	return nil
}

func ingestFeeds(ctx context.Context, ix *app.Indexing, log zerolog.Logger, urls []string, limit int) error {
	feeds := parser.NewFeedParser()
	total := 0
	for _, url := range urls {
		docs, err := feeds.ParseURL(ctx, url, limit)
		if err != nil {
			return err
		}
		if err := ix.Retrieval.IndexDocuments(ctx, docs); err != nil {
			return err
		}
		total += len(docs)
		log.Info().Str("feed", url).Int("documents", len(docs)).Msg("feed indexed")
	}
	log.Info().Int("feeds", len(urls)).Int("documents", total).Msg("feeds indexed")
	return nil
}
