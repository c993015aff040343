// Command cinegraph enriches a YAML movie collection with LLM-generated
// metadata cross-referenced against TMDB and OMDb.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/config"
	"github.com/cinegraph/cinegraph/internal/crossref"
	"github.com/cinegraph/cinegraph/internal/enrich"
	"github.com/cinegraph/cinegraph/internal/images"
	"github.com/cinegraph/cinegraph/internal/llm"
	"github.com/cinegraph/cinegraph/internal/logger"
	"github.com/cinegraph/cinegraph/internal/metadata/omdb"
	"github.com/cinegraph/cinegraph/internal/metadata/tmdb"
	"github.com/cinegraph/cinegraph/internal/scheduler"
	"github.com/cinegraph/cinegraph/internal/transcript"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	modeFlag := flag.String("mode", "", "override the configured operation mode")
	flag.Parse()

	// Secrets usually live in a .env next to the binary; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *modeFlag != "" {
		cfg.Mode = config.Mode(*modeFlag)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	tmdbClient := tmdb.NewClient(cfg.TMDB, log.Logger)
	omdbClient := omdb.NewClient(cfg.OMDB, log.Logger)
	xref := crossref.NewResolver(tmdbClient, omdbClient, log.Logger)
	llmClient := llm.NewClient(cfg.LLM, log.Logger)

	if !llmClient.IsConfigured() {
		return fmt.Errorf("llm.base_url and llm.model must be configured")
	}
	if !tmdbClient.IsConfigured() {
		return fmt.Errorf("tmdb.api_key must be configured")
	}

	tw, err := transcript.Open(cfg.Output.TranscriptPath)
	if err != nil {
		log.Warn().Err(err).Msg("transcript disabled")
		tw = nil
	} else {
		defer tw.Close()
		log.Info().Str("sessionId", tw.SessionID()).Msg("transcript open")
	}

	store := catalog.NewStore(cfg.Output.CollectionPath)

	var acquirer enrich.ImageAcquirer
	if cfg.Stages.FetchImages {
		searcher := images.NewSearcher(cfg.Images.SearchTimeout, log.Logger)
		acquirer = images.NewFetcher(cfg.Images, searcher, tmdbClient, log.Logger)
	}

	session, err := enrich.NewSession(cfg, tmdbClient, xref, llmClient, store, acquirer, tw, log.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule != "" {
		sched, err := scheduler.New(log.Logger)
		if err != nil {
			return err
		}
		if err := sched.Schedule(ctx, cfg.Schedule, func(ctx context.Context) error {
			_, err := session.Run(ctx)
			return err
		}); err != nil {
			return err
		}
		<-ctx.Done()
		return sched.Stop()
	}

	sum, err := session.Run(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Int("added", sum.Added).
		Int("updated", sum.Updated).
		Int("dropped", sum.Dropped).
		Msg("done")
	return nil
}
