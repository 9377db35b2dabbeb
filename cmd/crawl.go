package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meatloaf02/KG/internal/api"
	"github.com/meatloaf02/KG/internal/ingest"
	"github.com/meatloaf02/KG/internal/ingest/fetch"
)

func newCrawlCmd() *cobra.Command {
	var serveOps bool

	cmd := &cobra.Command{
		Use:   "crawl URL [URL...]",
		Short: "Fetch the given URLs politely",
		Long: `Fetches each URL through the full politeness pipeline: allowlist
check, robots.txt permission, per-domain rate limiting and bounded
retries. Duplicate URLs and duplicate content within the run are
reported and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd.Context(), args, serveOps)
		},
	}

	cmd.Flags().BoolVar(&serveOps, "serve-ops", false, "expose /metrics and /v1/stats while crawling")
	return cmd
}

func runCrawl(parent context.Context, urls []string, serveOps bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := ingest.NewSession(cfg, nil, nil, logger)
	logger.Info("crawl session started",
		zap.String("session_id", session.ID()),
		zap.Int("urls", len(urls)),
	)

	var opsServer *http.Server
	if serveOps {
		opsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.NewServer(session, logger).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := opsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("ops server shutdown failed", zap.Error(err))
			}
		}()
	}

	var fetched, skipped, failed int
	for _, rawURL := range urls {
		if ctx.Err() != nil {
			logger.Warn("crawl interrupted", zap.Int("remaining", len(urls)-fetched-skipped-failed))
			break
		}

		doc, err := session.Fetch(ctx, rawURL)
		switch {
		case err == nil:
			fetched++
			logger.Info("fetched",
				zap.String("url", rawURL),
				zap.String("url_hash", doc.URLHash),
				zap.Int("status", doc.Result.StatusCode),
				zap.Int("bytes", len(doc.Result.Body)),
				zap.Int("attempts", doc.Result.Attempts),
				zap.Bool("duplicate_content", doc.DuplicateContent),
			)
		case errors.Is(err, ingest.ErrSeenURL):
			skipped++
			logger.Info("skipped duplicate url", zap.String("url", rawURL))
		case errors.Is(err, fetch.ErrDisallowed), errors.Is(err, ingest.ErrDomainNotAllowed):
			skipped++
			logger.Warn("skipped by policy", zap.String("url", rawURL), zap.Error(err))
		default:
			failed++
			logger.Error("fetch failed", zap.String("url", rawURL), zap.Error(err))
		}
	}

	logger.Info("crawl session finished",
		zap.String("session_id", session.ID()),
		zap.Int("fetched", fetched),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d fetches failed", failed, len(urls))
	}
	return nil
}
