// Package main wires together the catalog service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/obscurecore/eduscan/internal/api"
	"github.com/obscurecore/eduscan/internal/bot"
	"github.com/obscurecore/eduscan/internal/config"
	collyfetcher "github.com/obscurecore/eduscan/internal/fetcher/colly"
	"github.com/obscurecore/eduscan/internal/landplot"
	"github.com/obscurecore/eduscan/internal/logging"
	"github.com/obscurecore/eduscan/internal/metrics"
	"github.com/obscurecore/eduscan/internal/pdfimages"
	"github.com/obscurecore/eduscan/internal/scrape"
	"github.com/obscurecore/eduscan/internal/session"
	csvstore "github.com/obscurecore/eduscan/internal/store/csv"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := csvstore.New(cfg.Store.Path)
	if err != nil {
		logger.Error("store init failed", zap.Error(err))
		os.Exit(1)
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		IgnoreRobots: cfg.Scraper.IgnoreRobots,
	})
	scraper := scrape.New(fetcher, store, cfg.Scraper.BaseURL, logger.Named("scrape"))
	plots := landplot.NewService(logger.Named("landplot"))
	images := pdfimages.NewExtractor(logger.Named("pdfimages"))

	apiServer := api.NewServer(scraper, plots, images, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.Telegram.Enabled {
		machine := session.NewMachine(session.NewStore(), scraper, plots, images, logger.Named("session"))
		tg, err := bot.New(cfg.Telegram.Token, machine, logger.Named("bot"))
		if err != nil {
			logger.Error("telegram init failed", zap.Error(err))
			os.Exit(1)
		}
		go func() {
			logger.Info("telegram bot started")
			tg.Run(ctx)
		}()
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
