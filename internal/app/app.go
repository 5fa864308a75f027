package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"feedrender/internal/adapter/cache"
	"feedrender/internal/adapter/fetcher"
	"feedrender/internal/adapter/parser"
	"feedrender/internal/config"
	"feedrender/internal/logger"
	"feedrender/internal/tags"
	server "feedrender/internal/transport/http"
	"feedrender/internal/usecase"
	"feedrender/internal/worker"

	"github.com/go-git/go-billy/v5/osfs"
)

// App связывает компоненты рендерера лент: загрузчик с дисковым кэшем,
// прогрев кэша, HTTP-сервер предпросмотра и теги для шаблонного движка.
type App struct {
	config   *config.Config
	logger   *slog.Logger
	loader   *usecase.FeedLoader
	server   *http.Server
	worker   *worker.Worker
	stopChan chan os.Signal
	wg       sync.WaitGroup
}

// New создает и инициализирует приложение по конфигурации.
// Возвращает ошибку в случае сбоя любой из инициализационных процедур.
func New(cfg *config.Config) (*App, error) {
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	slog.SetDefault(appLogger)
	return NewWithLogger(cfg, appLogger)
}

// NewWithLogger создает приложение с готовым логгером.
func NewWithLogger(cfg *config.Config, appLogger *slog.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.App.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cfg.App.CacheDir, err)
	}
	diskCache := cache.NewDiskCache(osfs.New(cfg.App.CacheDir), appLogger, cache.WithPrefix(cfg.App.CachePrefix))

	httpFetcher := fetcher.NewHTTPFetcher(appLogger,
		fetcher.WithTimeout(cfg.App.FetchTimeoutDuration()),
		fetcher.WithUserAgent(cfg.App.UserAgent),
	)

	xmlParser := parser.NewXMLParser(appLogger)

	loader := usecase.NewFeedLoader(httpFetcher, diskCache, xmlParser, appLogger)

	warmer := usecase.NewCacheWarmer(loader, cfg.App.CacheTTL(), appLogger, cfg.App.FeedNames())

	urls := make([]string, 0, len(cfg.App.FeedURLs))
	for _, feed := range cfg.App.FeedURLs {
		urls = append(urls, feed.URL)
	}
	w := worker.New(warmer, urls, cfg.App.Interval(), appLogger)

	preview := usecase.NewFeedPreviewUseCase(loader, appLogger)
	handler := server.NewHandler(appLogger, preview, cfg.App.CacheTTL(), cfg.App.DefaultLimit)
	router := server.NewServer(appLogger, handler)

	return &App{
		config: cfg,
		logger: appLogger,
		loader: loader,
		server: &http.Server{
			Addr:              cfg.Server.Address,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		worker:   w,
		stopChan: make(chan os.Signal, 1),
	}, nil
}

// Tags возвращает теги лент для шаблонного движка хоста. Диагностика
// пишется в diagnostics, если приложение не в production-режиме.
func (a *App) Tags(render tags.Renderer, diagnostics io.Writer) *tags.Tags {
	return tags.New(a.loader, render, tags.Options{
		Production:   a.config.App.Production,
		Diagnostics:  diagnostics,
		DateFormat:   a.config.App.DateFormat,
		Location:     a.config.App.Location(),
		DefaultTTL:   a.config.App.CacheTTL(),
		DefaultLimit: a.config.App.DefaultLimit,
	}, a.logger)
}

// Handler возвращает HTTP-обработчик предпросмотра.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run запускает прогрев кэша и HTTP-сервер и блокируется до сигнала завершения.
func (a *App) Run() error {
	a.logger.Info("Starting feed renderer",
		slog.String("component", "app"),
		slog.Int("feed_count", len(a.worker.GetURLs())),
		slog.String("processing_interval", a.worker.GetInterval().String()),
		slog.String("cache_dir", a.config.App.CacheDir),
	)
	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	a.worker.Start()
	a.logger.Info("HTTP server ready",
		slog.String("component", "server"),
		slog.String("address", listener.Addr().String()),
	)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.String("component", "server"), slog.Any("error", err))
			a.stopChan <- syscall.SIGTERM
		}
	}()
	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-a.stopChan
	a.logger.Info("Shutdown signal received",
		slog.String("component", "app"),
		slog.String("signal", sig.String()),
	)
	return a.Shutdown()
}

// Shutdown останавливает прогрев кэша и HTTP-сервер и ждёт завершения горутин.
// HTTP-серверу даётся 10 секунд на завершение запросов.
func (a *App) Shutdown() error {
	a.logger.Info("Starting graceful shutdown", slog.String("component", "app"))
	signal.Stop(a.stopChan)
	a.worker.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.server.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("HTTP server shutdown failed", slog.String("component", "server"), slog.Any("error", err))
	}
	a.wg.Wait()
	a.logger.Info("Application stopped gracefully", slog.String("component", "app"))
	return err
}
