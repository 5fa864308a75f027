package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CacheWarmer заранее загружает настроенные ленты, чтобы рендеринг попадал в тёплый кэш.
type CacheWarmer struct {
	source    FeedSource
	ttl       time.Duration
	log       *slog.Logger
	feedNames map[string]string
}

// NewCacheWarmer создает прогреватель кэша. feedNames сопоставляет URL с читаемыми именами для логов.
func NewCacheWarmer(source FeedSource, ttl time.Duration, log *slog.Logger, feedNames map[string]string) *CacheWarmer {
	return &CacheWarmer{
		source:    source,
		ttl:       ttl,
		log:       log,
		feedNames: feedNames,
	}
}

// ProcessFeed загружает ленту через кэш. Свежая запись не скачивается повторно,
// устаревшая обновляется.
func (uc *CacheWarmer) ProcessFeed(ctx context.Context, url string) error {
	start := time.Now()
	feedName := uc.extractFeedName(url)
	log := uc.log.With(
		slog.String("component", "cache-warmer"),
		slog.String("feed", feedName),
		slog.String("url", url),
	)

	log.Debug("Warming feed started")

	f, err := uc.source.Load(ctx, url, uc.ttl)
	if err != nil {
		log.Error("Feed warm-up failed", slog.Any("error", err))
		return fmt.Errorf("warm-up failed for %s: %w", feedName, err)
	}

	c := f.Cursor()
	c.Rewind()
	log.Info("Feed warmed",
		slog.String("type", f.Kind().String()),
		slog.Int("items", c.Len()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// extractFeedName извлекает читаемое имя ленты из URL.
// Использует предопределенный маппинг или домен из URL как fallback.
func (uc *CacheWarmer) extractFeedName(url string) string {
	if name, ok := uc.feedNames[url]; ok {
		return name
	}
	parts := strings.Split(url, "/")
	if len(parts) >= 3 {
		return strings.TrimPrefix(parts[2], "www.")
	}
	return "Unknown"
}
