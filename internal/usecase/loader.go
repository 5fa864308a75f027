package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/url"
	"time"

	"feedrender/internal/domain"
	"feedrender/internal/feed"

	platformerrors "github.com/jmgilman/go/errors"
	"golang.org/x/sync/singleflight"
)

// FeedLoader отдаёт ленту из кэша, если запись свежая, иначе скачивает её и обновляет кэш.
// Одновременные промахи по одному URL сводятся к одной загрузке.
type FeedLoader struct {
	fetcher FeedFetcher
	cache   FeedCache
	parser  FeedParser
	group   singleflight.Group
	log     *slog.Logger
}

// NewFeedLoader создает загрузчик лент. parser может быть nil, тогда Load
// сообщает об отсутствии XML-парсера.
func NewFeedLoader(fetcher FeedFetcher, cache FeedCache, parser FeedParser, log *slog.Logger) *FeedLoader {
	return &FeedLoader{
		fetcher: fetcher,
		cache:   cache,
		parser:  parser,
		log:     log.With(slog.String("component", "feed-loader")),
	}
}

// Load возвращает разобранную ленту. Каждый вызов получает собственный экземпляр
// ленты, поэтому курсор и кэши элементов не разделяются между вызывающими.
func (l *FeedLoader) Load(ctx context.Context, rawURL string, ttl time.Duration) (*feed.Feed, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	if l.parser == nil {
		return nil, platformerrors.New(domain.CodeMissingParserCapability, "XML parser is not available")
	}
	log := l.log.With(slog.String("url", rawURL))

	data, err := l.body(ctx, rawURL, ttl, log)
	if err != nil {
		return nil, err
	}

	f, err := l.parser.Parse(ctx, bytes.NewReader(data))
	if err != nil {
		log.Warn("Feed parsing failed", slog.String("stage", "parse"), slog.Any("error", err))
		return nil, err
	}
	return f, nil
}

func (l *FeedLoader) body(ctx context.Context, rawURL string, ttl time.Duration, log *slog.Logger) ([]byte, error) {
	key := l.cache.Key(rawURL)

	data, ok, err := l.cache.Get(key, ttl)
	if err != nil {
		log.Warn("Cache read failed", slog.String("stage", "cache"), slog.Any("error", err))
	}
	if ok {
		log.Debug("Cache hit", slog.String("stage", "cache"))
		return data, nil
	}

	// Загрузку разделяют все ожидающие, поэтому отмена одного из них её не прерывает.
	// Время ограничено таймаутом HTTP-клиента.
	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		start := time.Now()
		reader, err := l.fetcher.Fetch(fetchCtx, rawURL)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		body, err := io.ReadAll(reader)
		if err != nil {
			return nil, domain.NewFetchError(err, rawURL)
		}
		if err := l.cache.Put(key, body); err != nil {
			log.Warn("Cache write failed", slog.String("stage", "cache"), slog.Any("error", err))
		}
		log.Info("Feed fetched",
			slog.String("stage", "fetch"),
			slog.Int("bytes", len(body)),
			slog.Duration("duration", time.Since(start)),
		)
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			log.Error("Feed fetch failed", slog.String("stage", "fetch"), slog.Any("error", res.Err))
			return nil, res.Err
		}
		if res.Shared {
			log.Debug("Fetch shared with concurrent caller", slog.String("stage", "fetch"))
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		log.Warn("Feed load abandoned", slog.String("stage", "fetch"), slog.Any("error", ctx.Err()))
		return nil, ctx.Err()
	}
}

func validateURL(rawURL string) error {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return platformerrors.Wrapf(err, domain.CodeMalformedURL, "malformed feed URL %q", rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return platformerrors.Newf(domain.CodeMalformedURL, "malformed feed URL %q: scheme and host are required", rawURL)
	}
	return nil
}
