package usecase

import (
	"context"
	"io"
	"time"

	"feedrender/internal/feed"
)

// FeedFetcher определяет интерфейс для загрузки сырых данных ленты из внешних источников.
// Возвращает io.ReadCloser который должен быть закрыт после использования.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// FeedParser определяет интерфейс для разбора сырых данных в навигируемую ленту.
type FeedParser interface {
	Parse(ctx context.Context, reader io.Reader) (*feed.Feed, error)
}

// FeedCache определяет интерфейс файлового кэша сырых тел лент.
// Get возвращает ok=false, если записи нет или она старше ttl.
type FeedCache interface {
	Key(url string) string
	Get(key string, ttl time.Duration) ([]byte, bool, error)
	Put(key string, data []byte) error
}

// FeedSource отдаёт разобранную ленту по URL с учётом кэша.
type FeedSource interface {
	Load(ctx context.Context, rawURL string, ttl time.Duration) (*feed.Feed, error)
}
