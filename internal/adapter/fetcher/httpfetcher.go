package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"feedrender/internal/domain"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "feedrender/1.0"
)

// HTTPFetcher загружает ленты по HTTP.
// Ошибки сети и неуспешные HTTP-статусы возвращаются с кодом FETCH_FAILED.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	log       *slog.Logger
}

// Option настраивает HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout задаёт таймаут HTTP-клиента.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent задаёт заголовок User-Agent.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// NewHTTPFetcher создает новый экземпляр HTTPFetcher.
func NewHTTPFetcher(log *slog.Logger, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		log:       log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch выполняет GET-запрос и возвращает тело ответа.
// Тело должно быть закрыто вызывающей стороной.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	log := f.log.With(slog.String("component", "fetcher"), slog.String("url", url))
	log.Debug("Fetching URL")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return nil, domain.NewFetchError(fmt.Errorf("failed to create request: %w", err), url)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/atom+xml, application/rss+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8")
	resp, err := f.client.Do(req)
	if err != nil {
		log.Error("HTTP request failed", slog.Any("error", err))
		return nil, domain.NewFetchError(err, url)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		log.Error("Unexpected status code", slog.Int("status_code", resp.StatusCode))
		return nil, domain.NewFetchError(fmt.Errorf("unexpected status code: %d", resp.StatusCode), url)
	}
	log.Info("Successfully fetched URL")
	return resp.Body, nil
}
