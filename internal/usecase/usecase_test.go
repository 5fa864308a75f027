package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"feedrender/internal/adapter/cache"
	"feedrender/internal/adapter/fetcher"
	"feedrender/internal/adapter/parser"
	"feedrender/internal/domain"
	"feedrender/internal/feed"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssXML = `<?xml version="1.0"?>
<rss version="2.0">
	<channel>
		<title>Example RSS</title>
		<item>
			<title>A</title>
			<link>https://example.com/a</link>
			<guid>a-1</guid>
			<pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
			<category>go</category>
		</item>
		<item>
			<title>B</title>
			<link>https://example.com/b</link>
			<guid>b-2</guid>
		</item>
	</channel>
</rss>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	server  *httptest.Server
	hits    *atomic.Int64
	dir     string
	clock   *clock
	cache   *cache.DiskCache
	loader  *FeedLoader
	status  *atomic.Int64
	payload *atomic.Value
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		hits:    &atomic.Int64{},
		status:  &atomic.Int64{},
		payload: &atomic.Value{},
		dir:     t.TempDir(),
		clock:   &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	fx.status.Store(http.StatusOK)
	fx.payload.Store(rssXML)
	fx.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fx.hits.Add(1)
		w.WriteHeader(int(fx.status.Load()))
		_, _ = w.Write([]byte(fx.payload.Load().(string)))
	}))
	t.Cleanup(fx.server.Close)

	log := discardLogger()
	fx.cache = cache.NewDiskCache(osfs.New(fx.dir), log, cache.WithClock(fx.clock.Now))
	fx.loader = NewFeedLoader(fetcher.NewHTTPFetcher(log), fx.cache, parser.NewXMLParser(log), log)
	return fx
}

func (fx *fixture) url() string {
	return fx.server.URL + "/feed.xml"
}

// touch выставляет время модификации записи кэша.
func (fx *fixture) touch(t *testing.T, mod time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(filepath.Join(fx.dir, fx.cache.Key(fx.url())), mod, mod))
}

func TestFeedLoader_Load(t *testing.T) {
	fx := newFixture(t)

	f, err := fx.loader.Load(context.Background(), fx.url(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, feed.KindRSS, f.Kind())
	assert.Equal(t, "Example RSS", f.Title())
	assert.Equal(t, int64(1), fx.hits.Load())

	cached, err := os.ReadFile(filepath.Join(fx.dir, fx.cache.Key(fx.url())))
	require.NoError(t, err)
	assert.Equal(t, rssXML, string(cached))
}

func TestFeedLoader_CacheTTL(t *testing.T) {
	fx := newFixture(t)
	ttl := 3600 * time.Second
	written := fx.clock.Now()

	_, err := fx.loader.Load(context.Background(), fx.url(), ttl)
	require.NoError(t, err)
	fx.touch(t, written)
	require.Equal(t, int64(1), fx.hits.Load())

	fx.clock.Set(written.Add(ttl - time.Second))
	_, err = fx.loader.Load(context.Background(), fx.url(), ttl)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fx.hits.Load(), "fresh entry must be served from cache")

	fx.clock.Set(written.Add(ttl + time.Second))
	_, err = fx.loader.Load(context.Background(), fx.url(), ttl)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fx.hits.Load(), "stale entry must be refetched")
}

func TestFeedLoader_ZeroTTLAlwaysFetches(t *testing.T) {
	fx := newFixture(t)

	for i := 0; i < 3; i++ {
		_, err := fx.loader.Load(context.Background(), fx.url(), 0)
		require.NoError(t, err)
		fx.touch(t, fx.clock.Now())
	}
	assert.Equal(t, int64(3), fx.hits.Load())
}

func TestFeedLoader_ServesFromCacheWithoutNetwork(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.loader.Load(context.Background(), fx.url(), time.Hour)
	require.NoError(t, err)
	fx.server.Close()

	f, err := fx.loader.Load(context.Background(), fx.url(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "Example RSS", f.Title())
}

func TestFeedLoader_ReturnsIndependentFeeds(t *testing.T) {
	fx := newFixture(t)

	first, err := fx.loader.Load(context.Background(), fx.url(), time.Hour)
	require.NoError(t, err)
	second, err := fx.loader.Load(context.Background(), fx.url(), time.Hour)
	require.NoError(t, err)

	first.Cursor().Rewind()
	first.Cursor().Advance()
	second.Cursor().Rewind()
	assert.Equal(t, "B", first.Cursor().Title())
	assert.Equal(t, "A", second.Cursor().Title())
}

func TestFeedLoader_MalformedURL(t *testing.T) {
	fx := newFixture(t)

	for _, raw := range []string{"", "not a url", "example.com/feed", "/relative/feed.xml", "http://"} {
		t.Run(raw, func(t *testing.T) {
			f, err := fx.loader.Load(context.Background(), raw, time.Hour)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.Equal(t, domain.CodeMalformedURL, domain.Code(err))
		})
	}
	assert.Equal(t, int64(0), fx.hits.Load())
}

func TestFeedLoader_MissingParser(t *testing.T) {
	fx := newFixture(t)
	loader := NewFeedLoader(fetcher.NewHTTPFetcher(discardLogger()), fx.cache, nil, discardLogger())

	f, err := loader.Load(context.Background(), fx.url(), time.Hour)
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Equal(t, domain.CodeMissingParserCapability, domain.Code(err))
	assert.Equal(t, int64(0), fx.hits.Load())
}

func TestFeedLoader_FetchFailureIsNotCached(t *testing.T) {
	fx := newFixture(t)
	fx.status.Store(http.StatusInternalServerError)

	_, err := fx.loader.Load(context.Background(), fx.url(), time.Hour)
	require.Error(t, err)
	assert.Equal(t, domain.CodeFetchFailed, domain.Code(err))

	_, statErr := os.Stat(filepath.Join(fx.dir, fx.cache.Key(fx.url())))
	assert.True(t, os.IsNotExist(statErr))

	fx.status.Store(http.StatusOK)
	_, err = fx.loader.Load(context.Background(), fx.url(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fx.hits.Load())
}

func TestFeedLoader_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		code    string
	}{
		{name: "malformed xml", payload: "<rss><channel>", code: string(domain.CodeMalformedXML)},
		{name: "unknown type", payload: "<html><body/></html>", code: string(domain.CodeUnknownFeedType)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.payload.Store(tt.payload)

			f, err := fx.loader.Load(context.Background(), fx.url(), time.Hour)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.Equal(t, tt.code, string(domain.Code(err)))
		})
	}
}

type gatedFetcher struct {
	calls   atomic.Int64
	entered chan struct{}
	release chan struct{}
}

func (g *gatedFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return io.NopCloser(strings.NewReader(rssXML)), nil
}

func TestFeedLoader_ConcurrentMissesShareOneFetch(t *testing.T) {
	log := discardLogger()
	g := &gatedFetcher{entered: make(chan struct{}), release: make(chan struct{})}
	c := cache.NewDiskCache(osfs.New(t.TempDir()), log)
	loader := NewFeedLoader(g, c, parser.NewXMLParser(log), log)
	const url = "https://example.com/feed.xml"

	var wg sync.WaitGroup
	titles := make([]string, 5)
	load := func(i int) {
		defer wg.Done()
		f, err := loader.Load(context.Background(), url, time.Hour)
		if assert.NoError(t, err) {
			titles[i] = f.Title()
		}
	}

	wg.Add(1)
	go load(0)
	<-g.entered
	for i := 1; i < len(titles); i++ {
		wg.Add(1)
		go load(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(g.release)
	wg.Wait()

	assert.Equal(t, int64(1), g.calls.Load())
	for _, title := range titles {
		assert.Equal(t, "Example RSS", title)
	}
}

func TestFeedLoader_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	log := discardLogger()
	g := &gatedFetcher{entered: make(chan struct{}), release: make(chan struct{})}
	c := cache.NewDiskCache(osfs.New(t.TempDir()), log)
	loader := NewFeedLoader(g, c, parser.NewXMLParser(log), log)
	const url = "https://example.com/feed.xml"

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := loader.Load(ctx, url, time.Hour)
		firstErr <- err
	}()
	<-g.entered

	second := make(chan *feed.Feed, 1)
	go func() {
		f, err := loader.Load(context.Background(), url, time.Hour)
		assert.NoError(t, err)
		second <- f
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(g.release)
	f := <-second
	require.NotNil(t, f)
	assert.Equal(t, "Example RSS", f.Title())
	assert.Equal(t, int64(1), g.calls.Load())

	data, ok, err := c.Get(c.Key(url), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, data)
}

type stubSource struct {
	mu    sync.Mutex
	calls map[string]int
	ttl   time.Duration
	err   error
	f     func() (*feed.Feed, error)
}

func (s *stubSource) Load(ctx context.Context, rawURL string, ttl time.Duration) (*feed.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[rawURL]++
	s.ttl = ttl
	if s.err != nil {
		return nil, s.err
	}
	return s.f()
}

func parseFeed(t *testing.T, data string) func() (*feed.Feed, error) {
	return func() (*feed.Feed, error) {
		return parser.NewXMLParser(discardLogger()).Parse(context.Background(), strings.NewReader(data))
	}
}

func TestCacheWarmer_ProcessFeed(t *testing.T) {
	src := &stubSource{f: parseFeed(t, rssXML)}
	warmer := NewCacheWarmer(src, 30*time.Minute, discardLogger(), nil)

	require.NoError(t, warmer.ProcessFeed(context.Background(), "https://example.com/feed.xml"))
	assert.Equal(t, 1, src.calls["https://example.com/feed.xml"])
	assert.Equal(t, 30*time.Minute, src.ttl)
}

func TestCacheWarmer_ProcessFeedLogsItemCount(t *testing.T) {
	var out bytes.Buffer
	log := slog.New(slog.NewTextHandler(&out, nil))
	warmer := NewCacheWarmer(&stubSource{f: parseFeed(t, rssXML)}, time.Hour, log, nil)

	require.NoError(t, warmer.ProcessFeed(context.Background(), "https://example.com/feed.xml"))
	assert.Contains(t, out.String(), "items=2")
}

func TestCacheWarmer_ProcessFeedError(t *testing.T) {
	src := &stubSource{err: domain.NewFetchError(io.ErrUnexpectedEOF, "https://www.example.com/feed.xml")}
	warmer := NewCacheWarmer(src, time.Hour, discardLogger(), map[string]string{})

	err := warmer.ProcessFeed(context.Background(), "https://www.example.com/feed.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warm-up failed for example.com")
	assert.Equal(t, domain.CodeFetchFailed, domain.Code(err))
}

func TestCacheWarmer_ExtractFeedName(t *testing.T) {
	warmer := NewCacheWarmer(&stubSource{}, time.Hour, discardLogger(), map[string]string{
		"https://example.com/rss": "Example",
	})
	assert.Equal(t, "Example", warmer.extractFeedName("https://example.com/rss"))
	assert.Equal(t, "news.example.org", warmer.extractFeedName("https://www.news.example.org/feed"))
	assert.Equal(t, "Unknown", warmer.extractFeedName("feed"))
}

func TestFeedPreview(t *testing.T) {
	src := &stubSource{f: parseFeed(t, rssXML)}
	uc := NewFeedPreviewUseCase(src, discardLogger())

	preview, err := uc.Preview(context.Background(), PreviewRequest{
		URL:   "https://example.com/feed.xml",
		TTL:   time.Minute,
		XPath: "./category",
	})
	require.NoError(t, err)
	assert.Equal(t, "Example RSS", preview.Title)
	assert.Equal(t, "rss", preview.Type)
	require.Len(t, preview.Items, 2)

	first := preview.Items[0]
	assert.Equal(t, domain.Item{ID: "a-1", Title: "A", Link: "https://example.com/a", Posted: 1136214245}, first.Item)
	require.NotNil(t, first.XPath)
	assert.Equal(t, "go", *first.XPath)
	assert.True(t, *first.XPathExists)

	second := preview.Items[1]
	assert.Equal(t, "", *second.XPath)
	assert.False(t, *second.XPathExists)
	assert.False(t, second.HasPosted())
	assert.Equal(t, time.Minute, src.ttl)
}

func TestFeedPreview_Limit(t *testing.T) {
	src := &stubSource{f: parseFeed(t, rssXML)}
	uc := NewFeedPreviewUseCase(src, discardLogger())

	preview, err := uc.Preview(context.Background(), PreviewRequest{URL: "https://example.com/feed.xml", Limit: 1})
	require.NoError(t, err)
	require.Len(t, preview.Items, 1)
	assert.Equal(t, "A", preview.Items[0].Title)
	assert.Nil(t, preview.Items[0].XPath)
}

func TestFeedPreview_LoadError(t *testing.T) {
	src := &stubSource{err: domain.NewFetchError(io.EOF, "https://example.com/feed.xml")}
	uc := NewFeedPreviewUseCase(src, discardLogger())

	preview, err := uc.Preview(context.Background(), PreviewRequest{URL: "https://example.com/feed.xml"})
	require.Error(t, err)
	assert.Nil(t, preview)
}
