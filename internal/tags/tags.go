// Package tags связывает ленты с шаблонным движком хоста.
//
// Хост вызывает теги с атрибутами и контекстом прохода рендеринга, созданным
// NewRenderContext, а вложенное содержимое рендерит через Renderer. Теги элементов
// находят активную ленту через тот же контекст.
package tags

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"feedrender/internal/domain"
	"feedrender/internal/feed"
	"feedrender/internal/session"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/ncruces/go-strftime"
)

// Имена тегов для диагностики.
const (
	TagFeed        = "feed"
	TagItemID      = "feed_item_id"
	TagItemTitle   = "feed_item_title"
	TagItemXPath   = "feed_item_xpath"
	TagItemIfXPath = "feed_item_if_xpath"
	TagItemLink    = "feed_item_link"
	TagItemPosted  = "feed_item_posted"
)

// DefaultDateFormat - формат даты, если ни тег, ни настройки его не задают.
const DefaultDateFormat = "%d %b %Y"

// Renderer рендерит вложенный шаблон. enabled переключает положительный и
// отрицательный контекст (условные ветки, отсутствующая лента).
type Renderer interface {
	Render(template string, enabled bool) string
}

// RenderFunc позволяет использовать функцию как Renderer.
type RenderFunc func(template string, enabled bool) string

func (f RenderFunc) Render(template string, enabled bool) string {
	return f(template, enabled)
}

// FeedSource загружает ленту с учётом кэша.
type FeedSource interface {
	Load(ctx context.Context, rawURL string, ttl time.Duration) (*feed.Feed, error)
}

// Options задаёт поведение тегов.
type Options struct {
	// Production подавляет диагностические сообщения.
	Production bool
	// Diagnostics получает сообщения об ошибках вне production.
	Diagnostics io.Writer
	// DateFormat - strftime-формат даты по умолчанию.
	DateFormat string
	// Location - часовой пояс, если gmt не задан.
	Location *time.Location
	// DefaultTTL применяется, если у тега ленты нет атрибута cache.
	DefaultTTL time.Duration
	// DefaultLimit применяется, если у тега ленты нет числового атрибута limit.
	DefaultLimit int
}

// Tags реализует теги ленты поверх загрузчика.
type Tags struct {
	source FeedSource
	render Renderer
	opts   Options
	log    *slog.Logger
}

func New(source FeedSource, render Renderer, opts Options, log *slog.Logger) *Tags {
	if opts.Diagnostics == nil {
		opts.Diagnostics = io.Discard
	}
	if opts.DateFormat == "" {
		opts.DateFormat = DefaultDateFormat
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Tags{
		source: source,
		render: render,
		opts:   opts,
		log:    log.With(slog.String("component", "tags")),
	}
}

// NewRenderContext начинает проход рендеринга с пустым слотом активной ленты.
func NewRenderContext(ctx context.Context) context.Context {
	return session.NewContext(ctx, session.New())
}

// Feed в одиночном режиме (inner == nil) возвращает заголовок ленты. В режиме
// контейнера рендерит inner для каждого элемента по порядку документа, не больше
// Limit раз, если Limit > 0. При ошибке загрузки или вложенности inner рендерится
// отрицательно.
func (t *Tags) Feed(ctx context.Context, attrs FeedAttrs, inner *string) string {
	if attrs.Feed == "" {
		t.report(TagFeed, platformerrors.New(domain.CodeMissingFeedURL, "feed attribute is empty"))
		return ""
	}

	if inner == nil {
		f, err := t.source.Load(ctx, attrs.Feed, attrs.Cache)
		if err != nil {
			t.report(TagFeed, err)
			return ""
		}
		return f.Title()
	}

	state := session.FromContext(ctx)
	if state == nil {
		t.report(TagFeed, platformerrors.New(domain.CodeMissingSession, "render context has no feed session"))
		return t.render.Render(*inner, false)
	}
	if state.IsActive() {
		t.report(TagFeed, session.ErrAlreadyActive)
		return t.render.Render(*inner, false)
	}

	f, err := t.source.Load(ctx, attrs.Feed, attrs.Cache)
	if err != nil {
		t.report(TagFeed, err)
		return t.render.Render(*inner, false)
	}

	var b strings.Builder
	err = state.Scope(f, func(f *feed.Feed) error {
		for i := range f.Cursor().All() {
			if attrs.Limit > 0 && i >= attrs.Limit {
				break
			}
			b.WriteString(t.render.Render(*inner, true))
		}
		return nil
	})
	if err != nil {
		t.report(TagFeed, err)
		return t.render.Render(*inner, false)
	}
	return b.String()
}

// ItemID возвращает идентификатор текущего элемента.
func (t *Tags) ItemID(ctx context.Context) string {
	c, ok := t.cursor(ctx, TagItemID)
	if !ok {
		return ""
	}
	return c.ID()
}

// ItemTitle возвращает заголовок текущего элемента.
func (t *Tags) ItemTitle(ctx context.Context) string {
	c, ok := t.cursor(ctx, TagItemTitle)
	if !ok {
		return ""
	}
	return c.Title()
}

// ItemXPath возвращает значение XPath-запроса для текущего элемента.
func (t *Tags) ItemXPath(ctx context.Context, attrs XPathAttrs) string {
	c, ok := t.cursor(ctx, TagItemXPath)
	if !ok {
		return ""
	}
	if attrs.XPath == "" {
		t.report(TagItemXPath, missingXPath())
		return ""
	}
	return c.XPath(attrs.XPath)
}

// ItemIfXPath рендерит inner положительно, если запрос нашёл узлы в текущем элементе.
func (t *Tags) ItemIfXPath(ctx context.Context, attrs XPathAttrs, inner string) string {
	c, ok := t.cursor(ctx, TagItemIfXPath)
	if !ok {
		return t.render.Render(inner, false)
	}
	if attrs.XPath == "" {
		t.report(TagItemIfXPath, missingXPath())
		return t.render.Render(inner, false)
	}
	return t.render.Render(inner, c.TestXPath(attrs.XPath))
}

// ItemLink в одиночном режиме возвращает URL элемента. В режиме контейнера
// оборачивает inner в ссылку. Без ленты или корректного абсолютного URL
// inner рендерится отрицательно.
func (t *Tags) ItemLink(ctx context.Context, attrs LinkAttrs, inner *string) string {
	c, ok := t.cursor(ctx, TagItemLink)
	if !ok {
		if inner != nil {
			return t.render.Render(*inner, false)
		}
		return ""
	}

	link := c.URL()
	if !validLink(link) {
		if inner != nil {
			return t.render.Render(*inner, false)
		}
		t.report(TagItemLink, platformerrors.Newf(domain.CodeInvalidItemLink, "item link %q is not an absolute URL", link))
		return ""
	}
	if inner == nil {
		return link
	}

	var b strings.Builder
	b.WriteString(`<a href="` + html.EscapeString(link) + `"`)
	writeAttr(&b, "title", c.Title())
	writeAttr(&b, "id", attrs.ID)
	writeAttr(&b, "class", attrs.Class)
	writeAttr(&b, "style", attrs.Style)
	writeAttr(&b, "target", attrs.Target)
	b.WriteString(">")
	b.WriteString(t.render.Render(*inner, true))
	b.WriteString("</a>")
	return b.String()
}

// ItemPosted форматирует время публикации текущего элемента strftime-форматом.
// Неразобранная дата даёт пустую строку.
func (t *Tags) ItemPosted(ctx context.Context, attrs PostedAttrs) string {
	c, ok := t.cursor(ctx, TagItemPosted)
	if !ok {
		return ""
	}
	posted := c.Posted()
	if posted == domain.PostedUnknown {
		return ""
	}
	format := attrs.Format
	if format == "" {
		format = t.opts.DateFormat
	}
	ts := time.Unix(posted, 0).In(t.opts.Location)
	if attrs.GMT {
		ts = ts.UTC()
	}
	return strftime.Format(format, ts)
}

// cursor возвращает курсор активной ленты либо сообщает, что тег вызван вне ленты.
func (t *Tags) cursor(ctx context.Context, tag string) (*feed.Cursor, bool) {
	f, ok := session.FromContext(ctx).Active()
	if !ok {
		t.report(tag, platformerrors.Newf(domain.CodeNoActiveFeed, "%s used outside of a feed", tag))
		return nil, false
	}
	return f.Cursor(), true
}

// report пишет ошибку в лог и, вне production, в диагностический вывод.
func (t *Tags) report(tag string, err error) {
	code := domain.Code(err)
	t.log.Warn("Tag failed",
		slog.String("tag", tag),
		slog.String("code", string(code)),
		slog.Any("error", err),
	)
	if t.opts.Production {
		return
	}
	fmt.Fprintf(t.opts.Diagnostics, "%s: %s\n", tag, Message(code))
}

func missingXPath() error {
	return platformerrors.New(domain.CodeMissingAttribute, "xpath attribute is required")
}

func validLink(link string) bool {
	if link == "" {
		return false
	}
	u, err := url.Parse(link)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func writeAttr(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(" " + name + `="` + html.EscapeString(value) + `"`)
}
