package parser

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"feedrender/internal/domain"
	"feedrender/internal/feed"

	"github.com/antchfx/xmlquery"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/mmcdole/gofeed"
)

// XMLParser разбирает сырые байты ленты в навигируемое дерево и определяет тип ленты.
type XMLParser struct {
	log *slog.Logger
}

func NewXMLParser(log *slog.Logger) *XMLParser {
	return &XMLParser{
		log: log.With(slog.String("component", "parser")),
	}
}

// Parse реализует метод интерфейса FeedParser.
func (p *XMLParser) Parse(ctx context.Context, reader io.Reader) (*feed.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		p.log.Error("Error reading feed document", slog.Any("error", err))
		return nil, platformerrors.Wrap(err, domain.CodeMalformedXML, "failed to read XML")
	}
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		p.log.Error("Error decoding XML", slog.Any("error", err))
		return nil, platformerrors.Wrap(err, domain.CodeMalformedXML, "failed to decode XML")
	}
	if xmlquery.FindOne(doc, "/*") == nil {
		p.log.Error("XML document has no root element")
		return nil, platformerrors.New(domain.CodeMalformedXML, "failed to decode XML: no root element")
	}
	f, err := feed.New(doc)
	if err != nil {
		hint := detectHint(data)
		p.log.Warn("Unsupported feed document", slog.String("detected", hint), slog.Any("error", err))
		return nil, platformerrors.WithContext(err, "detected", hint)
	}
	p.log.Debug("Feed parsed", slog.String("type", f.Kind().String()))
	return f, nil
}

// detectHint описывает, на что похож нераспознанный документ.
func detectHint(data []byte) string {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeAtom:
		return "atom without the Atom namespace"
	case gofeed.FeedTypeRSS:
		return "rss variant such as RSS 1.0 (RDF)"
	case gofeed.FeedTypeJSON:
		return "json feed"
	default:
		return "not a feed"
	}
}
