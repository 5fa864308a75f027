package usecase

import (
	"context"
	"log/slog"
	"time"

	"feedrender/internal/domain"
	"feedrender/internal/feed"
	"feedrender/internal/session"
)

// PreviewRequest описывает запрос предпросмотра. Limit <= 0 означает все элементы.
type PreviewRequest struct {
	URL   string
	Limit int
	TTL   time.Duration
	XPath string
}

// FeedPreviewUseCase собирает снимок ленты для API.
type FeedPreviewUseCase struct {
	source FeedSource
	log    *slog.Logger
}

func NewFeedPreviewUseCase(source FeedSource, log *slog.Logger) *FeedPreviewUseCase {
	return &FeedPreviewUseCase{
		source: source,
		log:    log.With(slog.String("component", "preview")),
	}
}

// Preview загружает ленту и обходит её элементы внутри области активной ленты,
// как это делает рендеринг тегов.
func (uc *FeedPreviewUseCase) Preview(ctx context.Context, req PreviewRequest) (*domain.Preview, error) {
	f, err := uc.source.Load(ctx, req.URL, req.TTL)
	if err != nil {
		return nil, err
	}

	state := session.New()
	out := &domain.Preview{Items: []domain.PreviewItem{}}
	err = state.Scope(f, func(f *feed.Feed) error {
		out.Title = f.Title()
		out.Type = f.Kind().String()
		for i, item := range f.Cursor().All() {
			if req.Limit > 0 && i >= req.Limit {
				break
			}
			p := domain.PreviewItem{Item: item.Snapshot()}
			if req.XPath != "" {
				value := item.XPath(req.XPath)
				exists := item.TestXPath(req.XPath)
				p.XPath = &value
				p.XPathExists = &exists
			}
			out.Items = append(out.Items, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Debug("Preview built",
		slog.String("url", req.URL),
		slog.Int("items", len(out.Items)),
	)
	return out, nil
}
