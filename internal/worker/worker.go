package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const defaultFeedTimeout = 30 * time.Second

// FeedProcessor прогревает кэш одной ленты.
type FeedProcessor interface {
	ProcessFeed(ctx context.Context, url string) error
}

// CycleStats - итог одного цикла прогрева.
type CycleStats struct {
	Successful int
	Failed     int
	Duration   time.Duration
}

// Worker периодически прогревает кэш настроенных лент, обрабатывая их параллельно.
type Worker struct {
	processor   FeedProcessor
	urls        []string
	interval    time.Duration
	feedTimeout time.Duration
	log         *slog.Logger
	cancel      context.CancelFunc
	done        chan struct{}
}

// New создает воркер прогрева кэша.
// Принимает процессор, список URL, интервал между циклами и логгер.
func New(processor FeedProcessor, urls []string, interval time.Duration, log *slog.Logger) *Worker {
	return &Worker{
		processor:   processor,
		urls:        urls,
		interval:    interval,
		feedTimeout: defaultFeedTimeout,
		log:         log.With(slog.String("component", "worker")),
	}
}

// Start запускает воркер в отдельной горутине. Первый цикл выполняется сразу.
func (w *Worker) Start() {
	var ctx context.Context
	ctx, w.cancel = context.WithCancel(context.Background())
	w.done = make(chan struct{})
	go w.run(ctx)
}

// Stop отменяет текущий цикл и ждёт завершения горутины воркера.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	w.log.Info("Cache warmer started",
		slog.String("interval", w.interval.String()),
		slog.Int("feed_count", len(w.urls)),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.RunCycle(ctx)
	for {
		select {
		case <-ticker.C:
			w.RunCycle(ctx)
		case <-ctx.Done():
			w.log.Info("Cache warmer stopping")
			return
		}
	}
}

// RunCycle прогревает все ленты параллельно, каждую со своим таймаутом,
// и возвращает число успешных и неудачных загрузок.
func (w *Worker) RunCycle(ctx context.Context) CycleStats {
	start := time.Now()
	w.log.Debug("Warm-up cycle started", slog.Int("feed_to_process", len(w.urls)))
	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	for _, url := range w.urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			opCtx, opCancel := context.WithTimeout(ctx, w.feedTimeout)
			defer opCancel()
			if err := w.processor.ProcessFeed(opCtx, u); err != nil {
				errorCount.Add(1)
				w.log.Error("Feed warm-up failed",
					slog.String("url", u),
					slog.Any("error", err),
				)
				return
			}
			successCount.Add(1)
		}(url)
	}
	wg.Wait()
	stats := CycleStats{
		Successful: int(successCount.Load()),
		Failed:     int(errorCount.Load()),
		Duration:   time.Since(start),
	}
	w.log.Info("Warm-up cycle completed",
		slog.Int("successful", stats.Successful),
		slog.Int("errors", stats.Failed),
		slog.Int("total", len(w.urls)),
		slog.Duration("duration", stats.Duration),
	)
	return stats
}

// GetURLs возвращает список URL, которые прогревает воркер.
func (w *Worker) GetURLs() []string { return w.urls }

// GetInterval возвращает интервал между циклами прогрева.
func (w *Worker) GetInterval() time.Duration { return w.interval }
