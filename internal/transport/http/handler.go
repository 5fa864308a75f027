package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"feedrender/internal/domain"
	"feedrender/internal/usecase"

	platformerrors "github.com/jmgilman/go/errors"
)

const maxLimit = 100

type feedPreviewer interface {
	Preview(ctx context.Context, req usecase.PreviewRequest) (*domain.Preview, error)
}

type Handler struct {
	log          *slog.Logger
	previewer    feedPreviewer
	defaultTTL   time.Duration
	defaultLimit int
}

func NewHandler(log *slog.Logger, previewer feedPreviewer, defaultTTL time.Duration, defaultLimit int) *Handler {
	return &Handler{
		log:          log,
		previewer:    previewer,
		defaultTTL:   defaultTTL,
		defaultLimit: defaultLimit,
	}
}

// previewFeed - хендлер для эндпоинта GET /api/feed
func (h *Handler) previewFeed(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/previewFeed"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
	if r.Method != http.MethodGet {
		log.Warn("method not allowed")
		respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	q := r.URL.Query()
	req := usecase.PreviewRequest{
		URL:   q.Get("url"),
		Limit: h.defaultLimit,
		TTL:   h.defaultTTL,
		XPath: q.Get("xpath"),
	}
	if req.URL == "" {
		log.Warn("missing url parameter")
		respondWithError(w, http.StatusBadRequest, "Missing 'url' parameter")
		return
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 || limit > maxLimit {
			log.Warn("invalid limit parameter", slog.String("limit", limitStr))
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		req.Limit = limit
	}
	if ttlStr := q.Get("ttl"); ttlStr != "" {
		ttl, err := strconv.ParseInt(ttlStr, 10, 64)
		if err != nil || ttl < 0 {
			log.Warn("invalid ttl parameter", slog.String("ttl", ttlStr))
			respondWithError(w, http.StatusBadRequest, "Invalid 'ttl' parameter")
			return
		}
		req.TTL = domain.TTLSeconds(ttl)
	}

	preview, err := h.previewer.Preview(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("Failed to preview feed", slog.String("url", req.URL), slog.Any("error", err))
		} else {
			log.Warn("Feed preview rejected", slog.String("url", req.URL), slog.Any("error", err))
		}
		respondWithJSON(w, status, platformerrors.ToJSON(err))
		return
	}

	respondWithJSON(w, http.StatusOK, preview)
}

// healthCheck - хендлер для проверки состояния сервиса
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor сопоставляет код ошибки загрузки с HTTP-статусом.
func statusFor(err error) int {
	switch domain.Code(err) {
	case domain.CodeMalformedURL:
		return http.StatusBadRequest
	case domain.CodeFetchFailed:
		return http.StatusBadGateway
	case domain.CodeMalformedXML, domain.CodeUnknownFeedType:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Вспомогательные функции для ответов
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
