package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gojson "github.com/goccy/go-json"

	"lionrepo/internal/codec"
	"lionrepo/internal/domain"
	"lionrepo/internal/logging"
	"lionrepo/internal/repository"
	"lionrepo/internal/service"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 64 << 20

// Handler serves the repository API.
type Handler struct {
	svc      *service.Server
	interner *domain.Interner
	logger   *slog.Logger
}

// New creates a handler. A nil interner selects domain.DefaultInterner.
func New(svc *service.Server, interner *domain.Interner, logger *slog.Logger) *Handler {
	if interner == nil {
		interner = domain.DefaultInterner
	}
	return &Handler{svc: svc, interner: interner, logger: logging.OrDiscard(logger)}
}

// Routes registers the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/createRepository", h.CreateRepository)
	r.Post("/deleteRepository", h.DeleteRepository)
	r.Post("/listRepositories", h.ListRepositories)

	r.Route("/bulk", func(r chi.Router) {
		r.Post("/listPartitions", h.ListPartitions)
		r.Post("/createPartitions", h.CreatePartitions)
		r.Post("/deletePartitions", h.DeletePartitions)
		r.Post("/store", h.Store)
		r.Post("/retrieve", h.Retrieve)
		r.Post("/ids", h.IDs)
	})

	r.Route("/delta", func(r chi.Router) {
		r.Post("/changeProperty", h.ChangeProperty)
	})

	r.Route("/inspection", func(r chi.Router) {
		r.Get("/nodesByClassifier", h.NodesByClassifier)
		r.Get("/nodesByLanguage", h.NodesByLanguage)
		r.Get("/consistency", h.Consistency)
	})
}

// NewRouter builds the full HTTP stack: middleware, the API and, when
// events is not nil, the SSE stream at /events.
func NewRouter(h *Handler, events http.Handler) http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(h.logger),
		middleware.Recoverer,
	)
	h.Routes(r)
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.LogAttrs(r.Context(), slog.LevelDebug, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps an operation error to an HTTP status.
func statusFor(err error) int {
	var decodeErr *codec.DecodeError
	switch {
	case errors.Is(err, repository.ErrRepositoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrRepositoryExists),
		errors.Is(err, repository.ErrPartitionExists),
		errors.Is(err, repository.ErrIDCollision):
		return http.StatusConflict
	case errors.Is(err, repository.ErrInvalidArgument),
		errors.Is(err, repository.ErrUnknownNode),
		errors.Is(err, repository.ErrNotPartition),
		errors.Is(err, repository.ErrHistoryUnsupported),
		errors.As(err, &decodeErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), message, "error", err)
	} else {
		h.logger.DebugContext(r.Context(), message, "error", err, "status", status)
	}
	h.writeError(w, message, err.Error(), status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := gojson.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}

// repositoryName reads the mandatory repository parameter.
func repositoryName(r *http.Request) (string, error) {
	name := r.URL.Query().Get("repository")
	if name == "" {
		return "", fmt.Errorf("%w: repository parameter is required", repository.ErrInvalidArgument)
	}
	return name, nil
}

// intParam reads an optional integer query parameter.
func intParam(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", repository.ErrInvalidArgument, key, raw)
	}
	return v, nil
}

// chunkCodec selects the codec for a request body from its headers.
func (h *Handler) chunkCodec(r *http.Request) codec.Codec {
	var c codec.Codec = codec.NewJSONCodec(h.interner)
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		c = codec.NewYAMLCodec(h.interner)
	}
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "zstd") {
		c = codec.NewZstdCodec(c)
	}
	return c
}

func (h *Handler) readChunk(w http.ResponseWriter, r *http.Request) (*domain.Chunk, error) {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	chunk, err := h.chunkCodec(r).Decode(body)
	if err != nil {
		var decodeErr *codec.DecodeError
		if errors.As(err, &decodeErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrInvalidArgument, err)
	}
	return chunk, nil
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := gojson.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", repository.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: %v", repository.ErrInvalidArgument, err)
	}
	return nil
}

// encodeChunk renders chunk as embeddable JSON.
func (h *Handler) encodeChunk(chunk *domain.Chunk) (gojson.RawMessage, error) {
	var buf bytes.Buffer
	c := codec.NewJSONCodec(h.interner)
	c.Indent = ""
	if err := c.Encode(chunk, &buf); err != nil {
		return nil, err
	}
	return gojson.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}

func (h *Handler) writeChunk(w http.ResponseWriter, r *http.Request, chunk *domain.Chunk, version repository.VersionToken) {
	raw, err := h.encodeChunk(chunk)
	if err != nil {
		h.fail(w, r, "Failed to encode chunk", err)
		return
	}
	h.writeJSON(w, ChunkResponse{Version: version.String(), Chunk: raw}, http.StatusOK)
}
