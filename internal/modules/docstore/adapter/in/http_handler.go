package in

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	hclog "github.com/hashicorp/go-hclog"

	docstoredto "timeblocks/internal/modules/docstore/dto"
	docstorein "timeblocks/internal/modules/docstore/port/in"
	apperrors "timeblocks/internal/platform/errors"
)

const (
	maxBodyBytes      = 64 << 10
	heartbeatInterval = 15 * time.Second
)

type HTTPHandler struct {
	usecase docstorein.Usecase
	logger  hclog.Logger
}

func NewHTTPHandler(usecase docstorein.Usecase, logger hclog.Logger) *HTTPHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &HTTPHandler{usecase: usecase, logger: logger}
}

// Router serves the document API:
//
//	GET   /healthz
//	GET   /v1/docs/{ns}/{uid}         current document
//	PATCH /v1/docs/{ns}/{uid}         field-wise merge
//	GET   /v1/docs/{ns}/{uid}/events  server-sent events, current value first
func (h *HTTPHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Cache-Control"},
	}))

	r.Get("/healthz", h.health)
	r.Route("/v1/docs/{ns}/{uid}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.merge)
		r.Get("/events", h.events)
	})
	return r
}

func (h *HTTPHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.usecase.Get(r.Context(), chi.URLParam(r, "ns"), chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

func (h *HTTPHandler) merge(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: read body: %w", apperrors.ErrInvalidInput, err))
		return
	}
	doc, err := h.usecase.Merge(r.Context(), chi.URLParam(r, "ns"), chi.URLParam(r, "uid"), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

func (h *HTTPHandler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, errors.New("streaming unsupported"))
		return
	}
	docs, cancel, err := h.usecase.Subscribe(r.Context(), chi.URLParam(r, "ns"), chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case doc, ok := <-docs:
			if !ok {
				return
			}
			data := []byte("null")
			if doc.Exists {
				data = doc.Body
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", doc.Revision, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *HTTPHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDocument(w http.ResponseWriter, doc docstoredto.DocumentOutput) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", fmt.Sprintf(`"%d"`, doc.Revision))
	if !doc.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", doc.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
