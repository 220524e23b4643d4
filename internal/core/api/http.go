package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/solatis/thomson/internal/core/history"
	"github.com/solatis/thomson/internal/document"
	"github.com/solatis/thomson/internal/transform"
	"github.com/solatis/thomson/internal/types"
)

// HTTPOptions configures NewHTTPHandler.
type HTTPOptions struct {
	// MaxDocumentSize bounds the request body in bytes.
	MaxDocumentSize int
	// Auth, when set, wraps the /v1 routes.
	Auth func(http.Handler) http.Handler
}

type httpHandler struct {
	service *Service
	opts    HTTPOptions
	logger  zerolog.Logger
}

// NewHTTPHandler creates the HTTP surface:
//
//	POST /v1/transform   {"rules": ..., "source": ...}
//	GET  /v1/runs        ?limit=N&status=ok|failed
//	GET  /v1/runs/{id}
//	GET  /healthz
//	GET  /metrics
//
// The request envelope may be JSON (default), TOML or YAML, selected by
// Content-Type. Responses are always JSON.
func NewHTTPHandler(service *Service, opts HTTPOptions, logger zerolog.Logger) http.Handler {
	if opts.MaxDocumentSize <= 0 {
		opts.MaxDocumentSize = types.MaxDocumentSize
	}
	h := &httpHandler{
		service: service,
		opts:    opts,
		logger:  logger.With().Str("component", "http").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		r.Post("/transform", h.transform)
		r.Get("/runs", h.listRuns)
		r.Get("/runs/{id}", h.getRun)
	})

	return r
}

type transformResponse struct {
	RunID   types.RunID `json:"run_id"`
	Entries int         `json:"entries"`
	Output  any         `json:"output"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Path  string `json:"path,omitempty"`
}

// transform handles POST /v1/transform.
func (h *httpHandler) transform(w http.ResponseWriter, r *http.Request) {
	format, err := requestFormat(r.Header.Get("Content-Type"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(h.opts.MaxDocumentSize)))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: limit is %d bytes", types.ErrDocumentTooLarge, tooLarge.Limit)
		}
		h.fail(w, r, err)
		return
	}

	envelope, err := document.Decode(body, format)
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	fields, ok := envelope.(map[string]any)
	if !ok {
		h.fail(w, r, fmt.Errorf("%w: body must be an object", ErrBadRequest))
		return
	}
	rulesDoc, ok := fields["rules"]
	if !ok {
		h.fail(w, r, fmt.Errorf(`%w: missing "rules" field`, ErrBadRequest))
		return
	}
	source, ok := fields["source"]
	if !ok {
		h.fail(w, r, fmt.Errorf(`%w: missing "source" field`, ErrBadRequest))
		return
	}

	outcome, err := h.service.Execute(r.Context(), history.OriginHTTP, rulesDoc, source)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.write(w, r, http.StatusOK, transformResponse{
		RunID:   outcome.RunID,
		Entries: outcome.Entries,
		Output:  outcome.Output,
	})
}

// listRuns handles GET /v1/runs.
func (h *httpHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	opts := history.ListOptions{Status: history.Status(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.fail(w, r, fmt.Errorf("%w: invalid limit %q", ErrBadRequest, raw))
			return
		}
		opts.Limit = limit
	}
	switch opts.Status {
	case "", history.StatusOK, history.StatusFailed:
	default:
		h.fail(w, r, fmt.Errorf("%w: invalid status %q", ErrBadRequest, opts.Status))
		return
	}

	runs, err := h.service.Runs(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	h.write(w, r, http.StatusOK, runs)
}

// getRun handles GET /v1/runs/{id}.
func (h *httpHandler) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: invalid run id", ErrBadRequest))
		return
	}

	run, err := h.service.Run(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, run)
}

func (h *httpHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	resp := errorResponse{Error: err.Error()}

	var assembleErr *transform.AssembleError
	if errors.As(err, &assembleErr) {
		resp.Code = assembleErr.Code.String()
		resp.Path = assembleErr.Path
	}

	if code >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("request failed")
	}
	h.write(w, r, code, resp)
}

func (h *httpHandler) write(w http.ResponseWriter, r *http.Request, code int, v any) {
	body, err := document.Encode(v, r.URL.Query().Has("pretty"))
	if err != nil {
		h.logger.Error().Err(err).Msg("response encode failed")
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
	w.Write([]byte("\n"))
}

// requestFormat maps a Content-Type onto a document format. An empty
// Content-Type is JSON.
func requestFormat(contentType string) (document.Format, error) {
	if contentType == "" {
		return document.FormatJSON, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	switch mediaType {
	case "application/json":
		return document.FormatJSON, nil
	case "application/toml":
		return document.FormatTOML, nil
	case "application/yaml", "application/x-yaml", "text/yaml":
		return document.FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: content type %s", types.ErrUnsupportedFormat, mediaType)
	}
}
