package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/file-processor/internal/core/ports"
	"github.com/kirillkom/file-processor/internal/observability/metrics"
)

const (
	serviceName         = "api"
	multipartOverhead   = 1 << 20
	defaultUploadLimit  = 10 << 20
	defaultInFlightWait = 2 * time.Second
)

type Options struct {
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	InFlightWait   time.Duration
	CORSOrigins    []string
}

type Router struct {
	uploader ports.FileUploader
	files    ports.FileService
	status   ports.QueueStatusReader
	auth     ports.Authenticator
	metrics  *metrics.HTTPServerMetrics
	options  Options
}

// NewRouter builds the API. status may be nil when processing runs in a
// separate worker; metrics may be nil in tests.
func NewRouter(
	uploader ports.FileUploader,
	files ports.FileService,
	status ports.QueueStatusReader,
	auth ports.Authenticator,
	httpMetrics *metrics.HTTPServerMetrics,
	options Options,
) *Router {
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = defaultUploadLimit
	}
	if options.InFlightWait <= 0 {
		options.InFlightWait = defaultInFlightWait
	}
	return &Router{
		uploader: uploader,
		files:    files,
		status:   status,
		auth:     auth,
		metrics:  httpMetrics,
		options:  options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/auth/token", rt.issueToken)
	mux.HandleFunc("POST /v1/files", rt.authenticated(rt.uploadFile))
	mux.HandleFunc("GET /v1/files", rt.authenticated(rt.listFiles))
	mux.HandleFunc("GET /v1/files/{id}", rt.authenticated(rt.getFile))
	mux.HandleFunc("GET /v1/files/{id}/thumbnail", rt.authenticated(rt.getThumbnail))
	mux.HandleFunc("DELETE /v1/files/{id}", rt.authenticated(rt.deleteFile))
	mux.HandleFunc("GET /v1/processing/status", rt.authenticated(rt.processingStatus))
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.options.MaxInFlight, rt.options.InFlightWait)
	handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst, rt.onRateLimited)
	handler = corsMiddleware(handler, rt.options.CORSOrigins)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return recoveryMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) onRateLimited() {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError hides internal failures from clients; the request id ties the
// response to the logged cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
