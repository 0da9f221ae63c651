package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
)

// RouterConfig describes the HTTP surface of one service.
type RouterConfig struct {
	// Service is the human-readable name used in the liveness response.
	Service string
	// ConvertPaths are the POST routes served by Convert. The first one is
	// advertised in the liveness message.
	ConvertPaths   []string
	Convert        http.HandlerFunc
	AllowedOrigins []string
}

// NewRouter builds the chi router shared by the gateway and both converters:
// request IDs, panic recovery, access logging, CORS, GET / and the convert
// routes.
func NewRouter(cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	hint := "/convert"
	if len(cfg.ConvertPaths) > 0 {
		hint = cfg.ConvertPaths[0]
	}
	health := models.HealthResponse{
		Status:  fmt.Sprintf("%s is running", cfg.Service),
		Message: fmt.Sprintf("Use the %s endpoint to upload a PDF file", hint),
	}
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, health)
	})

	for _, path := range cfg.ConvertPaths {
		r.Post(path, cfg.Convert)
	}
	return r
}

// AccessLog writes one structured log line per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("HTTP request served.",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}
