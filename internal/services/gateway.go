package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/gcp"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/pdftext"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/server"
)

// GatewayConfig holds configuration for the gateway service.
type GatewayConfig struct {
	TextConverterURL string
	OCRConverterURL  string
	UpstreamTimeout  time.Duration
	MaxUploadBytes   int64
	AllowedOrigins   []string
}

// Classifier reports whether a PDF has a usable text layer.
type Classifier func(data []byte) bool

// GatewayFunction classifies uploads and forwards them to a converter.
type GatewayFunction struct {
	config   GatewayConfig
	client   *http.Client
	classify Classifier
}

// UpstreamError is a failed call to a converter: no connection, a timeout
// or a non-2xx status.
type UpstreamError struct {
	URL    string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// LoadGatewayConfig reads the gateway settings from the environment.
func LoadGatewayConfig() (GatewayConfig, error) {
	timeout, err := gcp.GetEnvDuration("UPSTREAM_TIMEOUT", 600*time.Second)
	if err != nil {
		return GatewayConfig{}, err
	}
	maxBytes, err := gcp.GetEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return GatewayConfig{}, err
	}
	config := GatewayConfig{
		TextConverterURL: gcp.GetEnv("TEXT_CONVERTER_URL", "http://localhost:5002/convert"),
		OCRConverterURL:  gcp.GetEnv("OCR_CONVERTER_URL", "http://localhost:5003/convert"),
		UpstreamTimeout:  timeout,
		MaxUploadBytes:   maxBytes,
		AllowedOrigins:   gcp.GetEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
	if config.TextConverterURL == "" || config.OCRConverterURL == "" {
		return GatewayConfig{}, fmt.Errorf("TEXT_CONVERTER_URL and OCR_CONVERTER_URL must not be empty")
	}
	return config, nil
}

// NewGateway creates a new GatewayFunction from the environment.
func NewGateway(ctx context.Context) (*GatewayFunction, error) {
	config, err := LoadGatewayConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load gateway config: %w", err)
	}
	f := NewGatewayWith(config, &http.Client{}, pdftext.HasTextLayer)
	slog.Info("Gateway logic initialized.",
		"textConverter", config.TextConverterURL,
		"ocrConverter", config.OCRConverterURL,
		"upstreamTimeout", config.UpstreamTimeout.String(),
	)
	return f, nil
}

// NewGatewayWith builds a gateway from explicit dependencies.
func NewGatewayWith(config GatewayConfig, client *http.Client, classify Classifier) *GatewayFunction {
	return &GatewayFunction{config: config, client: client, classify: classify}
}

// Handler returns the gateway's HTTP surface.
func (f *GatewayFunction) Handler() http.Handler {
	return server.NewRouter(server.RouterConfig{
		Service:        "API gateway",
		ConvertPaths:   []string{"/api/convert", "/convert"},
		Convert:        f.ServeConvert,
		AllowedOrigins: f.config.AllowedOrigins,
	})
}

// ServeConvert handles POST /convert and /api/convert.
func (f *GatewayFunction) ServeConvert(w http.ResponseWriter, r *http.Request) {
	up, err := server.ReadUpload(w, r, f.config.MaxUploadBytes)
	if err != nil {
		slog.Warn("Rejected upload", "error", err)
		server.WriteUploadError(w, err)
		return
	}

	res, err := f.Process(r.Context(), up)
	var upstreamErr *UpstreamError
	switch {
	case errors.As(err, &upstreamErr):
		server.WriteError(w, http.StatusServiceUnavailable, "service call failed: "+upstreamErr.Error())
	case err != nil:
		server.WriteError(w, http.StatusInternalServerError, "processing failed: "+err.Error())
	default:
		server.WriteJSON(w, http.StatusOK, res)
	}
}

// Process classifies the upload once, forwards it to the matching converter
// and annotates the converter's response.
func (f *GatewayFunction) Process(ctx context.Context, up *models.Upload) (map[string]any, error) {
	logCtx := slog.With("conversionId", uuid.NewString(), "filename", up.Filename)
	logCtx.Info("Received upload.", "size", humanize.Bytes(uint64(len(up.Data))))

	method, target := models.MethodOCR, f.config.OCRConverterURL
	if f.classify(up.Data) {
		method, target = models.MethodTextExtraction, f.config.TextConverterURL
	}
	logCtx = logCtx.With("processingMethod", string(method))
	logCtx.Info("Document classified.", "target", target)

	body, err := f.forward(ctx, target, up)
	if err != nil {
		logCtx.Error("Converter call failed", "error", err)
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		logCtx.Error("Failed to decode converter response", "error", err)
		return nil, fmt.Errorf("failed to decode converter response: %w", err)
	}
	if _, ok := result[models.FieldContent]; ok {
		result[models.FieldProcessingMethod] = string(method)
		result[models.FieldFilename] = up.Filename
	}
	logCtx.Info("Conversion complete.")
	return result, nil
}

// forward POSTs the upload as multipart field "file" and returns the body of
// a 2xx response.
func (f *GatewayFunction) forward(ctx context.Context, url string, up *models.Upload) ([]byte, error) {
	payload, contentType, err := server.EncodeUpload(up)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.UpstreamTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build converter request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if id := middleware.GetReqID(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{URL: url, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response from %s: %w", url, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{URL: url, Status: resp.StatusCode, Err: statusError(url, resp.Status, body)}
	}
	return body, nil
}

func statusError(url, status string, body []byte) error {
	var e models.ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("%s for url %s: %s", status, url, e.Error)
	}
	return fmt.Errorf("%s for url %s", status, url)
}
