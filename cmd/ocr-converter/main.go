package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/joho/godotenv"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/gcp"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/ocr/tesseract"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/services"
)

const entryPoint = "HandleOCRConversion"

var (
	converterInstance *services.OCRConverterFunction
	router            http.Handler
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function with the framework.
	functions.HTTP(entryPoint, handleOCRConversion)
}

// main serves the function locally. On Cloud Functions the framework calls
// handleOCRConversion directly.
func main() {
	_ = godotenv.Load()
	if os.Getenv("FUNCTION_TARGET") == "" {
		os.Setenv("FUNCTION_TARGET", entryPoint)
	}
	if err := initialize(); err != nil {
		slog.Error("Critical: OCRConverter initialization failed", "error", err)
		os.Exit(1)
	}

	port := gcp.GetEnv("PORT", "5003")
	slog.Info("Starting OCR converter.", "port", port)
	if err := funcframework.StartHostPort("", port); err != nil {
		slog.Error("OCR converter stopped", "error", err)
		os.Exit(1)
	}
}

// initialize builds the OCR converter and loads its engines exactly once. The
// local server loads them before accepting requests.
func initialize() error {
	once.Do(func() {
		converterInstance, initErr = services.NewOCRConverter(context.Background(), tesseract.Load)
		if initErr == nil {
			router = converterInstance.Handler()
		}
	})
	return initErr
}

// handleOCRConversion is the HTTP entry point for the OCR service.
func handleOCRConversion(w http.ResponseWriter, r *http.Request) {
	if err := initialize(); err != nil {
		slog.Error("Critical: OCRConverter initialization failed", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	router.ServeHTTP(w, r)
}
