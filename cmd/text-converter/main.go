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
	"github.com/Lllllllleong/pdfmarkdownflow/internal/services"
)

const entryPoint = "HandleTextConversion"

var (
	converterInstance *services.TextConverterFunction
	router            http.Handler
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function with the framework.
	functions.HTTP(entryPoint, handleTextConversion)
}

// main serves the function locally. On Cloud Functions the framework calls
// handleTextConversion directly.
func main() {
	_ = godotenv.Load()
	if os.Getenv("FUNCTION_TARGET") == "" {
		os.Setenv("FUNCTION_TARGET", entryPoint)
	}
	if err := initialize(); err != nil {
		slog.Error("Critical: TextConverter initialization failed", "error", err)
		os.Exit(1)
	}

	port := gcp.GetEnv("PORT", "5002")
	slog.Info("Starting text converter.", "port", port)
	if err := funcframework.StartHostPort("", port); err != nil {
		slog.Error("Text converter stopped", "error", err)
		os.Exit(1)
	}
}

// initialize builds the text converter exactly once.
func initialize() error {
	once.Do(func() {
		converterInstance, initErr = services.NewTextConverter(context.Background())
		if initErr == nil {
			router = converterInstance.Handler()
		}
	})
	return initErr
}

// handleTextConversion is the HTTP entry point for the text extraction service.
func handleTextConversion(w http.ResponseWriter, r *http.Request) {
	if err := initialize(); err != nil {
		slog.Error("Critical: TextConverter initialization failed", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	router.ServeHTTP(w, r)
}
