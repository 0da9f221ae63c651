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

const entryPoint = "HandleGateway"

var (
	gatewayInstance *services.GatewayFunction
	router          http.Handler
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function with the framework.
	functions.HTTP(entryPoint, handleGateway)
}

// main serves the function locally. On Cloud Functions the framework calls
// handleGateway directly.
func main() {
	_ = godotenv.Load()
	if os.Getenv("FUNCTION_TARGET") == "" {
		os.Setenv("FUNCTION_TARGET", entryPoint)
	}
	if err := initialize(); err != nil {
		slog.Error("Critical: Gateway initialization failed", "error", err)
		os.Exit(1)
	}

	port := gcp.GetEnv("PORT", "5001")
	slog.Info("Starting gateway.", "port", port)
	if err := funcframework.StartHostPort("", port); err != nil {
		slog.Error("Gateway stopped", "error", err)
		os.Exit(1)
	}
}

// initialize builds the gateway exactly once.
func initialize() error {
	once.Do(func() {
		gatewayInstance, initErr = services.NewGateway(context.Background())
		if initErr == nil {
			router = gatewayInstance.Handler()
		}
	})
	return initErr
}

// handleGateway is the HTTP entry point for the gateway service.
func handleGateway(w http.ResponseWriter, r *http.Request) {
	if err := initialize(); err != nil {
		slog.Error("Critical: Gateway initialization failed", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	router.ServeHTTP(w, r)
}
