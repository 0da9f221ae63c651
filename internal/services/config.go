package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/gcp"
)

// DefaultMaxUploadBytes caps a single upload at 200 MiB.
const DefaultMaxUploadBytes int64 = 200 << 20

// ConverterConfig holds the settings shared by both converter services.
type ConverterConfig struct {
	// TempDir is where per-request scratch directories are created. Empty
	// means the OS default.
	TempDir        string
	MaxUploadBytes int64
	AllowedOrigins []string
}

func loadConverterConfig() (ConverterConfig, error) {
	maxBytes, err := gcp.GetEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return ConverterConfig{}, err
	}
	return ConverterConfig{
		TempDir:        gcp.GetEnv("TEMP_DIR", ""),
		MaxUploadBytes: maxBytes,
		AllowedOrigins: gcp.GetEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}, nil
}

// withTempPDF writes data into a fresh scratch directory, calls fn with the
// file's path and removes the directory when fn returns, whatever happened.
func withTempPDF(dir, pattern string, data []byte, fn func(path string) error) error {
	tempDir, err := os.MkdirTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	path := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write upload to temp file: %w", err)
	}
	return fn(path)
}
