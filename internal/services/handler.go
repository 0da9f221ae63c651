package services

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/server"
)

type convertFunc func(ctx context.Context, up *models.Upload) (string, error)

// convertHandler adapts a converter's Convert method to POST /convert.
func convertHandler(maxBytes int64, convert convertFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up, err := server.ReadUpload(w, r, maxBytes)
		if err != nil {
			slog.Warn("Rejected upload", "error", err)
			server.WriteUploadError(w, err)
			return
		}

		content, err := convert(r.Context(), up)
		if err != nil {
			// The specific error is already logged inside Convert.
			server.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		server.WriteJSON(w, http.StatusOK, models.ConvertResponse{Success: true, Content: content})
	}
}
