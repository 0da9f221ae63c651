package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
)

// FileField is the multipart field carrying the PDF.
const FileField = "file"

var (
	ErrNoFile         = errors.New("no file uploaded")
	ErrUploadTooLarge = errors.New("upload exceeds the size limit")
)

// ReadUpload streams the multipart body and returns the first part named
// "file". Nothing is written to disk. The body is capped at maxBytes.
func ReadUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*models.Upload, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, ErrNoFile
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, ErrNoFile
		}
		if err != nil {
			return nil, uploadError(err)
		}
		if part.FormName() != FileField || part.FileName() == "" {
			part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, uploadError(err)
		}
		return &models.Upload{Filename: filepath.Base(part.FileName()), Data: data}, nil
	}
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w (%d bytes)", ErrUploadTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("failed to read multipart body: %w", err)
}

// WriteUploadError maps a ReadUpload error to its HTTP response.
func WriteUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoFile):
		WriteError(w, http.StatusBadRequest, ErrNoFile.Error())
	case errors.Is(err, ErrUploadTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		WriteError(w, http.StatusBadRequest, err.Error())
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// EncodeUpload writes up as a multipart body with a single "file" part of
// type application/pdf. It returns the body and its Content-Type.
func EncodeUpload(up *models.Upload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, quoteEscaper.Replace(up.Filename)))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
