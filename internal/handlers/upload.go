package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"

	"github.com/crucial707/meddevice/internal/middleware"
)

// MaxImageBytes is the largest accepted image.
const MaxImageBytes = 10 << 20

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// uploadURL matches the URLs UploadImage hands out.
var uploadURL = regexp.MustCompile(`^/uploads/[0-9a-f-]+\.\w+$`)

// UploadHandler stores inspection photos.
type UploadHandler struct {
	Dir    string
	Logger *slog.Logger
}

// UploadImage accepts a multipart "image" field and returns {"url": "/uploads/<name>"}.
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(middleware.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			JSONError(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}
		JSONError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		JSONError(w, "no image uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()
	if header.Size > MaxImageBytes {
		JSONError(w, "image too large", http.StatusRequestEntityTooLarge)
		return
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		JSONError(w, "no image uploaded", http.StatusBadRequest)
		return
	}
	ext, ok := imageExtensions[http.DetectContentType(head[:n])]
	if !ok {
		JSONError(w, "only png, jpeg, gif and webp images are accepted", http.StatusUnsupportedMediaType)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		h.logError("create uploads dir", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	name := uuid.NewString() + ext
	out, err := os.Create(filepath.Join(h.Dir, name))
	if err != nil {
		h.logError("create upload", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(out.Name())
		h.logError("write upload", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if err := out.Close(); err != nil {
		h.logError("close upload", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"url":      "/uploads/" + name,
		"filename": name,
	})
}

func (h *UploadHandler) logError(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, "error", err)
	}
}
