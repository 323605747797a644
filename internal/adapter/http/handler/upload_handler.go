package handler

import (
	"context"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/upload"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FileOpener reads stored uploads.
type FileOpener interface {
	Open(ctx context.Context, key string) (*upload.Object, error)
}

type UploadHandler struct {
	files  FileOpener
	logger *logger.Logger
}

func NewUploadHandler(files FileOpener, log *logger.Logger) *UploadHandler {
	return &UploadHandler{files: files, logger: log.Named("UploadHandler")}
}

// Serve streams /uploads/<key> from object storage.
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" || strings.Contains(key, "..") || path.Clean("/"+key) != "/"+key {
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "File not found", nil)
		return
	}

	obj, err := h.files.Open(r.Context(), key)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	defer obj.Body.Close()

	hdr := w.Header()
	if obj.ContentType != "" {
		hdr.Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		hdr.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if !obj.ModTime.IsZero() {
		hdr.Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	hdr.Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn("Upload stream interrupted", zap.String("key", key), zap.Error(err))
	}
}
