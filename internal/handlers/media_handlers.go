package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"sierra/internal/media"
	"sierra/internal/middleware"

	"github.com/google/uuid"
)

// maxUploadBytes caps a single attachment at 25 MiB.
const maxUploadBytes = 25 << 20

// HandleUploadMedia accepts a multipart upload, stores it and returns the
// URL and kind to embed in a subsequent message send.
func (s *Server) HandleUploadMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if s.Media == nil {
			http.Error(w, "Media uploads are not configured", http.StatusServiceUnavailable)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "Upload too large or malformed", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		kind := media.KindFromContentType(contentType)
		if kind == "" {
			http.Error(w, "Unsupported media type", http.StatusUnsupportedMediaType)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "Failed to read upload", http.StatusBadRequest)
			return
		}

		key := fmt.Sprintf("%s/%s%s", userID, uuid.New(), filepath.Ext(header.Filename))
		url, err := s.Media.Upload(r.Context(), key, contentType, data)
		if err != nil {
			s.Log.Errorw("media upload failed", "user", userID, "error", err)
			http.Error(w, "Failed to store upload", http.StatusBadGateway)
			return
		}

		s.writeJSON(w, http.StatusCreated, map[string]string{
			"url":  url,
			"kind": string(kind),
		})
	}
}
