// Package media stores uploaded message attachments. The core keeps only the
// returned URL and kind; file bytes never touch the message store.
package media

import (
	"context"
	"strings"

	"sierra/internal/models"
)

// Storage uploads a file and returns a stable retrievable URL.
type Storage interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// KindFromContentType classifies an upload from its MIME type. Empty when
// the type is not a supported media kind.
func KindFromContentType(contentType string) models.MediaKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaImage
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaVideo
	case strings.HasPrefix(contentType, "audio/"):
		return models.MediaAudio
	default:
		return ""
	}
}
