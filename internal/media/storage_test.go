package media

import (
	"testing"

	"sierra/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestKindFromContentType(t *testing.T) {
	assert.Equal(t, models.MediaImage, KindFromContentType("image/jpeg"))
	assert.Equal(t, models.MediaImage, KindFromContentType("image/png"))
	assert.Equal(t, models.MediaVideo, KindFromContentType("video/mp4"))
	assert.Equal(t, models.MediaAudio, KindFromContentType("audio/ogg"))
	assert.Equal(t, models.MediaKind(""), KindFromContentType("application/pdf"))
	assert.Equal(t, models.MediaKind(""), KindFromContentType(""))
}
