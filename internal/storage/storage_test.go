package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kassslll/learnhub/internal/models"
)

func TestCheckKind(t *testing.T) {
	png := &File{Name: "cover.PNG"}
	mp4 := &File{Name: "intro.bin", ContentType: "video/mp4"}
	octet := &File{Name: "clip.mov", ContentType: "application/octet-stream"}

	assert.NoError(t, CheckKind(png, models.MediaImage, "thumbnail"))
	assert.EqualError(t, CheckKind(png, models.MediaVideo, "courseIntro"), "courseIntro must be a video")
	assert.NoError(t, CheckKind(mp4, models.MediaVideo, "courseIntro"))
	assert.NoError(t, CheckKind(octet, models.MediaVideo, "video"))
	assert.NoError(t, CheckKind(&File{Name: "contract.pdf"}, models.MediaRaw, "contract"))
	assert.False(t, IsImage(nil))
}

func TestObjectKey(t *testing.T) {
	key := objectKey(models.MediaVideo, "Lesson One.MP4")
	assert.True(t, strings.HasPrefix(key, "video/"))
	assert.True(t, strings.HasSuffix(key, ".mp4"))
	assert.NotEqual(t, key, objectKey(models.MediaVideo, "Lesson One.MP4"))
	assert.True(t, strings.HasPrefix(objectKey("", "x"), "raw/"))
}
