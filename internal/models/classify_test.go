package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntry_IsImage(t *testing.T) {
	assert.True(t, Entry{Name: "photo.JPG", Kind: KindFile}.IsImage())
	assert.False(t, Entry{Name: "photo.ico", Kind: KindFile}.IsImage())
	assert.True(t, Entry{Name: "blob", Kind: KindFile, MimeType: "image/png"}.IsImage())
	assert.False(t, Entry{Name: "photo.png", Kind: KindFile, MimeType: "application/octet-stream"}.IsImage())
	assert.False(t, Entry{Name: "pics.png", Kind: KindFolder}.IsImage())
}

func TestEntry_Category(t *testing.T) {
	cases := map[string]Category{
		"a.png":    CategoryImage,
		"a.mkv":    CategoryVideo,
		"a.flac":   CategoryAudio,
		"a.docx":   CategoryDocument,
		"a.tar":    CategoryArchive,
		"main.go":  CategoryCode,
		"a.bin":    CategoryOther,
		"noext":    CategoryOther,
		"Q3.PDF":   CategoryDocument,
		"clip.m4v": CategoryVideo,
	}
	for name, want := range cases {
		assert.Equal(t, want, Entry{Name: name, Kind: KindFile}.Category(), name)
	}

	assert.Equal(t, CategoryFolder, Entry{Name: "x.png", Kind: KindFolder}.Category())
	assert.Equal(t, CategoryAudio, Entry{Name: "track", Kind: KindFile, MimeType: "audio/mpeg"}.Category())
}

func TestSameFolder(t *testing.T) {
	assert.True(t, SameFolder(nil, nil))
	assert.False(t, SameFolder(nil, ID(1)))
	assert.False(t, SameFolder(ID(1), nil))
	assert.True(t, SameFolder(ID(4), ID(4)))
	assert.False(t, SameFolder(ID(4), ID(5)))
}

func TestUsage(t *testing.T) {
	u := Usage{UsedBytes: 5 * 1024 * 1024 * 1024, LimitGB: 20}
	assert.InDelta(t, 5.0, u.UsedGB(), 1e-9)
	assert.InDelta(t, 25.0, u.Percent(), 1e-9)
	assert.Equal(t, 0.0, Usage{UsedBytes: 10}.Percent())
}
