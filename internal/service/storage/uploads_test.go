package storage

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"photo.JPG", "jpg"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
		{"trailing.", ""},
		{".png", "png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Extension(tt.name), tt.name)
	}
}

func TestIsAllowed(t *testing.T) {
	for _, name := range []string{"a.png", "a.JPG", "a.jpeg", "a.gif", "a.Bmp", "x.y.png"} {
		assert.True(t, IsAllowed(name), name)
	}
	for _, name := range []string{"a.txt", "a.webp", "png", "a.png.exe", ""} {
		assert.False(t, IsAllowed(name), name)
	}
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My cat.jpg", "My_cat.jpg"},
		{"../../etc/passwd.png", "etc_passwd.png"},
		{`C:\Users\me\pic.gif`, "C_Users_me_pic.gif"},
		{"café.png", "cafe.png"},
		{"  spaced   out .bmp", "spaced_out_.bmp"},
		{"你好.jpg", "jpg"},
		{"...", ""},
		{"a$b%c.png", "abc.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SecureFilename(tt.in), tt.in)
	}
}

func TestStoredName(t *testing.T) {
	token := strings.Repeat("a", 32)
	assert.Equal(t, token+"_My_cat.jpg", StoredName(token, "My cat.jpg"))
	assert.Equal(t, token+"_upload.jpg", StoredName(token, "你好.jpg"))
	assert.Equal(t, token+"_upload.png", StoredName(token, "....png"))
}

func TestOriginalName(t *testing.T) {
	token := NewToken()
	assert.Equal(t, "My_cat.jpg", OriginalName(token+"_My_cat.jpg"))
	assert.Equal(t, "plain_name.jpg", OriginalName("plain_name.jpg"))
}

func TestNewToken(t *testing.T) {
	a, b := NewToken(), NewToken()
	assert.Regexp(t, `^[0-9a-f]{32}$`, a)
	assert.NotEqual(t, a, b)
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "image/jpeg", MediaType("a.jpg"))
	assert.Equal(t, "image/jpeg", MediaType("a.JPEG"))
	assert.Equal(t, "image/png", MediaType("a.png"))
	assert.Equal(t, "image/gif", MediaType("a.gif"))
	assert.Equal(t, "image/bmp", MediaType("a.bmp"))
	assert.Empty(t, MediaType("a.txt"))
}

func TestUploadStore_SaveDistinctNames(t *testing.T) {
	store, err := NewUploadStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	first, err := store.Save(strings.NewReader("one"), "cat.png")
	require.NoError(t, err)
	second, err := store.Save(strings.NewReader("two"), "cat.png")
	require.NoError(t, err)

	assert.NotEqual(t, first.StoredFilename, second.StoredFilename)
	assert.True(t, strings.HasSuffix(first.StoredFilename, "_cat.png"))
	assert.Equal(t, filepath.Join(store.Dir(), first.StoredFilename), first.Path)
	assert.Equal(t, int64(3), first.Size)

	data, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestUploadStore_SaveEmptyName(t *testing.T) {
	store, err := NewUploadStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrEmptyFilename)
}

func TestUploadStore_LoadAndDataURLRoundTrip(t *testing.T) {
	store, err := NewUploadStore(t.TempDir())
	require.NoError(t, err)

	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = byte(i * 7)
	}

	asset, err := store.Save(bytes.NewReader(payload), "noise.jpg")
	require.NoError(t, err)
	require.NoError(t, store.Load(asset))

	assert.Equal(t, payload, asset.Content)
	assert.Equal(t, int64(len(payload)), asset.Size)
	assert.Equal(t, "image/jpeg", asset.MediaType)

	url := DataURL(asset)
	prefix := "data:image/jpeg;base64,"
	require.True(t, strings.HasPrefix(url, prefix))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestUploadStore_LoadMissing(t *testing.T) {
	store, err := NewUploadStore(t.TempDir())
	require.NoError(t, err)

	asset, err := store.Save(strings.NewReader("x"), "a.png")
	require.NoError(t, err)
	require.NoError(t, os.Remove(asset.Path))

	assert.Error(t, store.Load(asset))
}
