package storage

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofrs/uuid"
	"golang.org/x/text/unicode/norm"

	"detectserver/internal/model"
)

// AllowedExtensions lists the upload extensions accepted by the gateway.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp"}

var mediaTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// ErrEmptyFilename is returned when an upload carries no filename.
var ErrEmptyFilename = errors.New("empty filename")

// Extension returns the lower-cased text after the last dot, or "" when the
// name has no dot.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// IsAllowed reports whether the filename has one of AllowedExtensions.
func IsAllowed(filename string) bool {
	ext := Extension(filename)
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// SecureFilename reduces a client-supplied filename to a flat ASCII name
// safe to use inside the upload directory. It may return "".
func SecureFilename(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	s := strings.NewReplacer("/", " ", "\\", " ").Replace(b.String())
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeChars.ReplaceAllString(s, "")
	return strings.Trim(s, "._")
}

// MediaType maps a filename extension to its image media type. It returns
// "" for unknown extensions.
func MediaType(filename string) string {
	return mediaTypes[Extension(filename)]
}

// NewToken returns a random 32 character hex token.
func NewToken() string {
	id := uuid.Must(uuid.NewV4())
	return hex.EncodeToString(id.Bytes())
}

// UploadStore persists uploaded files under generated, collision-resistant names.
type UploadStore struct {
	dir string
}

// NewUploadStore creates the upload directory if needed.
func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadStore{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *UploadStore) Dir() string {
	return s.dir
}

// StoredName builds "<token>_<sanitized name>". When sanitizing strips the
// allowed extension the name falls back to "upload.<ext>".
func StoredName(token, original string) string {
	safe := SecureFilename(original)
	if ext := Extension(original); ext != "" && Extension(safe) != ext {
		safe = "upload." + ext
	}
	return token + "_" + safe
}

// OriginalName strips the token prefix added by StoredName. Names without a
// token prefix are returned unchanged.
func OriginalName(stored string) string {
	token, rest, ok := strings.Cut(stored, "_")
	if !ok || len(token) != 32 {
		return stored
	}
	if _, err := hex.DecodeString(token); err != nil {
		return stored
	}
	return rest
}

// Save writes r to a new file named after originalName. The file is created
// exclusively so an existing upload is never overwritten.
func (s *UploadStore) Save(r io.Reader, originalName string) (*model.UploadedAsset, error) {
	if originalName == "" {
		return nil, ErrEmptyFilename
	}

	name := StoredName(NewToken(), originalName)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write %s: %w", name, err)
	}

	return &model.UploadedAsset{
		OriginalFilename: originalName,
		StoredFilename:   name,
		Path:             path,
		Size:             n,
	}, nil
}

// Load reads a saved asset back from disk and fills Content, Size and MediaType.
func (s *UploadStore) Load(asset *model.UploadedAsset) error {
	content, err := os.ReadFile(asset.Path)
	if err != nil {
		return fmt.Errorf("image processing error: %w", err)
	}

	asset.Content = content
	asset.Size = int64(len(content))
	asset.MediaType = MediaType(asset.StoredFilename)
	if asset.MediaType == "" {
		asset.MediaType = strings.Split(mimetype.Detect(content).String(), ";")[0]
	}
	return nil
}

// DataURL encodes the asset content as a base64 data URL.
func DataURL(asset *model.UploadedAsset) string {
	return fmt.Sprintf("data:%s;base64,%s", asset.MediaType, base64.StdEncoding.EncodeToString(asset.Content))
}
