package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotExist = errors.New("storage: object does not exist")

type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is the object storage behind original and decorated images.
type Store interface {
	// SignedUploadURL returns a URL the client can PUT the object bytes to until expiry.
	SignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	URL(ctx context.Context, key string) (string, error)
	// Delete is a no-op for keys that do not exist.
	Delete(ctx context.Context, key string) error
}

// OriginalKey is the storage key issued for an image's uploaded original.
func OriginalKey(userID uint, imageID uuid.UUID) string {
	return fmt.Sprintf("originals/%d/%s", userID, imageID)
}

// DecoratedKey names a fresh object for a generated image. Every generation gets a new key so
// the previous result stays readable until the record points at the new one.
func DecoratedKey(userID uint, imageID uuid.UUID, ext string) string {
	return fmt.Sprintf("decorated/%d/%s/%s%s", userID, imageID, uuid.NewString(), ext)
}

// OwnedBy reports whether key was issued under the user's namespace.
func OwnedBy(key string, userID uint) bool {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 || (parts[0] != "originals" && parts[0] != "decorated") {
		return false
	}
	return parts[1] == strconv.FormatUint(uint64(userID), 10)
}
