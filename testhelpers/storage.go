package testhelpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/krishkalaria12/decor-serve/storage"
)

type object struct {
	data        []byte
	contentType string
}

// Store is an in-memory object store.
type Store struct {
	mu      sync.Mutex
	objects map[string]object
	Deleted []string
	PutErr  error
}

func NewStore() *Store {
	return &Store{objects: make(map[string]object)}
}

func (s *Store) SignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://uploads.test/%s?expires=%d", key, int(expiry.Seconds())), nil
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: data, contentType: contentType}
	return nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *Store) Stat(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return &storage.ObjectInfo{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (s *Store) URL(ctx context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.Deleted = append(s.Deleted, key)
	return nil
}

func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
