package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
)

// maxSignedURLExpiry is the longest lifetime GCS accepts for V4 signed URLs.
const maxSignedURLExpiry = 7 * 24 * time.Hour

type GCSStore struct {
	cl         *gcs.Client
	projectID  string
	bucketName string
	uploadPath string
	signedURLs bool
}

func NewGCSStore(ctx context.Context, projectID, bucketName, uploadPath string, signedURLs bool) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs.NewClient: %w", err)
	}

	return &GCSStore{
		cl:         client,
		projectID:  projectID,
		bucketName: bucketName,
		uploadPath: uploadPath,
		signedURLs: signedURLs,
	}, nil
}

func (s *GCSStore) objectPath(key string) string {
	return s.uploadPath + key
}

func (s *GCSStore) SignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	opts := &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "PUT",
		Expires: time.Now().Add(expiry),
	}

	url, err := s.cl.Bucket(s.bucketName).SignedURL(s.objectPath(key), opts)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed upload URL: %w", err)
	}
	return url, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*50)
	defer cancel()

	wc := s.cl.Bucket(s.bucketName).Object(s.objectPath(key)).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}
	return nil
}

func (s *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.cl.Bucket(s.bucketName).Object(s.objectPath(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return rc, nil
}

func (s *GCSStore) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	attrs, err := s.cl.Bucket(s.bucketName).Object(s.objectPath(key)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return &ObjectInfo{Key: key, Size: attrs.Size, ContentType: attrs.ContentType}, nil
}

// URL returns the public object URL, or a V4 signed GET URL when the bucket is private.
func (s *GCSStore) URL(ctx context.Context, key string) (string, error) {
	objectPath := s.objectPath(key)
	if !s.signedURLs {
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, objectPath), nil
	}

	opts := &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(maxSignedURLExpiry),
	}
	signedURL, err := s.cl.Bucket(s.bucketName).SignedURL(objectPath, opts)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return signedURL, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.cl.Bucket(s.bucketName).Object(s.objectPath(key)).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return err
	}
	return nil
}

// MakeBucketPublic grants allUsers read access. Run once when serving unsigned URLs.
func (s *GCSStore) MakeBucketPublic(ctx context.Context) error {
	bucket := s.cl.Bucket(s.bucketName)

	policy, err := bucket.IAM().Policy(ctx)
	if err != nil {
		return err
	}

	policy.Add("allUsers", "roles/storage.objectViewer")

	return bucket.IAM().SetPolicy(ctx, policy)
}

func (s *GCSStore) Close() error {
	return s.cl.Close()
}
