package draftstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore keeps drafts as objects drafts/<user>/<draft>/<kind> in one
// bucket. The original file name is kept in object metadata.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewGCSStore opens a client with application default credentials.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: client.Bucket(bucket)}, nil
}

func (s *GCSStore) Put(ctx context.Context, key Key, f File) error {
	if err := key.Validate(); err != nil {
		return err
	}
	w := s.bucket.Object(key.Path()).NewWriter(ctx)
	w.ContentType = contentType(key.Kind)
	w.Metadata = map[string]string{"filename": f.Name}
	if _, err := w.Write(f.Data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", key.Path(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", key.Path(), err)
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, key Key) (File, error) {
	if err := key.Validate(); err != nil {
		return File{}, err
	}
	obj := s.bucket.Object(key.Path())
	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return File{}, ErrNotFound
	}
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", key.Path(), err)
	}
	r, err := obj.Generation(attrs.Generation).NewReader(ctx)
	if err != nil {
		return File{}, fmt.Errorf("open %s: %w", key.Path(), err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", key.Path(), err)
	}
	return File{Name: attrs.Metadata["filename"], Data: data}, nil
}

func (s *GCSStore) Delete(ctx context.Context, userID, draftID string) error {
	probe := Key{UserID: userID, DraftID: draftID, Kind: KindTemplate}
	if err := probe.Validate(); err != nil {
		return err
	}
	prefix := fmt.Sprintf("drafts/%s/%s/", userID, draftID)
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list %s: %w", prefix, err)
		}
		err = s.bucket.Object(attrs.Name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("delete %s: %w", attrs.Name, err)
		}
	}
}

// Close closes the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func contentType(k Kind) string {
	switch k {
	case KindTemplate:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case KindArchive:
		return "application/zip"
	}
	return "application/octet-stream"
}
