package draftstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPathAndContentType(t *testing.T) {
	tests := []struct {
		kind Kind
		path string
		ct   string
	}{
		{KindTemplate, "drafts/u1/d-1/template", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{KindMaturity, "drafts/u1/d-1/maturity", "application/octet-stream"},
		{KindCusip, "drafts/u1/d-1/cusip", "application/octet-stream"},
		{KindArchive, "drafts/u1/d-1/archive", "application/zip"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			key := Key{UserID: "u1", DraftID: "d-1", Kind: tt.kind}
			assert.Equal(t, tt.path, key.Path())
			assert.Equal(t, tt.ct, contentType(tt.kind))
		})
	}
}

// Invalid keys are rejected before the bucket is touched, so a store
// without a client is enough.
func TestGCSStore_RejectsInvalidKeys(t *testing.T) {
	s := &GCSStore{}
	ctx := context.Background()
	bad := Key{UserID: "../etc", DraftID: "d1", Kind: KindTemplate}

	assert.Error(t, s.Put(ctx, bad, File{Data: []byte("x")}))
	_, err := s.Get(ctx, bad)
	assert.Error(t, err)
	assert.Error(t, s.Delete(ctx, "u1", ""))
}

// TestGCSStore_Emulator runs against a fake-gcs-server or the Cloud
// Storage emulator when STORAGE_EMULATOR_HOST is set.
func TestGCSStore_Emulator(t *testing.T) {
	if os.Getenv("STORAGE_EMULATOR_HOST") == "" {
		t.Skip("STORAGE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	bucket := "bondgen-test-" + uuid.NewString()[:8]
	s, err := NewGCSStore(ctx, bucket)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.bucket.Create(ctx, "bondgen-test", nil))

	key := Key{UserID: "u1", DraftID: "d1", Kind: KindMaturity}
	_, err = s.Get(ctx, key)
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	payload := []byte("Maturity Date,Principal Amount\n2026-06-01,100000\n")
	require.NoError(t, s.Put(ctx, key, File{Name: "maturity.csv", Data: payload}))
	require.NoError(t, s.Put(ctx, Key{UserID: "u1", DraftID: "d1", Kind: KindArchive}, File{Name: "Bonds.zip", Data: []byte("PK")}))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "maturity.csv", got.Name)
	assert.Equal(t, payload, got.Data)

	require.NoError(t, s.Delete(ctx, "u1", "d1"))
	_, err = s.Get(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}
