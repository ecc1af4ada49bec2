package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/marmos91/dittodrive/pkg/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UploadAndGet(t *testing.T) {
	s := New("")
	ctx := context.Background()

	var progress []int
	url, err := s.Upload(ctx, "u1/a.txt", bytes.NewReader([]byte("hello")), 5, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL+"/u1/a.txt", url)
	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])

	data, err := s.Get("u1/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, 1, s.Len())
}

func TestStore_CustomBaseURL(t *testing.T) {
	s := New("https://cdn.example.com/")
	url, err := s.Upload(context.Background(), "k", bytes.NewReader(nil), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/k", url)
}

func TestStore_EmptyKey(t *testing.T) {
	s := New("")
	_, err := s.Upload(context.Background(), "", bytes.NewReader(nil), 0, nil)
	assert.ErrorIs(t, err, blob.ErrInvalidKey)
}

func TestStore_Delete(t *testing.T) {
	s := New("")
	ctx := context.Background()

	_, err := s.Upload(ctx, "k", bytes.NewReader([]byte("x")), 1, nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"), "deleting a missing key is not an error")

	_, err = s.Get("k")
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)
}

func TestStore_CancelledContext(t *testing.T) {
	s := New("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Upload(ctx, "k", bytes.NewReader([]byte("x")), 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Closed(t *testing.T) {
	s := New("")
	require.NoError(t, s.Close())

	_, err := s.Upload(context.Background(), "k", bytes.NewReader(nil), 0, nil)
	assert.ErrorIs(t, err, blob.ErrStoreClosed)
	assert.ErrorIs(t, s.Healthcheck(context.Background()), blob.ErrStoreClosed)
}
