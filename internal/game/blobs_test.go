package game

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobsAcceptOnlyIssuedHandles(t *testing.T) {
	blobs := NewLocalBlobs("http://draw.test/")
	png := []byte("\x89PNG\r\n\x1a\n")

	err := blobs.Put(uuid.NewString(), "image/png", png)
	assert.ErrorIs(t, err, ErrBlobNotFound, "a well-formed handle that was never issued")

	handle, url, err := blobs.UploadTarget(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://draw.test/blobs/"+handle, url)

	assert.Error(t, blobs.Put(handle, "image/png", nil), "empty uploads are rejected")
	require.NoError(t, blobs.Put(handle, "image/png", png), "a rejected upload leaves the handle usable")

	err = blobs.Put(handle, "image/png", []byte("replacement"))
	assert.ErrorIs(t, err, ErrBlobExists)
	blob, err := blobs.Get(handle)
	require.NoError(t, err)
	assert.Equal(t, png, blob.Data)
	assert.Equal(t, 1, blobs.Len())

	blobs.Delete(handle)
	_, err = blobs.Get(handle)
	assert.ErrorIs(t, err, ErrBlobNotFound)
	assert.ErrorIs(t, blobs.Put(handle, "image/png", png), ErrBlobNotFound, "deleted handles are not reissued")
	assert.Zero(t, blobs.Len())
}
