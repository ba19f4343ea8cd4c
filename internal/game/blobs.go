package game

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrBlobExists   = errors.New("blob already uploaded")
)

// BlobStore issues upload targets for canvas images and resolves stored
// handles to URLs.
type BlobStore interface {
	UploadTarget(ctx context.Context) (handle, uploadURL string, err error)
	ResolveURL(ctx context.Context, handle string) (string, error)
}

type Blob struct {
	ContentType string
	Data        []byte
}

// LocalBlobs keeps uploads in memory and serves them under
// {baseURL}/blobs/{handle}. Each issued handle accepts exactly one upload.
type LocalBlobs struct {
	baseURL string
	maxSize int

	mu     sync.RWMutex
	issued map[string]struct{}
	blobs  map[string]Blob
}

const defaultMaxBlobSize = 5 << 20

func NewLocalBlobs(baseURL string) *LocalBlobs {
	return &LocalBlobs{
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: defaultMaxBlobSize,
		issued:  make(map[string]struct{}),
		blobs:   make(map[string]Blob),
	}
}

func (b *LocalBlobs) MaxSize() int {
	return b.maxSize
}

func (b *LocalBlobs) UploadTarget(ctx context.Context) (string, string, error) {
	handle := uuid.NewString()
	b.mu.Lock()
	b.issued[handle] = struct{}{}
	b.mu.Unlock()
	return handle, b.baseURL + "/blobs/" + handle, nil
}

func (b *LocalBlobs) ResolveURL(ctx context.Context, handle string) (string, error) {
	if _, err := uuid.Parse(handle); err != nil {
		return "", ErrBlobNotFound
	}
	return b.baseURL + "/blobs/" + handle, nil
}

// Put stores data under a handle issued by UploadTarget. A handle that was
// never issued reports ErrBlobNotFound and a second write ErrBlobExists.
func (b *LocalBlobs) Put(handle, contentType string, data []byte) error {
	if len(data) == 0 || len(data) > b.maxSize {
		return errors.New("blob size out of range")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[handle]; ok {
		return ErrBlobExists
	}
	if _, ok := b.issued[handle]; !ok {
		return ErrBlobNotFound
	}
	delete(b.issued, handle)
	b.blobs[handle] = Blob{ContentType: contentType, Data: append([]byte(nil), data...)}
	return nil
}

// Delete drops a stored blob. Unknown handles are ignored.
func (b *LocalBlobs) Delete(handle string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, handle)
	delete(b.issued, handle)
}

func (b *LocalBlobs) Get(handle string) (Blob, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	blob, ok := b.blobs[handle]
	if !ok {
		return Blob{}, ErrBlobNotFound
	}
	return blob, nil
}

// Len reports how many blobs are stored.
func (b *LocalBlobs) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blobs)
}
