package manifest

import (
	"context"
	"errors"
	"path"

	"github.com/tutorlane/lesson-cli/internal/model"
	"github.com/tutorlane/lesson-cli/pkg/storage"
)

// ObjectStore persists manifests in an object store, keyed under a fixed
// prefix. Interchangeable with FSStore behind the Store interface.
type ObjectStore struct {
	client storage.Client
	prefix string
}

// NewObjectStore creates an object-store-backed manifest store. prefix
// may be empty.
func NewObjectStore(client storage.Client, prefix string) *ObjectStore {
	return &ObjectStore{client: client, prefix: prefix}
}

func (s *ObjectStore) PathFor(docID string) string {
	return path.Join(s.prefix, KeyFor(docID))
}

func (s *ObjectStore) Read(ctx context.Context, docID string) (*model.Manifest, error) {
	location := s.PathFor(docID)
	data, err := s.client.Get(ctx, location)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewManifestError(location, err)
	}
	return decode(location, data)
}

func (s *ObjectStore) Write(ctx context.Context, docID string, m *model.Manifest) (string, error) {
	location := s.PathFor(docID)
	data, err := encode(m)
	if err != nil {
		return "", err
	}
	if _, err := s.client.Put(ctx, location, data, "application/json"); err != nil {
		return "", model.NewManifestError(location, err)
	}
	return location, nil
}
