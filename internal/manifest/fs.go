package manifest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/tutorlane/lesson-cli/internal/model"
)

// FSStore persists manifests as JSON files under a root directory.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed manifest store rooted at dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{root: dir}
}

func (s *FSStore) PathFor(docID string) string {
	return filepath.Join(s.root, KeyFor(docID))
}

func (s *FSStore) Read(_ context.Context, docID string) (*model.Manifest, error) {
	location := s.PathFor(docID)
	data, err := os.ReadFile(location)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewManifestError(location, err)
	}
	return decode(location, data)
}

func (s *FSStore) Write(_ context.Context, docID string, m *model.Manifest) (string, error) {
	location := s.PathFor(docID)
	data, err := encode(m)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return "", eris.Wrapf(err, "manifest: mkdir for %s", location)
	}
	// Write-then-rename so a crash mid-write never leaves a truncated
	// manifest behind.
	tmp := location + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "manifest: write %s", tmp)
	}
	if err := os.Rename(tmp, location); err != nil {
		return "", eris.Wrapf(err, "manifest: rename %s", location)
	}
	return location, nil
}
