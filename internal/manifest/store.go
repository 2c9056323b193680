// Package manifest persists per-document pipeline manifests. Two
// interchangeable stores exist: a local filesystem store and an
// object-store-backed store. Both derive the manifest location
// deterministically from the document identity, so repeated runs against
// the same document always resolve to the same manifest.
package manifest

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/tutorlane/lesson-cli/internal/model"
)

// Suffix is appended to every derived manifest key.
const Suffix = ".manifest.json"

// Store reads and writes one manifest per document identity. Read returns
// (nil, nil) when no manifest exists; "not found" is a normal outcome.
// A manifest that exists but cannot be decoded or validated yields a
// ManifestError.
type Store interface {
	PathFor(docID string) string
	Read(ctx context.Context, docID string) (*model.Manifest, error)
	Write(ctx context.Context, docID string, m *model.Manifest) (string, error)
}

// KeyFor derives the storage key for a document identity: NFC-normalized,
// path separators flattened, extension already stripped by the document
// loader, fixed suffix appended.
func KeyFor(docID string) string {
	key := norm.NFC.String(docID)
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.Trim(key, "/")
	key = strings.ReplaceAll(key, "/", "__")
	return key + Suffix
}

func encode(m *model.Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "manifest: marshal")
	}
	return data, nil
}

func decode(location string, data []byte) (*model.Manifest, error) {
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, model.NewManifestError(location, err)
	}
	if err := m.Validate(); err != nil {
		return nil, model.NewManifestError(location, err)
	}
	return &m, nil
}
