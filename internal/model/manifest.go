package model

import (
	"time"
)

// ManifestVersion is the current manifest schema version. Manifests read
// back with a higher version than this are rejected as unreadable.
const ManifestVersion = 1

// Manifest is the persisted record of one document's pipeline completion
// state. It is the single source of truth for "has this already been
// done": a stage marked complete here corresponds to a real side effect
// that already happened. Created on first successful run, read before
// every run, mutated only by the orchestrator after a stage succeeds,
// never deleted automatically.
type Manifest struct {
	Version     int    `json:"version"`
	DocumentID  string `json:"document_id"`
	ContentHash string `json:"content_hash,omitempty"`

	Page   *PageRecord   `json:"page,omitempty"`
	Audio  *AudioRecord  `json:"audio,omitempty"`
	Upload *UploadRecord `json:"upload,omitempty"`

	Stages map[Stage]StageMark `json:"stages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageRecord identifies the remote page created by the import stage.
type PageRecord struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// AudioRecord describes the synthesized audio artifact.
type AudioRecord struct {
	LocalPath string  `json:"local_path,omitempty"`
	Hash      string  `json:"hash,omitempty"`
	Duration  float64 `json:"duration_secs,omitempty"`
	Mode      string  `json:"mode,omitempty"`
	Voice     string  `json:"voice,omitempty"`
}

// UploadRecord describes the uploaded remote audio object.
type UploadRecord struct {
	URL string `json:"url"`
	Key string `json:"key,omitempty"`
}

// StageMark records completion of one stage.
type StageMark struct {
	Done        bool      `json:"done"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// NewManifest returns an empty manifest for the given document identity.
func NewManifest(docID string) *Manifest {
	now := time.Now().UTC()
	return &Manifest{
		Version:    ManifestVersion,
		DocumentID: docID,
		Stages:     make(map[Stage]StageMark),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkDone records stage completion at the given time.
func (m *Manifest) MarkDone(stage Stage, at time.Time) {
	if m.Stages == nil {
		m.Stages = make(map[Stage]StageMark)
	}
	m.Stages[stage] = StageMark{Done: true, CompletedAt: at.UTC()}
	m.UpdatedAt = at.UTC()
}

// Done reports whether the given stage has a completion marker.
func (m *Manifest) Done(stage Stage) bool {
	if m == nil || m.Stages == nil {
		return false
	}
	return m.Stages[stage].Done
}

// Validate checks structural integrity of a manifest read from storage.
func (m *Manifest) Validate() error {
	if m.Version <= 0 || m.Version > ManifestVersion {
		return NewManifestError("", ErrUnsupportedManifestVersion)
	}
	if m.DocumentID == "" {
		return NewManifestError("", ErrMissingDocumentID)
	}
	return nil
}
