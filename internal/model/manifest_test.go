package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManifest(t *testing.T) {
	t.Parallel()

	m := NewManifest("lessons/unit-3")
	assert.Equal(t, ManifestVersion, m.Version)
	assert.Equal(t, "lessons/unit-3", m.DocumentID)
	assert.NotNil(t, m.Stages)
	assert.False(t, m.Done(StageImport))
}

func TestManifestMarkDone(t *testing.T) {
	t.Parallel()

	m := NewManifest("doc")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.MarkDone(StageImport, at)

	assert.True(t, m.Done(StageImport))
	assert.Equal(t, at, m.Stages[StageImport].CompletedAt)
	assert.Equal(t, at, m.UpdatedAt)
	assert.False(t, m.Done(StageTTS))
}

func TestManifestDone_NilReceiver(t *testing.T) {
	t.Parallel()

	var m *Manifest
	assert.False(t, m.Done(StageImport))
}

func TestManifestValidate(t *testing.T) {
	t.Parallel()

	m := NewManifest("doc")
	require.NoError(t, m.Validate())

	m.Version = ManifestVersion + 1
	err := m.Validate()
	require.Error(t, err)
	assert.True(t, IsManifest(err))

	m.Version = ManifestVersion
	m.DocumentID = ""
	err = m.Validate()
	require.Error(t, err)
	assert.True(t, IsManifest(err))
}

func TestManifestRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewManifest("lessons/unit-3")
	m.ContentHash = "abc123"
	m.Page = &PageRecord{ID: "page-1", URL: "https://notion.so/page-1"}
	m.Audio = &AudioRecord{LocalPath: "/tmp/unit-3.mp3", Hash: "h1", Duration: 93.4, Mode: "dialogue", Voice: "nova"}
	m.Upload = &UploadRecord{URL: "https://cdn.example.com/a.mp3", Key: "audio/a.mp3"}
	m.MarkDone(StageImport, time.Now().UTC().Truncate(time.Second))

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var back Manifest
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, *m, back)
}
