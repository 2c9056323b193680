package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tutorlane/lesson-cli/internal/model"
)

// --- Importer mock ---

type mockImporter struct {
	mock.Mock
}

func (m *mockImporter) CreatePage(ctx context.Context, doc *model.Document, databaseID string) (*model.PageRecord, error) {
	args := m.Called(ctx, doc, databaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PageRecord), args.Error(1)
}

// --- Colorizer mock ---

type mockColorizer struct {
	mock.Mock
}

func (m *mockColorizer) Colorize(ctx context.Context, pageID string, preset model.Preset) (int, error) {
	args := m.Called(ctx, pageID, preset)
	return args.Int(0), args.Error(1)
}

// --- Synthesizer mock ---

type mockSynthesizer struct {
	mock.Mock
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, doc *model.Document, voices model.VoiceMap, outputPath string) (*model.AudioRecord, error) {
	args := m.Called(ctx, doc, voices, outputPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AudioRecord), args.Error(1)
}

// --- Uploader mock ---

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, localPath, key string) (*model.UploadRecord, error) {
	args := m.Called(ctx, localPath, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadRecord), args.Error(1)
}

// --- Attacher mock ---

type mockAttacher struct {
	mock.Mock
}

func (m *mockAttacher) AttachAudio(ctx context.Context, pageID, audioURL string) error {
	args := m.Called(ctx, pageID, audioURL)
	return args.Error(0)
}
