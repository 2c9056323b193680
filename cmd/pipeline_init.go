package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tutorlane/lesson-cli/internal/config"
	"github.com/tutorlane/lesson-cli/internal/manifest"
	"github.com/tutorlane/lesson-cli/internal/model"
	"github.com/tutorlane/lesson-cli/internal/pipeline"
	"github.com/tutorlane/lesson-cli/internal/resilience"
	"github.com/tutorlane/lesson-cli/internal/store"
	"github.com/tutorlane/lesson-cli/pkg/notion"
	"github.com/tutorlane/lesson-cli/pkg/speech"
	"github.com/tutorlane/lesson-cli/pkg/storage"
)

// pipelineEnv holds the initialized store, clients, resources, and the
// pipeline needed by the publish/rerun/batch commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Profiles map[string]model.StudentProfile
	Notion   notion.Client
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the run-audit store selected by config.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres store")
		}
		return st, nil
	case "", "sqlite":
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite store")
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initStorage builds the object storage client selected by config.
func initStorage() (storage.Client, error) {
	switch cfg.Storage.Backend {
	case "ftp":
		return storage.NewFTPClient(storage.FTPConfig{
			Host:          cfg.Storage.FTP.Host,
			User:          cfg.Storage.FTP.User,
			Password:      cfg.Storage.FTP.Password,
			RootDir:       cfg.Storage.FTP.RootDir,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		}), nil
	case "", "http":
		opts := []storage.HTTPOption{}
		if cfg.Storage.PublicBaseURL != "" {
			opts = append(opts, storage.WithPublicBaseURL(cfg.Storage.PublicBaseURL))
		}
		return storage.NewHTTPClient(cfg.Storage.Key, cfg.Storage.BaseURL, opts...), nil
	default:
		return nil, eris.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// initManifests builds the manifest store selected by config.
func initManifests(storageClient storage.Client) (manifest.Store, error) {
	switch cfg.Manifest.Backend {
	case "object":
		return manifest.NewObjectStore(storageClient, cfg.Manifest.Prefix), nil
	case "", "fs":
		return manifest.NewFSStore(cfg.Manifest.Dir), nil
	default:
		return nil, eris.Errorf("unknown manifest backend %q", cfg.Manifest.Backend)
	}
}

// initPipeline sets up the store, API clients, resource registries, and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, progress model.ProgressFunc) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	storageClient, err := initStorage()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	manifests, err := initManifests(storageClient)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	notionClient := notion.NewClient(cfg.Notion.Token)
	speechClient := speech.NewClient(cfg.Speech.Key, speech.WithBaseURL(cfg.Speech.BaseURL))

	provider := config.NewProvider(cfg, notionClient)
	presets, err := provider.LoadPresets()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	voices, err := provider.LoadVoices()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	profiles, err := provider.LoadStudentProfiles(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	zap.L().Info("resources loaded",
		zap.Int("presets", len(presets)),
		zap.Int("voices", len(voices)),
		zap.Int("profiles", len(profiles)),
	)

	retry := resilience.DefaultRetryConfig()
	if cfg.Pipeline.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Pipeline.MaxAttempts
	}

	p := pipeline.New(pipeline.Deps{
		Manifests:   manifests,
		Audit:       st,
		Importer:    pipeline.NewNotionImporter(notionClient),
		Colorizer:   pipeline.NewNotionColorizer(notionClient),
		Synthesizer: pipeline.NewSpeechSynthesizer(speechClient, cfg.Speech.Mode),
		Uploader:    pipeline.NewStorageUploader(storageClient),
		Attacher:    pipeline.NewNotionAttacher(notionClient),
	}, pipeline.Options{
		DatabaseID:    cfg.Notion.LessonDB,
		AudioDir:      cfg.Pipeline.AudioDir,
		Presets:       presets,
		DefaultPreset: cfg.Pipeline.DefaultPreset,
		Voices:        voices,
		Retry:         retry,
		Progress:      progress,
	})

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Profiles: profiles,
		Notion:   notionClient,
	}, nil
}
