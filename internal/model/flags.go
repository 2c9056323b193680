package model

import "time"

// PublishFlags describes one "new run" invocation. Immutable once built.
type PublishFlags struct {
	DocumentPath string `json:"document_path"`

	// Overrides.
	Preset     string `json:"preset,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
	Voice      string `json:"voice,omitempty"`
	Accent     string `json:"accent,omitempty"`
	UploadDest string `json:"upload_dest,omitempty"`

	// Behavior.
	DryRun bool `json:"dry_run,omitempty"`
	Force  bool `json:"force,omitempty"`

	// Per-stage skip flags. A skip only takes effect when the manifest
	// already records the stage's output; for synthesis the recorded
	// audio hash must also match the current dialogue, so a skip never
	// leaves stale audio behind. Force always wins over skip.
	SkipImport bool `json:"skip_import,omitempty"`
	SkipTTS    bool `json:"skip_tts,omitempty"`
	SkipUpload bool `json:"skip_upload,omitempty"`
	RedoTTS    bool `json:"redo_tts,omitempty"`
}

// RerunFlags describes a rerun invocation: re-execute exactly the listed
// stages, reusing manifest-recorded outputs for everything else.
type RerunFlags struct {
	PublishFlags
	Steps []Stage `json:"steps"`
}

// RunOutcome is the result shape shared by new-run and rerun requests.
type RunOutcome struct {
	RunID            string        `json:"run_id"`
	Document         string        `json:"document"`
	StagesExecuted   []Stage       `json:"stages_executed"`
	Stages           []StageResult `json:"stages"`
	ManifestLocation string        `json:"manifest_location,omitempty"`
	RemoteURL        string        `json:"remote_url,omitempty"`
	AudioURL         string        `json:"audio_url,omitempty"`
	DryRun           bool          `json:"dry_run,omitempty"`
}

// Run represents one recorded pipeline run in the audit store.
type Run struct {
	ID        string      `json:"id"`
	Document  string      `json:"document"`
	Status    RunState    `json:"status"`
	Outcome   *RunOutcome `json:"outcome,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunState represents the current state of a recorded run.
type RunState string

const (
	RunStateRunning  RunState = "running"
	RunStateComplete RunState = "complete"
	RunStateFailed   RunState = "failed"
)
