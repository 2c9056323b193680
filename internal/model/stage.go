package model

// Stage identifies one ordered unit of pipeline work.
type Stage string

const (
	StageValidate Stage = "validate"
	StageImport   Stage = "import"
	StageColorize Stage = "colorize"
	StageTTS      Stage = "tts"
	StageUpload   Stage = "upload"
	StageAddAudio Stage = "add-audio"
	StageManifest Stage = "manifest"
)

// StageOrder is the canonical execution order. Both the orchestrator and
// the rerun selector consult this list; stage ordering is never re-derived
// elsewhere.
var StageOrder = []Stage{
	StageValidate,
	StageImport,
	StageColorize,
	StageTTS,
	StageUpload,
	StageAddAudio,
	StageManifest,
}

// ParseStage returns the Stage for name, or false if the name is unknown.
func ParseStage(name string) (Stage, bool) {
	for _, s := range StageOrder {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// StageStatus represents the externally observable state of a stage
// within one run.
type StageStatus string

const (
	StageStatusStart   StageStatus = "start"
	StageStatusSuccess StageStatus = "success"
	StageStatusSkipped StageStatus = "skipped"
	StageStatusFailed  StageStatus = "failed"
)

// StageResult records the outcome of one stage in one run.
type StageResult struct {
	Stage    Stage          `json:"stage"`
	Status   StageStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Detail   string         `json:"detail,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ProgressEvent is emitted synchronously to an optional observer as a
// stage transitions between statuses. Observers are for logging and UX
// only; the orchestrator never consults them for control flow.
type ProgressEvent struct {
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// ProgressFunc receives progress events during a run. May be nil.
type ProgressFunc func(ProgressEvent)
