package pipeline

import (
	"context"

	"github.com/tutorlane/lesson-cli/internal/model"
)

// Importer creates the remote lesson page from a parsed document.
type Importer interface {
	CreatePage(ctx context.Context, doc *model.Document, databaseID string) (*model.PageRecord, error)
}

// Colorizer applies a formatting preset to an imported page and returns
// the number of blocks it restyled.
type Colorizer interface {
	Colorize(ctx context.Context, pageID string, preset model.Preset) (int, error)
}

// Synthesizer renders the document's dialogue lines into a local audio
// file and reports the produced artifact.
type Synthesizer interface {
	Synthesize(ctx context.Context, doc *model.Document, voices model.VoiceMap, outputPath string) (*model.AudioRecord, error)
}

// Uploader pushes a local audio file to object storage.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) (*model.UploadRecord, error)
}

// Attacher embeds the hosted audio into the lesson page, replacing any
// audio embed left by a previous run.
type Attacher interface {
	AttachAudio(ctx context.Context, pageID, audioURL string) error
}

// decision is the outcome of stage gating: whether the stage executes
// this run and a human-readable reason either way.
type decision struct {
	run    bool
	reason string
}

func runStage(reason string) decision  { return decision{run: true, reason: reason} }
func skipStage(reason string) decision { return decision{run: false, reason: reason} }

// decideImport gates the import stage. A recorded page plus an unchanged
// content hash means the remote page is already current. A manifest
// without a content hash cannot prove anything, so it counts as changed.
func decideImport(man *model.Manifest, doc *model.Document, flags model.PublishFlags) decision {
	if flags.Force {
		return runStage("forced")
	}
	if man.Page == nil {
		return runStage("no page recorded")
	}
	if flags.SkipImport {
		return skipStage("skip requested and page recorded")
	}
	if man.ContentHash != "" && man.ContentHash == doc.ContentHash {
		return skipStage("content unchanged")
	}
	return runStage("content changed")
}

// decideColorize gates colorize on whether import produced or refreshed a
// page this run, or a prior run failed before recording colorize as done.
// hasPage covers pages that exist in the manifest or would be created by
// an import scheduled this run, so dry-run previews chain correctly.
func decideColorize(man *model.Manifest, hasPage, importRan bool, flags model.PublishFlags) decision {
	if !hasPage {
		return skipStage("no page to colorize")
	}
	if flags.Force {
		return runStage("forced")
	}
	if importRan {
		return runStage("page imported this run")
	}
	if !man.Done(model.StageColorize) {
		return runStage("colorize not recorded")
	}
	return skipStage("page unchanged")
}

// decideTTS gates speech synthesis on the audio-input hash, which covers
// only the speaker-tagged lines. Edits elsewhere in the document never
// invalidate cached audio. A skip request never overrides changed
// dialogue: skipping only happens when the recorded hash matches, and a
// missing hash counts as changed.
func decideTTS(man *model.Manifest, doc *model.Document, flags model.PublishFlags) decision {
	if len(doc.SpeakerLines) == 0 {
		return skipStage("no dialogue lines")
	}
	if flags.Force || flags.RedoTTS {
		return runStage("forced")
	}
	if man.Audio == nil {
		return runStage("no audio recorded")
	}
	if man.Audio.Hash != "" && man.Audio.Hash == doc.AudioInputHash {
		return skipStage("dialogue unchanged")
	}
	return runStage("dialogue changed")
}

// decideUpload gates the upload stage. Fresh audio always uploads; audio
// already hosted and unchanged does not. hasAudio covers audio recorded
// in the manifest or that a synthesis scheduled this run would produce.
func decideUpload(man *model.Manifest, hasAudio, ttsRan bool, flags model.PublishFlags) decision {
	if !hasAudio {
		return skipStage("no audio to upload")
	}
	if flags.Force {
		return runStage("forced")
	}
	if ttsRan {
		return runStage("audio synthesized this run")
	}
	if man.Upload == nil {
		return runStage("audio never uploaded")
	}
	if flags.SkipUpload {
		return skipStage("skip requested and upload recorded")
	}
	return skipStage("audio already uploaded")
}

// decideAddAudio gates the embed stage on whether an upstream audio stage
// produced something new this run, or a prior run failed before recording
// the embed as done.
func decideAddAudio(man *model.Manifest, hasPage, hasUpload, ttsRan, uploadRan bool, flags model.PublishFlags) decision {
	if !hasPage {
		return skipStage("no page to attach to")
	}
	if !hasUpload {
		return skipStage("no hosted audio")
	}
	if flags.Force {
		return runStage("forced")
	}
	if ttsRan || uploadRan {
		return runStage("audio refreshed this run")
	}
	if !man.Done(model.StageAddAudio) {
		return runStage("audio embed not recorded")
	}
	return skipStage("audio embed current")
}
