// Package pipeline orchestrates the lesson publishing stages: validate,
// import, colorize, tts, upload, add-audio, manifest. The per-document
// manifest is the single source of truth for idempotency; a stage runs
// only when its recorded output is missing, stale, or explicitly forced.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tutorlane/lesson-cli/internal/document"
	"github.com/tutorlane/lesson-cli/internal/manifest"
	"github.com/tutorlane/lesson-cli/internal/model"
	"github.com/tutorlane/lesson-cli/internal/resilience"
	"github.com/tutorlane/lesson-cli/internal/store"
)

// Deps are the collaborators the orchestrator drives. Audit may be nil.
type Deps struct {
	Manifests   manifest.Store
	Audit       store.Store
	Importer    Importer
	Colorizer   Colorizer
	Synthesizer Synthesizer
	Uploader    Uploader
	Attacher    Attacher
}

// Options carry run-invariant configuration resolved at startup.
type Options struct {
	// DatabaseID is the default target database for imported pages.
	DatabaseID string
	// AudioDir is where synthesized audio files are written.
	AudioDir string
	// Presets are the named formatting presets available to colorize.
	Presets model.PresetMap
	// DefaultPreset names the preset used when no override is given.
	DefaultPreset string
	// Voices routes speakers to synthesis voices.
	Voices model.VoiceMap
	// Retry configures the retry combinator around external stages.
	Retry resilience.RetryConfig
	// Progress receives stage transition events. May be nil.
	Progress model.ProgressFunc
}

// Pipeline executes publishing runs against lesson documents.
type Pipeline struct {
	deps      Deps
	opts      Options
	validator *document.Validator
}

// New creates a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	return &Pipeline{
		deps:      deps,
		opts:      opts,
		validator: document.NewValidator(),
	}
}

// Run executes a full publishing run for the document named in flags.
func (p *Pipeline) Run(ctx context.Context, flags model.PublishFlags) (*model.RunOutcome, error) {
	doc, err := document.Load(flags.DocumentPath)
	if err != nil {
		return nil, model.NewConfigurationError("", err)
	}

	man, err := p.loadManifest(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	return p.execute(ctx, doc, man, flags, nil)
}

// loadManifest reads the document's manifest, treating absence as a fresh
// start. Corrupt or unreadable manifests abort the run.
func (p *Pipeline) loadManifest(ctx context.Context, docID string) (*model.Manifest, error) {
	man, err := p.deps.Manifests.Read(ctx, docID)
	if err != nil {
		return nil, err
	}
	if man == nil {
		man = model.NewManifest(docID)
	}
	return man, nil
}

// effectiveVoices applies command-line voice overrides on top of the
// configured voice map.
func (p *Pipeline) effectiveVoices(doc *model.Document, flags model.PublishFlags) model.VoiceMap {
	if flags.Voice == "" {
		return p.opts.Voices
	}
	voices := make(model.VoiceMap, len(doc.SpeakerLines))
	for _, sl := range doc.SpeakerLines {
		voices[sl.Speaker] = model.VoiceSpec{Voice: flags.Voice, Accent: flags.Accent}
	}
	return voices
}

// resolvePreset picks the formatting preset for this run. An explicit
// override naming an unknown preset is a configuration error; an unknown
// default degrades to an empty preset.
func (p *Pipeline) resolvePreset(flags model.PublishFlags) (model.Preset, error) {
	name := flags.Preset
	if name == "" {
		name = p.opts.DefaultPreset
	}
	preset, ok := p.opts.Presets[name]
	if !ok {
		if flags.Preset != "" {
			return model.Preset{}, model.NewConfigurationError(model.StageColorize,
				eris.Errorf("unknown preset %q", flags.Preset))
		}
		preset = model.Preset{Name: name}
	}
	if preset.Name == "" {
		preset.Name = name
	}
	return preset, nil
}

// execute runs the stage sequence. selected restricts execution to the
// listed stages (stage-selection reruns); nil means a full run. Selected
// stages execute even when the manifest says their output is current.
func (p *Pipeline) execute(ctx context.Context, doc *model.Document, man *model.Manifest, flags model.PublishFlags, selected map[model.Stage]bool) (*model.RunOutcome, error) {
	log := zap.L().With(zap.String("document", doc.ID))
	log.Info("run starting",
		zap.Bool("dry_run", flags.DryRun),
		zap.Bool("force", flags.Force),
	)

	outcome := &model.RunOutcome{Document: doc.ID, DryRun: flags.DryRun}

	// Fatal configuration problems surface before any external call.
	preset, err := p.resolvePreset(flags)
	if err != nil {
		return nil, err
	}
	databaseID := flags.DatabaseID
	if databaseID == "" {
		databaseID = p.opts.DatabaseID
	}

	audit := p.deps.Audit
	useAudit := audit != nil && !flags.DryRun
	if useAudit {
		run, auditErr := audit.CreateRun(ctx, doc.ID)
		if auditErr != nil {
			log.Warn("audit: create run failed", zap.Error(auditErr))
			useAudit = false
		} else {
			outcome.RunID = run.ID
		}
	}
	if outcome.RunID == "" {
		outcome.RunID = uuid.New().String()
	}

	emit := func(stage model.Stage, status model.StageStatus, detail string) {
		if p.opts.Progress != nil {
			p.opts.Progress(model.ProgressEvent{Stage: stage, Status: status, Detail: detail})
		}
	}

	record := func(res model.StageResult) {
		outcome.Stages = append(outcome.Stages, res)
		if useAudit {
			if recErr := audit.RecordStage(ctx, store.StageRecord{
				RunID:      outcome.RunID,
				Stage:      res.Stage,
				Status:     res.Status,
				Detail:     res.Detail,
				DurationMS: res.Duration,
			}); recErr != nil {
				log.Warn("audit: record stage failed", zap.String("stage", string(res.Stage)), zap.Error(recErr))
			}
		}
	}

	fail := func(stage model.Stage, stageErr error) (*model.RunOutcome, error) {
		emit(stage, model.StageStatusFailed, stageErr.Error())
		record(model.StageResult{Stage: stage, Status: model.StageStatusFailed, Detail: stageErr.Error()})
		if useAudit {
			if stErr := audit.UpdateRunStatus(ctx, outcome.RunID, model.RunStateFailed); stErr != nil {
				log.Warn("audit: update run status failed", zap.Error(stErr))
			}
		}
		log.Error("run failed", zap.String("stage", string(stage)), zap.Error(stageErr))
		return outcome, stageErr
	}

	skip := func(stage model.Stage, reason string) {
		emit(stage, model.StageStatusSkipped, reason)
		record(model.StageResult{Stage: stage, Status: model.StageStatusSkipped, Detail: reason})
		log.Info("stage skipped", zap.String("stage", string(stage)), zap.String("reason", reason))
	}

	requested := func(stage model.Stage) bool {
		return selected == nil || selected[stage]
	}
	gate := func(stage model.Stage) model.PublishFlags {
		f := flags
		if selected != nil && selected[stage] {
			f.Force = true
		}
		return f
	}

	// persist writes the manifest after a successful side-effecting stage
	// so an interrupted run resumes exactly where it stopped.
	persist := func(stage model.Stage) error {
		man.MarkDone(stage, time.Now().UTC())
		if flags.DryRun {
			return nil
		}
		loc, writeErr := p.deps.Manifests.Write(ctx, doc.ID, man)
		if writeErr != nil {
			return model.NewManifestError(p.deps.Manifests.PathFor(doc.ID), writeErr)
		}
		outcome.ManifestLocation = loc
		return nil
	}

	// runExternal executes one side-effecting stage under the retry
	// combinator. Dry runs report the decision without calling out.
	runExternal := func(stage model.Stage, dec decision, fn func(ctx context.Context) (map[string]any, error)) error {
		if !dec.run {
			skip(stage, dec.reason)
			return nil
		}
		if flags.DryRun {
			skip(stage, "dry-run; would execute: "+dec.reason)
			outcome.StagesExecuted = append(outcome.StagesExecuted, stage)
			return nil
		}

		emit(stage, model.StageStatusStart, dec.reason)
		start := time.Now()
		meta, stageErr := resilience.Do(ctx, p.opts.Retry, string(stage), fn)
		duration := time.Since(start).Milliseconds()
		if stageErr != nil {
			if !model.IsConfiguration(stageErr) && !model.IsValidation(stageErr) && !model.IsManifest(stageErr) {
				stageErr = model.NewInfrastructureError(stage, stageErr)
			}
			return stageErr
		}

		emit(stage, model.StageStatusSuccess, "")
		record(model.StageResult{Stage: stage, Status: model.StageStatusSuccess, Duration: duration, Metadata: meta})
		outcome.StagesExecuted = append(outcome.StagesExecuted, stage)
		log.Info("stage complete", zap.String("stage", string(stage)), zap.Int64("duration_ms", duration))
		return persist(stage)
	}

	// ---- validate ----
	if requested(model.StageValidate) {
		emit(model.StageValidate, model.StageStatusStart, "")
		start := time.Now()
		rep := p.validator.Validate(doc)
		for _, w := range rep.Warnings {
			log.Warn("validation warning", zap.String("warning", w))
		}
		if !rep.OK {
			return fail(model.StageValidate, &model.ValidationError{Problems: rep.Errors})
		}
		emit(model.StageValidate, model.StageStatusSuccess, "")
		record(model.StageResult{
			Stage:    model.StageValidate,
			Status:   model.StageStatusSuccess,
			Duration: time.Since(start).Milliseconds(),
			Metadata: map[string]any{"warnings": len(rep.Warnings), "dialogue_lines": len(doc.SpeakerLines)},
		})
		outcome.StagesExecuted = append(outcome.StagesExecuted, model.StageValidate)
	} else {
		skip(model.StageValidate, "not requested")
	}

	// ---- import ----
	impDec := decideImport(man, doc, gate(model.StageImport))
	if !requested(model.StageImport) {
		impDec = skipStage("not requested")
	}
	if impDec.run && databaseID == "" {
		return fail(model.StageImport, model.NewConfigurationError(model.StageImport,
			eris.New("no target database configured")))
	}
	if err := runExternal(model.StageImport, impDec, func(ctx context.Context) (map[string]any, error) {
		page, impErr := p.deps.Importer.CreatePage(ctx, doc, databaseID)
		if impErr != nil {
			return nil, impErr
		}
		man.Page = page
		man.ContentHash = doc.ContentHash
		return map[string]any{"page_id": page.ID}, nil
	}); err != nil {
		return fail(model.StageImport, err)
	}
	importRan := impDec.run && requested(model.StageImport)
	// hasPage and its audio analogues below fold in outputs a scheduled
	// stage would produce, so dry-run decisions chain the same way a real
	// run's recorded outputs do.
	hasPage := man.Page != nil || importRan

	// ---- colorize ----
	colDec := decideColorize(man, hasPage, importRan, gate(model.StageColorize))
	if !requested(model.StageColorize) {
		colDec = skipStage("not requested")
	}
	if err := runExternal(model.StageColorize, colDec, func(ctx context.Context) (map[string]any, error) {
		n, colErr := p.deps.Colorizer.Colorize(ctx, man.Page.ID, preset)
		if colErr != nil {
			return nil, colErr
		}
		return map[string]any{"recolored": n, "preset": preset.Name}, nil
	}); err != nil {
		return fail(model.StageColorize, err)
	}

	// ---- tts ----
	ttsDec := decideTTS(man, doc, gate(model.StageTTS))
	if !requested(model.StageTTS) {
		ttsDec = skipStage("not requested")
	}
	audioPath := filepath.Join(p.opts.AudioDir, flattenID(doc.ID)+".mp3")
	if err := runExternal(model.StageTTS, ttsDec, func(ctx context.Context) (map[string]any, error) {
		rec, ttsErr := p.deps.Synthesizer.Synthesize(ctx, doc, p.effectiveVoices(doc, flags), audioPath)
		if ttsErr != nil {
			return nil, ttsErr
		}
		man.Audio = rec
		return map[string]any{"local_path": rec.LocalPath, "duration_secs": rec.Duration}, nil
	}); err != nil {
		return fail(model.StageTTS, err)
	}
	ttsRan := ttsDec.run && requested(model.StageTTS)
	hasAudio := man.Audio != nil || ttsRan

	// ---- upload ----
	upDec := decideUpload(man, hasAudio, ttsRan, gate(model.StageUpload))
	if !requested(model.StageUpload) {
		upDec = skipStage("not requested")
	}
	uploadKey := flags.UploadDest
	if uploadKey == "" {
		uploadKey = "audio/" + flattenID(doc.ID) + ".mp3"
	}
	if err := runExternal(model.StageUpload, upDec, func(ctx context.Context) (map[string]any, error) {
		rec, upErr := p.deps.Uploader.Upload(ctx, man.Audio.LocalPath, uploadKey)
		if upErr != nil {
			return nil, upErr
		}
		man.Upload = rec
		return map[string]any{"key": rec.Key, "url": rec.URL}, nil
	}); err != nil {
		return fail(model.StageUpload, err)
	}
	uploadRan := upDec.run && requested(model.StageUpload)
	hasUpload := man.Upload != nil || uploadRan

	// ---- add-audio ----
	aaDec := decideAddAudio(man, hasPage, hasUpload, ttsRan, uploadRan, gate(model.StageAddAudio))
	if !requested(model.StageAddAudio) {
		aaDec = skipStage("not requested")
	}
	if err := runExternal(model.StageAddAudio, aaDec, func(ctx context.Context) (map[string]any, error) {
		if attErr := p.deps.Attacher.AttachAudio(ctx, man.Page.ID, man.Upload.URL); attErr != nil {
			return nil, attErr
		}
		return map[string]any{"audio_url": man.Upload.URL}, nil
	}); err != nil {
		return fail(model.StageAddAudio, err)
	}

	// ---- manifest ----
	// Final commit: the manifest snapshot that marks the run finished.
	switch {
	case !requested(model.StageManifest):
		skip(model.StageManifest, "not requested")
	case flags.DryRun:
		skip(model.StageManifest, "dry-run; would execute: commit")
		outcome.StagesExecuted = append(outcome.StagesExecuted, model.StageManifest)
	default:
		emit(model.StageManifest, model.StageStatusStart, "")
		start := time.Now()
		man.MarkDone(model.StageManifest, time.Now().UTC())
		loc, writeErr := p.deps.Manifests.Write(ctx, doc.ID, man)
		if writeErr != nil {
			return fail(model.StageManifest, model.NewManifestError(p.deps.Manifests.PathFor(doc.ID), writeErr))
		}
		outcome.ManifestLocation = loc
		emit(model.StageManifest, model.StageStatusSuccess, "")
		record(model.StageResult{
			Stage:    model.StageManifest,
			Status:   model.StageStatusSuccess,
			Duration: time.Since(start).Milliseconds(),
			Metadata: map[string]any{"location": loc},
		})
		outcome.StagesExecuted = append(outcome.StagesExecuted, model.StageManifest)
	}

	if man.Page != nil {
		outcome.RemoteURL = man.Page.URL
	}
	if man.Upload != nil {
		outcome.AudioURL = man.Upload.URL
	}

	if useAudit {
		if saveErr := audit.UpdateRunOutcome(ctx, outcome.RunID, outcome); saveErr != nil {
			log.Warn("audit: save outcome failed", zap.Error(saveErr))
		}
	}

	log.Info("run complete",
		zap.String("run_id", outcome.RunID),
		zap.Int("stages_executed", len(outcome.StagesExecuted)),
		zap.Bool("dry_run", flags.DryRun),
	)
	return outcome, nil
}

// flattenID turns a document identity into a single path segment.
func flattenID(docID string) string {
	return strings.ReplaceAll(docID, "/", "__")
}
