package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tutorlane/lesson-cli/internal/document"
	"github.com/tutorlane/lesson-cli/internal/manifest"
	"github.com/tutorlane/lesson-cli/internal/model"
	"github.com/tutorlane/lesson-cli/internal/resilience"
	"github.com/tutorlane/lesson-cli/internal/store"
)

const sampleLesson = `# Ordering Food

A lesson about ordering in a restaurant.

## Dialogue

**Waiter:** Good evening, welcome!
**Ana:** A table for two, please.
`

// lessonWithDialogue swaps the dialogue while keeping the rest intact.
const sampleLessonNewIntro = `# Ordering Food

A lesson about ordering food in a busy restaurant.

## Dialogue

**Waiter:** Good evening, welcome!
**Ana:** A table for two, please.
`

const sampleLessonNewDialogue = `# Ordering Food

A lesson about ordering in a restaurant.

## Dialogue

**Waiter:** Good evening, welcome!
**Ana:** A quiet table for four, please.
`

type testEnv struct {
	t         *testing.T
	dir       string
	docPath   string
	manifests *manifest.FSStore

	imp   *mockImporter
	col   *mockColorizer
	synth *mockSynthesizer
	up    *mockUploader
	att   *mockAttacher
	pipe  *Pipeline
}

func newTestEnv(t *testing.T, content string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	docPath := filepath.Join(dir, "lessons", "unit-3", "ordering-food.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(docPath), 0o755))
	require.NoError(t, os.WriteFile(docPath, []byte(content), 0o644))

	env := &testEnv{
		t:         t,
		dir:       dir,
		docPath:   docPath,
		manifests: manifest.NewFSStore(filepath.Join(dir, "manifests")),
	}
	env.reset()
	return env
}

// reset swaps in fresh mocks so a follow-up run can assert zero calls.
func (e *testEnv) reset() {
	e.imp = &mockImporter{}
	e.col = &mockColorizer{}
	e.synth = &mockSynthesizer{}
	e.up = &mockUploader{}
	e.att = &mockAttacher{}
	e.pipe = New(Deps{
		Manifests:   e.manifests,
		Importer:    e.imp,
		Colorizer:   e.col,
		Synthesizer: e.synth,
		Uploader:    e.up,
		Attacher:    e.att,
	}, Options{
		DatabaseID:    "db-lessons",
		AudioDir:      filepath.Join(e.dir, "audio"),
		Presets:       model.PresetMap{"classic": {Name: "classic", Highlight: "blue"}},
		DefaultPreset: "classic",
		Retry:         resilience.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxJitter: 0},
	})
}

func (e *testEnv) rewrite(content string) {
	e.t.Helper()
	require.NoError(e.t, os.WriteFile(e.docPath, []byte(content), 0o644))
}

// expectAllWithHash sets expectations where the synthesized audio record
// carries the document's real audio-input hash, as the synthesizer does.
func (e *testEnv) expectAllWithHash() {
	doc, err := document.Load(e.docPath)
	require.NoError(e.t, err)

	e.imp.On("CreatePage", mock.Anything, mock.Anything, "db-lessons").
		Return(&model.PageRecord{ID: "page-1", URL: "https://notion.so/page-1"}, nil)
	e.col.On("Colorize", mock.Anything, "page-1", mock.Anything).Return(2, nil)
	e.synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&model.AudioRecord{LocalPath: "/audio/x.mp3", Hash: doc.AudioInputHash, Duration: 30}, nil)
	e.up.On("Upload", mock.Anything, "/audio/x.mp3", mock.Anything).
		Return(&model.UploadRecord{URL: "https://cdn.example.com/x.mp3", Key: "audio/x.mp3"}, nil)
	e.att.On("AttachAudio", mock.Anything, "page-1", "https://cdn.example.com/x.mp3").Return(nil)
}

func executed(outcome *model.RunOutcome) map[model.Stage]bool {
	set := make(map[model.Stage]bool, len(outcome.StagesExecuted))
	for _, s := range outcome.StagesExecuted {
		set[s] = true
	}
	return set
}

func TestRun_FirstRunExecutesAllStages(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.expectAllWithHash()

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	got := executed(outcome)
	for _, s := range model.StageOrder {
		assert.True(t, got[s], "stage %s should have executed", s)
	}
	assert.Equal(t, "https://notion.so/page-1", outcome.RemoteURL)
	assert.Equal(t, "https://cdn.example.com/x.mp3", outcome.AudioURL)
	assert.NotEmpty(t, outcome.ManifestLocation)

	man, err := env.manifests.Read(context.Background(), document.IDFromPath(env.docPath))
	require.NoError(t, err)
	require.NotNil(t, man)
	assert.NotNil(t, man.Page)
	assert.NotNil(t, man.Audio)
	assert.NotNil(t, man.Upload)
	assert.True(t, man.Done(model.StageImport))
	assert.True(t, man.Done(model.StageManifest))

	env.imp.AssertExpectations(t)
	env.att.AssertExpectations(t)
}

func TestRun_SecondRunUnchangedSkipsExternalStages(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.expectAllWithHash()

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	// Fresh mocks with no expectations: any external call would fail the test.
	env.reset()
	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	got := executed(outcome)
	assert.True(t, got[model.StageValidate])
	assert.True(t, got[model.StageManifest])
	assert.False(t, got[model.StageImport])
	assert.False(t, got[model.StageColorize])
	assert.False(t, got[model.StageTTS])
	assert.False(t, got[model.StageUpload])
	assert.False(t, got[model.StageAddAudio])

	// Skipped stages still carry their reasons.
	reasons := make(map[model.Stage]string)
	for _, res := range outcome.Stages {
		if res.Status == model.StageStatusSkipped {
			reasons[res.Stage] = res.Detail
		}
	}
	assert.Equal(t, "content unchanged", reasons[model.StageImport])
	assert.Equal(t, "dialogue unchanged", reasons[model.StageTTS])
}

func TestRun_UnrelatedEditSkipsAudioStages(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.expectAllWithHash()
	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	// Edit prose only; dialogue is untouched.
	env.rewrite(sampleLessonNewIntro)
	env.reset()
	env.imp.On("CreatePage", mock.Anything, mock.Anything, "db-lessons").
		Return(&model.PageRecord{ID: "page-2", URL: "https://notion.so/page-2"}, nil)
	env.col.On("Colorize", mock.Anything, "page-2", mock.Anything).Return(2, nil)

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	got := executed(outcome)
	assert.True(t, got[model.StageImport])
	assert.True(t, got[model.StageColorize])
	assert.False(t, got[model.StageTTS], "unchanged dialogue must not resynthesize")
	assert.False(t, got[model.StageUpload])
	assert.False(t, got[model.StageAddAudio])
	env.imp.AssertExpectations(t)
}

func TestRun_DialogueEditRefreshesAudio(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.expectAllWithHash()
	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	env.rewrite(sampleLessonNewDialogue)
	env.reset()
	env.expectAllWithHash()

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	got := executed(outcome)
	assert.True(t, got[model.StageTTS])
	assert.True(t, got[model.StageUpload])
	assert.True(t, got[model.StageAddAudio])
	env.synth.AssertExpectations(t)
	env.att.AssertExpectations(t)
}

func TestRun_ForceBeatsSkip(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.expectAllWithHash()
	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	env.reset()
	env.expectAllWithHash()

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{
		DocumentPath: env.docPath,
		Force:        true,
		SkipImport:   true,
		SkipTTS:      true,
		SkipUpload:   true,
	})
	require.NoError(t, err)

	got := executed(outcome)
	assert.True(t, got[model.StageImport])
	assert.True(t, got[model.StageTTS])
	assert.True(t, got[model.StageUpload])
}

func TestRun_SkipFlagsHonoredWhenOutputsRecorded(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.expectAllWithHash()
	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	// Content changed, but the caller explicitly skips import.
	env.rewrite(sampleLessonNewIntro)
	env.reset()

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{
		DocumentPath: env.docPath,
		SkipImport:   true,
	})
	require.NoError(t, err)

	got := executed(outcome)
	assert.False(t, got[model.StageImport])
	assert.False(t, got[model.StageColorize])
}

func TestRun_DryRunMakesNoExternalCallsAndNoManifestWrites(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{
		DocumentPath: env.docPath,
		DryRun:       true,
	})
	require.NoError(t, err)
	assert.True(t, outcome.DryRun)

	// Decisions still reported: these stages would execute on a real run.
	got := executed(outcome)
	assert.True(t, got[model.StageImport])
	assert.True(t, got[model.StageTTS])
	assert.True(t, got[model.StageManifest])

	man, err := env.manifests.Read(context.Background(), document.IDFromPath(env.docPath))
	require.NoError(t, err)
	assert.Nil(t, man, "dry run must not write a manifest")
}

func TestRun_ValidationFailureAbortsBeforeSideEffects(t *testing.T) {
	env := newTestEnv(t, "no title here, just text\n")

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	man, readErr := env.manifests.Read(context.Background(), document.IDFromPath(env.docPath))
	require.NoError(t, readErr)
	assert.Nil(t, man)
}

func TestRun_NoDialogueSkipsAudioStages(t *testing.T) {
	env := newTestEnv(t, "# Grammar Notes\n\nJust prose, no dialogue.\n")
	env.imp.On("CreatePage", mock.Anything, mock.Anything, "db-lessons").
		Return(&model.PageRecord{ID: "page-3", URL: "https://notion.so/page-3"}, nil)
	env.col.On("Colorize", mock.Anything, "page-3", mock.Anything).Return(0, nil)

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	got := executed(outcome)
	assert.True(t, got[model.StageImport])
	assert.False(t, got[model.StageTTS])
	assert.False(t, got[model.StageUpload])
	assert.False(t, got[model.StageAddAudio])
}

func TestRun_TransientErrorRetriedThenSucceeds(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	transient := resilience.NewTransientError(errors.New("rate limited"), 429)
	env.imp.On("CreatePage", mock.Anything, mock.Anything, "db-lessons").
		Return(nil, transient).Twice()
	env.imp.On("CreatePage", mock.Anything, mock.Anything, "db-lessons").
		Return(&model.PageRecord{ID: "page-1", URL: "https://notion.so/page-1"}, nil).Once()
	env.col.On("Colorize", mock.Anything, "page-1", mock.Anything).Return(2, nil)
	env.synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&model.AudioRecord{LocalPath: "/audio/x.mp3", Hash: "h", Duration: 30}, nil)
	env.up.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.UploadRecord{URL: "https://cdn.example.com/x.mp3", Key: "k"}, nil)
	env.att.On("AttachAudio", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)
	env.imp.AssertNumberOfCalls(t, "CreatePage", 3)
}

func TestRun_RetryExhaustionIsInfrastructureError(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	transient := resilience.NewTransientError(errors.New("unavailable"), 503)
	env.imp.On("CreatePage", mock.Anything, mock.Anything, "db-lessons").Return(nil, transient)

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.Error(t, err)

	var infra *model.InfrastructureError
	require.True(t, errors.As(err, &infra))
	assert.Equal(t, model.StageImport, infra.Stage)

	var exhausted *resilience.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, string(model.StageImport), exhausted.Label)
	assert.Equal(t, 3, exhausted.Attempts)
}

func TestRun_FatalErrorNotRetried(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	env.imp.On("CreatePage", mock.Anything, mock.Anything, "db-lessons").
		Return(nil, errors.New("invalid database"))

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.Error(t, err)
	env.imp.AssertNumberOfCalls(t, "CreatePage", 1)
}

func TestRun_MissingDatabaseIsConfigurationError(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.pipe = New(Deps{
		Manifests:   env.manifests,
		Importer:    env.imp,
		Colorizer:   env.col,
		Synthesizer: env.synth,
		Uploader:    env.up,
		Attacher:    env.att,
	}, Options{AudioDir: env.dir})

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))
}

func TestRun_UnknownPresetOverrideIsConfigurationError(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{
		DocumentPath: env.docPath,
		Preset:       "does-not-exist",
	})
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))
}

func TestRun_CorruptManifestAborts(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	docID := document.IDFromPath(env.docPath)
	loc := env.manifests.PathFor(docID)
	require.NoError(t, os.MkdirAll(filepath.Dir(loc), 0o755))
	require.NoError(t, os.WriteFile(loc, []byte("{not json"), 0o644))

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.Error(t, err)
	assert.True(t, model.IsManifest(err))
}

func TestRun_MidRunFailureLeavesManifestAtLastSuccess(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	env.imp.On("CreatePage", mock.Anything, mock.Anything, "db-lessons").
		Return(&model.PageRecord{ID: "page-1", URL: "https://notion.so/page-1"}, nil)
	env.col.On("Colorize", mock.Anything, "page-1", mock.Anything).Return(2, nil)
	env.synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("synthesis backend down"))

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.Error(t, err)

	man, readErr := env.manifests.Read(context.Background(), document.IDFromPath(env.docPath))
	require.NoError(t, readErr)
	require.NotNil(t, man)
	assert.NotNil(t, man.Page)
	assert.True(t, man.Done(model.StageImport))
	assert.True(t, man.Done(model.StageColorize))
	assert.Nil(t, man.Audio)
	assert.False(t, man.Done(model.StageManifest))

	// A follow-up run resumes: import is current, audio still needed.
	env.reset()
	env.synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&model.AudioRecord{LocalPath: "/audio/x.mp3", Hash: "h", Duration: 30}, nil)
	env.up.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.UploadRecord{URL: "https://cdn.example.com/x.mp3", Key: "k"}, nil)
	env.att.On("AttachAudio", mock.Anything, "page-1", mock.Anything).Return(nil)

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)
	got := executed(outcome)
	assert.False(t, got[model.StageImport])
	assert.True(t, got[model.StageTTS])
	assert.True(t, got[model.StageUpload])
	assert.True(t, got[model.StageAddAudio])
}

func TestRun_ProgressEventsEmittedInOrder(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.expectAllWithHash()

	var events []model.ProgressEvent
	env.pipe.opts.Progress = func(ev model.ProgressEvent) {
		events = append(events, ev)
	}

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, model.StageValidate, events[0].Stage)
	assert.Equal(t, model.StageStatusStart, events[0].Status)

	// Stage order is preserved across the event stream.
	lastIdx := -1
	idx := func(s model.Stage) int {
		for i, st := range model.StageOrder {
			if st == s {
				return i
			}
		}
		return -1
	}
	for _, ev := range events {
		i := idx(ev.Stage)
		require.GreaterOrEqual(t, i, lastIdx)
		lastIdx = i
	}
}

func TestRun_AuditTrailRecorded(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.expectAllWithHash()

	audit, err := store.NewSQLite(filepath.Join(env.dir, "audit.db"))
	require.NoError(t, err)
	defer audit.Close()
	require.NoError(t, audit.Migrate(context.Background()))
	env.pipe.deps.Audit = audit

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	run, err := audit.GetRun(context.Background(), outcome.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateComplete, run.Status)
	require.NotNil(t, run.Outcome)
	assert.Equal(t, outcome.RemoteURL, run.Outcome.RemoteURL)
}

func TestRunBatch_CollapsesDuplicatesAndSurvivesFailures(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	otherPath := filepath.Join(env.dir, "lessons", "unit-4", "directions.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(otherPath), 0o755))
	require.NoError(t, os.WriteFile(otherPath, []byte("no title, invalid doc\n"), 0o644))

	env.expectAllWithHash()

	items := env.pipe.RunBatch(context.Background(),
		[]string{env.docPath, otherPath, env.docPath},
		model.PublishFlags{}, 2)

	require.Len(t, items, 2, "duplicate path collapsed")
	byPath := map[string]BatchItem{}
	for _, it := range items {
		byPath[it.Path] = it
	}
	assert.NoError(t, byPath[env.docPath].Err)
	assert.Error(t, byPath[otherPath].Err, "invalid document fails without aborting batch")
}

func TestRun_ResumeAfterColorizeFailure(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	env.imp.On("CreatePage", mock.Anything, mock.Anything, "db-lessons").
		Return(&model.PageRecord{ID: "page-1", URL: "https://notion.so/page-1"}, nil)
	env.col.On("Colorize", mock.Anything, "page-1", mock.Anything).
		Return(0, errors.New("palette service down"))

	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.Error(t, err)

	man, readErr := env.manifests.Read(context.Background(), document.IDFromPath(env.docPath))
	require.NoError(t, readErr)
	require.NotNil(t, man)
	assert.True(t, man.Done(model.StageImport))
	assert.False(t, man.Done(model.StageColorize))

	// Resume: import is current, but the uncommitted colorize must re-run.
	env.reset()
	env.col.On("Colorize", mock.Anything, "page-1", mock.Anything).Return(2, nil)
	env.synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&model.AudioRecord{LocalPath: "/audio/x.mp3", Hash: "h", Duration: 30}, nil)
	env.up.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.UploadRecord{URL: "https://cdn.example.com/x.mp3", Key: "k"}, nil)
	env.att.On("AttachAudio", mock.Anything, "page-1", mock.Anything).Return(nil)

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	got := executed(outcome)
	assert.False(t, got[model.StageImport])
	assert.True(t, got[model.StageColorize])
	env.col.AssertNumberOfCalls(t, "Colorize", 1)
}

func TestRun_ResumeAfterAttachFailure(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	doc, err := document.Load(env.docPath)
	require.NoError(t, err)
	env.imp.On("CreatePage", mock.Anything, mock.Anything, "db-lessons").
		Return(&model.PageRecord{ID: "page-1", URL: "https://notion.so/page-1"}, nil)
	env.col.On("Colorize", mock.Anything, "page-1", mock.Anything).Return(2, nil)
	env.synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&model.AudioRecord{LocalPath: "/audio/x.mp3", Hash: doc.AudioInputHash, Duration: 30}, nil)
	env.up.On("Upload", mock.Anything, "/audio/x.mp3", mock.Anything).
		Return(&model.UploadRecord{URL: "https://cdn.example.com/x.mp3", Key: "k"}, nil)
	env.att.On("AttachAudio", mock.Anything, "page-1", "https://cdn.example.com/x.mp3").
		Return(errors.New("embed rejected"))

	_, err = env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.Error(t, err)

	man, readErr := env.manifests.Read(context.Background(), document.IDFromPath(env.docPath))
	require.NoError(t, readErr)
	require.NotNil(t, man)
	assert.True(t, man.Done(model.StageUpload))
	assert.False(t, man.Done(model.StageAddAudio))

	// Resume: every upstream output is current, so only the uncommitted
	// embed re-runs. Fresh mocks fail the test on any other external call.
	env.reset()
	env.att.On("AttachAudio", mock.Anything, "page-1", "https://cdn.example.com/x.mp3").Return(nil)

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	got := executed(outcome)
	assert.False(t, got[model.StageImport])
	assert.False(t, got[model.StageColorize])
	assert.False(t, got[model.StageTTS])
	assert.False(t, got[model.StageUpload])
	assert.True(t, got[model.StageAddAudio])
	env.att.AssertExpectations(t)
}

func TestRun_DryRunPreviewMatchesRealRunOnFreshDocument(t *testing.T) {
	env := newTestEnv(t, sampleLesson)

	preview, err := env.pipe.Run(context.Background(), model.PublishFlags{
		DocumentPath: env.docPath,
		DryRun:       true,
	})
	require.NoError(t, err)

	// Downstream stages chain off the outputs import and tts would
	// produce, so a fresh document previews every stage as executing.
	previewSet := executed(preview)
	for _, s := range model.StageOrder {
		assert.True(t, previewSet[s], "stage %s should preview as executing", s)
	}

	env.reset()
	env.expectAllWithHash()
	actual, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)
	assert.Equal(t, executed(actual), previewSet)
}

func TestRun_SkipTTSWithChangedDialogueResynthesizes(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.expectAllWithHash()
	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	// Dialogue changed: the skip request must not leave stale audio.
	env.rewrite(sampleLessonNewDialogue)
	env.reset()
	env.expectAllWithHash()

	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{
		DocumentPath: env.docPath,
		SkipTTS:      true,
	})
	require.NoError(t, err)

	got := executed(outcome)
	assert.True(t, got[model.StageTTS])
	assert.True(t, got[model.StageUpload])
	assert.True(t, got[model.StageAddAudio])
	env.synth.AssertNumberOfCalls(t, "Synthesize", 1)
}

func TestRun_SkipTTSWithUnchangedDialogueSkips(t *testing.T) {
	env := newTestEnv(t, sampleLesson)
	env.expectAllWithHash()
	_, err := env.pipe.Run(context.Background(), model.PublishFlags{DocumentPath: env.docPath})
	require.NoError(t, err)

	env.reset()
	outcome, err := env.pipe.Run(context.Background(), model.PublishFlags{
		DocumentPath: env.docPath,
		SkipTTS:      true,
	})
	require.NoError(t, err)
	assert.False(t, executed(outcome)[model.StageTTS])
}
