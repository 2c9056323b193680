package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tutorlane/lesson-cli/internal/document"
	"github.com/tutorlane/lesson-cli/internal/model"
)

// Rerun re-executes exactly the requested stages, reusing the manifest's
// recorded outputs for everything else. Prerequisites are checked against
// the manifest up front so a doomed rerun fails before any external call.
func (p *Pipeline) Rerun(ctx context.Context, flags model.RerunFlags) (*model.RunOutcome, error) {
	if len(flags.Steps) == 0 {
		return nil, model.NewConfigurationError("", eris.New("no stages requested"))
	}

	selected := make(map[model.Stage]bool, len(flags.Steps))
	for _, s := range flags.Steps {
		if _, ok := model.ParseStage(string(s)); !ok {
			return nil, model.NewConfigurationError("", eris.Errorf("unknown stage %q", s))
		}
		selected[s] = true
	}

	doc, err := document.Load(flags.DocumentPath)
	if err != nil {
		return nil, model.NewConfigurationError("", err)
	}

	man, err := p.loadManifest(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	if err := checkRerunPrereqs(man, selected); err != nil {
		return nil, err
	}

	return p.execute(ctx, doc, man, flags.PublishFlags, selected)
}

// checkRerunPrereqs rejects stage selections whose inputs neither exist
// in the manifest nor will be produced by an earlier requested stage.
func checkRerunPrereqs(man *model.Manifest, selected map[model.Stage]bool) error {
	if selected[model.StageColorize] && man.Page == nil && !selected[model.StageImport] {
		return model.NewConfigurationError(model.StageColorize,
			eris.New("colorize requires an imported page; rerun import first or include it"))
	}
	if selected[model.StageUpload] && man.Audio == nil && !selected[model.StageTTS] {
		return model.NewConfigurationError(model.StageUpload,
			eris.New("upload requires synthesized audio; rerun tts first or include it"))
	}
	if selected[model.StageAddAudio] {
		if man.Page == nil && !selected[model.StageImport] {
			return model.NewConfigurationError(model.StageAddAudio,
				eris.New("add-audio requires an imported page"))
		}
		if man.Upload == nil && !selected[model.StageUpload] {
			return model.NewConfigurationError(model.StageAddAudio,
				eris.New("add-audio requires uploaded audio; include upload in the rerun"))
		}
	}
	return nil
}
