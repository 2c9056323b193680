package config

import (
	"context"
	"os"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tutorlane/lesson-cli/internal/model"
	"github.com/tutorlane/lesson-cli/pkg/notion"
)

// Provider resolves auxiliary resources: formatting presets, voice maps,
// and student profiles. Missing optional resources degrade to empty
// defaults; only explicitly configured but unresolvable paths are errors.
type Provider struct {
	cfg    *Config
	notion notion.Client
}

// NewProvider builds a Provider. notionClient may be nil, in which case
// student profiles come only from the YAML fallback file.
func NewProvider(cfg *Config, notionClient notion.Client) *Provider {
	return &Provider{cfg: cfg, notion: notionClient}
}

// presetsFile is the on-disk shape of the presets resource.
type presetsFile struct {
	Presets model.PresetMap `yaml:"presets"`
}

// LoadPresets loads the named formatting presets from YAML. An absent
// file yields an empty map so the pipeline can fall back to defaults.
func (p *Provider) LoadPresets() (model.PresetMap, error) {
	path := p.cfg.Resources.PresetsPath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Debug("presets file absent, using empty defaults", zap.String("path", path))
			return model.PresetMap{}, nil
		}
		return nil, model.NewConfigurationError("", eris.Wrapf(err, "config: read presets %s", path))
	}

	var f presetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, model.NewConfigurationError("", eris.Wrapf(err, "config: parse presets %s", path))
	}
	if f.Presets == nil {
		f.Presets = model.PresetMap{}
	}
	return f.Presets, nil
}

// voicesFile is the on-disk shape of the voice map resource.
type voicesFile struct {
	Voices model.VoiceMap `yaml:"voices"`
}

// LoadVoices loads the speaker-to-voice routing map from YAML. An absent
// file yields an empty map; synthesis then uses the service default voice.
func (p *Provider) LoadVoices() (model.VoiceMap, error) {
	path, err := p.ResolveVoicesPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return model.VoiceMap{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewConfigurationError("", eris.Wrapf(err, "config: read voices %s", path))
	}

	var f voicesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, model.NewConfigurationError("", eris.Wrapf(err, "config: parse voices %s", path))
	}
	if f.Voices == nil {
		f.Voices = model.VoiceMap{}
	}
	return f.Voices, nil
}

// ResolveVoicesPath returns the voice map path to use, or "" when the
// default path does not exist. An explicitly overridden path that is
// missing is a configuration error rather than a silent fallback.
func (p *Provider) ResolveVoicesPath() (string, error) {
	path := p.cfg.Resources.VoicesPath
	if path == "" {
		return "", nil
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return "", model.NewConfigurationError("", eris.Wrapf(err, "config: stat voices %s", path))
		}
		if os.Getenv("LESSON_RESOURCES_VOICES_PATH") != "" {
			return "", model.NewConfigurationError("", eris.Errorf("config: voices file %s not found", path))
		}
		return "", nil
	}
	return path, nil
}

// profilesFile is the on-disk shape of the student profiles fallback.
type profilesFile struct {
	Profiles []model.StudentProfile `yaml:"profiles"`
}

// LoadStudentProfiles resolves student profiles, keyed by subject. The
// Notion profile database is authoritative when configured; otherwise
// the YAML fallback file is used, and an absent fallback yields an
// empty map.
func (p *Provider) LoadStudentProfiles(ctx context.Context) (map[string]model.StudentProfile, error) {
	if p.notion != nil && p.cfg.Notion.ProfileDB != "" {
		profiles, err := p.profilesFromNotion(ctx)
		if err != nil {
			return nil, err
		}
		return profiles, nil
	}
	return p.profilesFromYAML()
}

func (p *Provider) profilesFromYAML() (map[string]model.StudentProfile, error) {
	path := p.cfg.Resources.ProfilesPath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Debug("profiles file absent, using empty defaults", zap.String("path", path))
			return map[string]model.StudentProfile{}, nil
		}
		return nil, model.NewConfigurationError("", eris.Wrapf(err, "config: read profiles %s", path))
	}

	var f profilesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, model.NewConfigurationError("", eris.Wrapf(err, "config: parse profiles %s", path))
	}

	out := make(map[string]model.StudentProfile, len(f.Profiles))
	for _, prof := range f.Profiles {
		if prof.Subject == "" {
			zap.L().Warn("skipping profile with empty subject")
			continue
		}
		out[strings.ToLower(prof.Subject)] = prof
	}
	return out, nil
}

func (p *Provider) profilesFromNotion(ctx context.Context) (map[string]model.StudentProfile, error) {
	pages, err := notion.QueryAll(ctx, p.notion, p.cfg.Notion.ProfileDB, nil)
	if err != nil {
		return nil, eris.Wrap(err, "config: query profile database")
	}

	out := make(map[string]model.StudentProfile, len(pages))
	for _, page := range pages {
		prof, ok := profileFromPage(page)
		if !ok {
			zap.L().Warn("skipping malformed profile page", zap.String("page_id", string(page.ID)))
			continue
		}
		out[strings.ToLower(prof.Subject)] = prof
	}
	return out, nil
}

// profileFromPage extracts a StudentProfile from a Notion page's
// properties. Pages without a subject title are rejected.
func profileFromPage(page notionapi.Page) (model.StudentProfile, bool) {
	var prof model.StudentProfile

	for name, prop := range page.Properties {
		switch p := prop.(type) {
		case *notionapi.TitleProperty:
			prof.Subject = plainText(p.Title)
		case *notionapi.RichTextProperty:
			switch name {
			case "Database ID":
				prof.DatabaseID = plainText(p.RichText)
			case "Accent":
				prof.Accent = plainText(p.RichText)
			}
		case *notionapi.SelectProperty:
			switch name {
			case "Preset":
				prof.Preset = p.Select.Name
			case "Voice":
				prof.Voice = p.Select.Name
			}
		}
	}

	if prof.Subject == "" {
		return model.StudentProfile{}, false
	}
	return prof, true
}

// plainText concatenates the plain text of a rich-text array.
func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(b.String())
}
