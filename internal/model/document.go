package model

// Document is the resolved source content unit being published.
type Document struct {
	// Path is the original filesystem path of the lesson document.
	Path string `json:"path"`
	// ID is the normalized document identity used to key the manifest.
	ID string `json:"id"`
	// Title is extracted from the first top-level heading, if any.
	Title string `json:"title,omitempty"`
	// Content is the raw markdown source.
	Content string `json:"content"`
	// ContentHash is the sha256 of Content; empty if extraction failed
	// softly, which the orchestrator treats as "changed".
	ContentHash string `json:"content_hash,omitempty"`
	// SpeakerLines are the speaker-tagged dialogue lines that drive
	// speech synthesis, in document order.
	SpeakerLines []SpeakerLine `json:"speaker_lines,omitempty"`
	// AudioInputHash is the sha256 over exactly the speaker-tagged lines,
	// so unrelated edits elsewhere do not invalidate cached audio.
	AudioInputHash string `json:"audio_input_hash,omitempty"`
}

// SpeakerLine is one dialogue line attributed to a named speaker.
type SpeakerLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// StudentProfile carries per-subject routing info resolved by the
// config provider.
type StudentProfile struct {
	Subject    string `json:"subject" yaml:"subject"`
	DatabaseID string `json:"database_id" yaml:"database_id"`
	Preset     string `json:"preset,omitempty" yaml:"preset,omitempty"`
	Voice      string `json:"voice,omitempty" yaml:"voice,omitempty"`
	Accent     string `json:"accent,omitempty" yaml:"accent,omitempty"`
}

// PresetMap holds named formatting presets.
type PresetMap map[string]Preset

// Preset is one named formatting configuration applied during colorize.
type Preset struct {
	Name       string            `json:"name" yaml:"name"`
	Colors     map[string]string `json:"colors,omitempty" yaml:"colors,omitempty"`
	BoldTerms  bool              `json:"bold_terms,omitempty" yaml:"bold_terms,omitempty"`
	Highlight  string            `json:"highlight,omitempty" yaml:"highlight,omitempty"`
	HeadingHue string            `json:"heading_hue,omitempty" yaml:"heading_hue,omitempty"`
}

// VoiceMap routes speaker names to synthesis voices.
type VoiceMap map[string]VoiceSpec

// VoiceSpec selects a synthesis voice for one speaker.
type VoiceSpec struct {
	Voice  string  `json:"voice" yaml:"voice"`
	Accent string  `json:"accent,omitempty" yaml:"accent,omitempty"`
	Speed  float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
}
