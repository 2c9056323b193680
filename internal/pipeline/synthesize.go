package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tutorlane/lesson-cli/internal/model"
	"github.com/tutorlane/lesson-cli/pkg/speech"
)

// SpeechSynthesizer renders dialogue through the speech API, routing each
// speaker to a voice from the voice map.
type SpeechSynthesizer struct {
	client speech.Client
	mode   string
}

// NewSpeechSynthesizer returns a Synthesizer backed by the speech API.
// mode selects the synthesis profile; empty means "dialogue".
func NewSpeechSynthesizer(client speech.Client, mode string) *SpeechSynthesizer {
	if mode == "" {
		mode = "dialogue"
	}
	return &SpeechSynthesizer{client: client, mode: mode}
}

func (s *SpeechSynthesizer) Synthesize(ctx context.Context, doc *model.Document, voices model.VoiceMap, outputPath string) (*model.AudioRecord, error) {
	lines := make([]speech.Line, 0, len(doc.SpeakerLines))
	primaryVoice := ""
	for _, sl := range doc.SpeakerLines {
		spec := voices[sl.Speaker]
		if primaryVoice == "" && spec.Voice != "" {
			primaryVoice = spec.Voice
		}
		lines = append(lines, speech.Line{
			Speaker: sl.Speaker,
			Text:    sl.Text,
			Voice:   spec.Voice,
			Accent:  spec.Accent,
			Speed:   spec.Speed,
		})
	}

	res, err := s.client.Synthesize(ctx, speech.SynthesisRequest{
		Lines:      lines,
		Mode:       s.mode,
		OutputPath: outputPath,
	})
	if err != nil {
		return nil, eris.Wrap(err, "tts: synthesize")
	}

	return &model.AudioRecord{
		LocalPath: res.LocalPath,
		Hash:      doc.AudioInputHash,
		Duration:  res.Duration,
		Mode:      s.mode,
		Voice:     primaryVoice,
	}, nil
}
