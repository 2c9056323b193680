package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tutorlane/lesson-cli/internal/model"
)

// ValidationReport is the outcome of structural validation. Errors make
// the document unpublishable; warnings do not.
type ValidationReport struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validator checks a parsed lesson document against structural rules.
type Validator struct {
	// MaxLineRunes caps a single dialogue line; longer lines tend to be
	// paste accidents and break synthesis pacing.
	MaxLineRunes int
}

// NewValidator returns a Validator with default limits.
func NewValidator() *Validator {
	return &Validator{MaxLineRunes: 600}
}

// Validate applies the structural rules and returns a report.
func (v *Validator) Validate(doc *model.Document) *ValidationReport {
	rep := &ValidationReport{}

	if strings.TrimSpace(doc.Content) == "" {
		rep.Errors = append(rep.Errors, "document is empty")
	}
	if doc.Title == "" {
		rep.Errors = append(rep.Errors, "missing top-level title heading")
	}
	if len(doc.SpeakerLines) == 0 {
		rep.Warnings = append(rep.Warnings, "no speaker-tagged lines found; audio stages will be skipped")
	}

	for i, line := range doc.SpeakerLines {
		if strings.TrimSpace(line.Text) == "" {
			rep.Errors = append(rep.Errors, fmt.Sprintf("speaker line %d (%s) has empty text", i+1, line.Speaker))
		}
		if v.MaxLineRunes > 0 && utf8.RuneCountInString(line.Text) > v.MaxLineRunes {
			rep.Errors = append(rep.Errors, fmt.Sprintf("speaker line %d (%s) exceeds %d characters", i+1, line.Speaker, v.MaxLineRunes))
		}
	}

	if n := countSpeakers(doc.SpeakerLines); n == 1 && len(doc.SpeakerLines) > 1 {
		rep.Warnings = append(rep.Warnings, "all dialogue lines belong to a single speaker")
	}

	rep.OK = len(rep.Errors) == 0
	return rep
}

func countSpeakers(lines []model.SpeakerLine) int {
	seen := make(map[string]struct{}, 2)
	for _, l := range lines {
		seen[l.Speaker] = struct{}{}
	}
	return len(seen)
}
