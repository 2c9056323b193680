package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/tutorlane/lesson-cli/internal/model"
)

// ContentHash returns the sha256 hex digest of the whole document source.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// AudioInputHash hashes exactly the text that drives speech synthesis:
// the speaker-tagged lines, in order. Edits elsewhere in the document do
// not change this hash, so cached audio stays valid. Returns "" when the
// document has no dialogue.
func AudioInputHash(lines []model.SpeakerLine) string {
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Speaker)
		sb.WriteByte('\t')
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
