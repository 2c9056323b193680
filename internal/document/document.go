// Package document loads and analyzes markdown lesson documents: title
// extraction, speaker-tagged dialogue lines, structural validation, and
// the content hashes the pipeline uses for change detection.
package document

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"

	"github.com/tutorlane/lesson-cli/internal/model"
)

// speakerLine matches "Name: spoken text" at the start of a dialogue
// line. The speaker tag may be bolded in the source; emphasis markers are
// stripped before matching.
var speakerLine = regexp.MustCompile(`^([\p{L}][\p{L}\p{N} .'-]{0,40}):\s+(.+)$`)

// Load reads and parses the lesson document at path.
func Load(path string) (*model.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "document: read %s", path)
	}
	doc := Parse(string(raw))
	doc.Path = path
	doc.ID = IDFromPath(path)
	return doc, nil
}

// Parse analyzes markdown content without touching the filesystem.
func Parse(content string) *model.Document {
	doc := &model.Document{
		Content:     content,
		ContentHash: ContentHash(content),
	}

	src := []byte(content)
	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(src))

	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			if node.Level == 1 && doc.Title == "" {
				doc.Title = strings.TrimSpace(nodeText(node, src))
			}
		case *gmast.Paragraph:
			for _, line := range strings.Split(nodeText(node, src), "\n") {
				if sp, ok := ParseSpeakerLine(line); ok {
					doc.SpeakerLines = append(doc.SpeakerLines, sp)
				}
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})

	doc.AudioInputHash = AudioInputHash(doc.SpeakerLines)
	return doc
}

// IDFromPath derives the stable document identity used to key the
// manifest: the NFC-normalized base path with the extension stripped.
func IDFromPath(path string) string {
	base := filepath.ToSlash(filepath.Clean(path))
	base = strings.TrimPrefix(base, "./")
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return norm.NFC.String(base)
}

// ParseSpeakerLine extracts a speaker-tagged dialogue line, tolerating
// bold markers around the speaker tag.
func ParseSpeakerLine(line string) (model.SpeakerLine, bool) {
	trimmed := strings.TrimSpace(line)
	// Strip bold/emphasis markers around the speaker tag.
	trimmed = strings.ReplaceAll(trimmed, "**", "")
	trimmed = strings.TrimPrefix(trimmed, "__")

	m := speakerLine.FindStringSubmatch(trimmed)
	if m == nil {
		return model.SpeakerLine{}, false
	}
	return model.SpeakerLine{
		Speaker: strings.TrimSpace(m[1]),
		Text:    strings.TrimSpace(m[2]),
	}, true
}

// nodeText collects the source text covered by a block node's lines.
func nodeText(n gmast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}
