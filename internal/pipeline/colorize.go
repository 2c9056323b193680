package pipeline

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tutorlane/lesson-cli/internal/model"
	"github.com/tutorlane/lesson-cli/pkg/notion"
)

// NotionColorizer restyles dialogue paragraphs on an imported page
// according to a formatting preset.
type NotionColorizer struct {
	client notion.Client
}

// NewNotionColorizer returns a Colorizer backed by the Notion API.
func NewNotionColorizer(client notion.Client) *NotionColorizer {
	return &NotionColorizer{client: client}
}

func (c *NotionColorizer) Colorize(ctx context.Context, pageID string, preset model.Preset) (int, error) {
	blocks, err := notion.AllBlockChildren(ctx, c.client, pageID)
	if err != nil {
		return 0, eris.Wrap(err, "colorize: list blocks")
	}

	recolored := 0
	for _, block := range blocks {
		speaker, ok := speakerOf(block)
		if !ok {
			continue
		}

		color := preset.Colors[speaker]
		if color == "" {
			color = preset.Highlight
		}
		if color == "" {
			continue
		}

		paragraph := notion.ParagraphColor(block, notionapi.Color(color))
		if paragraph == nil {
			continue
		}
		if _, err := c.client.UpdateBlock(ctx, string(block.GetID()), &notionapi.BlockUpdateRequest{
			Paragraph: paragraph,
		}); err != nil {
			return recolored, eris.Wrapf(err, "colorize: update block %s", block.GetID())
		}
		recolored++
	}

	zap.L().Debug("page colorized",
		zap.String("page_id", pageID),
		zap.String("preset", preset.Name),
		zap.Int("recolored", recolored),
	)
	return recolored, nil
}

// speakerOf returns the speaker tag of a dialogue paragraph: a paragraph
// whose first rich-text fragment is bold and ends with ": ".
func speakerOf(block notionapi.Block) (string, bool) {
	pb, ok := block.(*notionapi.ParagraphBlock)
	if !ok || len(pb.Paragraph.RichText) == 0 {
		return "", false
	}
	first := pb.Paragraph.RichText[0]
	if first.Annotations == nil || !first.Annotations.Bold || first.Text == nil {
		return "", false
	}
	tag := strings.TrimSpace(first.Text.Content)
	if !strings.HasSuffix(tag, ":") {
		return "", false
	}
	return strings.TrimSuffix(tag, ":"), true
}
