package pipeline

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tutorlane/lesson-cli/internal/document"
	"github.com/tutorlane/lesson-cli/internal/model"
	"github.com/tutorlane/lesson-cli/pkg/notion"
)

// Notion caps children per append call.
const maxBlocksPerAppend = 100

// NotionImporter creates lesson pages in a Notion database.
type NotionImporter struct {
	client notion.Client
}

// NewNotionImporter returns an Importer backed by the Notion API.
func NewNotionImporter(client notion.Client) *NotionImporter {
	return &NotionImporter{client: client}
}

func (i *NotionImporter) CreatePage(ctx context.Context, doc *model.Document, databaseID string) (*model.PageRecord, error) {
	title := doc.Title
	if title == "" {
		title = doc.ID
	}

	blocks := blocksFromDocument(doc)

	first := blocks
	rest := []notionapi.Block(nil)
	if len(blocks) > maxBlocksPerAppend {
		first = blocks[:maxBlocksPerAppend]
		rest = blocks[maxBlocksPerAppend:]
	}

	page, err := i.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: notion.TitleProperty(title),
		Children:   first,
	})
	if err != nil {
		return nil, eris.Wrap(err, "import: create page")
	}

	for len(rest) > 0 {
		chunk := rest
		if len(chunk) > maxBlocksPerAppend {
			chunk = chunk[:maxBlocksPerAppend]
		}
		if _, err := i.client.AppendBlocks(ctx, string(page.ID), chunk); err != nil {
			return nil, eris.Wrap(err, "import: append blocks")
		}
		rest = rest[len(chunk):]
	}

	zap.L().Debug("page created",
		zap.String("page_id", string(page.ID)),
		zap.Int("blocks", len(blocks)),
	)

	return &model.PageRecord{ID: string(page.ID), URL: page.URL}, nil
}

// blocksFromDocument renders the markdown body as Notion blocks. The
// top-level title becomes the page title, not a block.
func blocksFromDocument(doc *model.Document) []notionapi.Block {
	var blocks []notionapi.Block

	sawTitle := false
	for _, line := range strings.Split(doc.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "# "):
			if !sawTitle {
				sawTitle = true
				continue
			}
			blocks = append(blocks, notion.Heading(1, strings.TrimPrefix(trimmed, "# ")))
		case strings.HasPrefix(trimmed, "## "):
			blocks = append(blocks, notion.Heading(2, strings.TrimPrefix(trimmed, "## ")))
		case strings.HasPrefix(trimmed, "### "):
			blocks = append(blocks, notion.Heading(3, strings.TrimPrefix(trimmed, "### ")))
		case trimmed == "---" || trimmed == "***":
			blocks = append(blocks, notion.Divider())
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			blocks = append(blocks, notion.BulletedItem(strings.TrimSpace(trimmed[2:])))
		default:
			if sp, ok := document.ParseSpeakerLine(trimmed); ok {
				blocks = append(blocks, notion.SpeakerParagraph(sp.Speaker, sp.Text))
				continue
			}
			blocks = append(blocks, notion.Paragraph(trimmed))
		}
	}
	return blocks
}
