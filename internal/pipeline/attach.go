package pipeline

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tutorlane/lesson-cli/pkg/notion"
)

// NotionAttacher embeds hosted audio into a lesson page. A stale audio
// embed from a previous run is removed first so the page never carries
// two players.
type NotionAttacher struct {
	client notion.Client
}

// NewNotionAttacher returns an Attacher backed by the Notion API.
func NewNotionAttacher(client notion.Client) *NotionAttacher {
	return &NotionAttacher{client: client}
}

func (a *NotionAttacher) AttachAudio(ctx context.Context, pageID, audioURL string) error {
	blocks, err := notion.AllBlockChildren(ctx, a.client, pageID)
	if err != nil {
		return eris.Wrap(err, "attach: list blocks")
	}

	removed := 0
	for _, block := range blocks {
		if !notion.IsAudioBlock(block) {
			continue
		}
		if _, err := a.client.DeleteBlock(ctx, string(block.GetID())); err != nil {
			return eris.Wrapf(err, "attach: remove stale audio %s", block.GetID())
		}
		removed++
	}

	if _, err := a.client.AppendBlocks(ctx, pageID, []notionapi.Block{notion.Audio(audioURL)}); err != nil {
		return eris.Wrap(err, "attach: append audio")
	}

	zap.L().Debug("audio attached",
		zap.String("page_id", pageID),
		zap.Int("stale_removed", removed),
	)
	return nil
}
