package notion

import (
	"github.com/jomei/notionapi"
)

// notionapi defines AudioBlock but ships no BlockType constant for it.
const blockTypeAudio = notionapi.BlockType("audio")

// Text returns a plain rich-text fragment.
func Text(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

// BoldText returns a bold rich-text fragment.
func BoldText(s string) notionapi.RichText {
	rt := Text(s)
	rt.Annotations = &notionapi.Annotations{Bold: true}
	return rt
}

// Heading returns a heading block for levels 1-3; deeper levels collapse
// to level 3, which is the deepest Notion supports.
func Heading(level int, text string) notionapi.Block {
	rt := []notionapi.RichText{Text(text)}
	switch {
	case level <= 1:
		return &notionapi.Heading1Block{
			BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeHeading1},
			Heading1:   notionapi.Heading{RichText: rt},
		}
	case level == 2:
		return &notionapi.Heading2Block{
			BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeHeading2},
			Heading2:   notionapi.Heading{RichText: rt},
		}
	default:
		return &notionapi.Heading3Block{
			BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeHeading3},
			Heading3:   notionapi.Heading{RichText: rt},
		}
	}
}

// Paragraph returns a plain paragraph block.
func Paragraph(text string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeParagraph},
		Paragraph:  notionapi.Paragraph{RichText: []notionapi.RichText{Text(text)}},
	}
}

// SpeakerParagraph returns a dialogue paragraph with the speaker tag in
// bold followed by the spoken text.
func SpeakerParagraph(speaker, text string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeParagraph},
		Paragraph: notionapi.Paragraph{
			RichText: []notionapi.RichText{
				BoldText(speaker + ": "),
				Text(text),
			},
		},
	}
}

// BulletedItem returns a bulleted list item block.
func BulletedItem(text string) notionapi.Block {
	return &notionapi.BulletedListItemBlock{
		BasicBlock:       notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeBulletedListItem},
		BulletedListItem: notionapi.ListItem{RichText: []notionapi.RichText{Text(text)}},
	}
}

// Divider returns a divider block.
func Divider() notionapi.Block {
	return &notionapi.DividerBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeDivider},
		Divider:    notionapi.Divider{},
	}
}

// Audio returns an audio block referencing an externally hosted file.
func Audio(url string) notionapi.Block {
	return &notionapi.AudioBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: blockTypeAudio},
		Audio: notionapi.Audio{
			Type:     notionapi.FileTypeExternal,
			External: &notionapi.FileObject{URL: url},
		},
	}
}

// IsAudioBlock reports whether b is an audio block.
func IsAudioBlock(b notionapi.Block) bool {
	_, ok := b.(*notionapi.AudioBlock)
	return ok
}

// TitleProperty builds the title property for page creation.
func TitleProperty(title string) notionapi.Properties {
	return notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{Text(title)},
		},
	}
}

// ParagraphColor returns a copy of the paragraph payload from block with
// the given color applied, or nil if block is not a paragraph.
func ParagraphColor(block notionapi.Block, color notionapi.Color) *notionapi.Paragraph {
	pb, ok := block.(*notionapi.ParagraphBlock)
	if !ok {
		return nil
	}
	p := pb.Paragraph
	p.Color = string(color)
	return &p
}
