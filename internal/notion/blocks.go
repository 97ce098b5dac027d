package notion

import (
	"fmt"
	"strings"

	"github.com/teemow/connectorhub/internal/connector"
)

// MaxAppendBlocks is the API limit of blocks per append request.
const MaxAppendBlocks = 100

func richContent(text string, extra map[string]any) map[string]any {
	c := map[string]any{"rich_text": Text(text)}
	for k, v := range extra {
		c[k] = v
	}
	return c
}

// Heading builds a heading of level 1 to 3.
func Heading(text string, level int) (BlockDraft, error) {
	if level < 1 || level > 3 {
		return BlockDraft{}, connector.Invalidf("heading level must be 1, 2 or 3")
	}
	return BlockDraft{Type: fmt.Sprintf("heading_%d", level), Content: richContent(text, nil)}, nil
}

func Paragraph(text string) BlockDraft {
	return BlockDraft{Type: "paragraph", Content: richContent(text, nil)}
}

func BulletedItem(text string) BlockDraft {
	return BlockDraft{Type: "bulleted_list_item", Content: richContent(text, nil)}
}

func NumberedItem(text string) BlockDraft {
	return BlockDraft{Type: "numbered_list_item", Content: richContent(text, nil)}
}

func ToDo(text string, checked bool) BlockDraft {
	return BlockDraft{Type: "to_do", Content: richContent(text, map[string]any{"checked": checked})}
}

func Toggle(text string, children ...BlockDraft) BlockDraft {
	return BlockDraft{Type: "toggle", Content: richContent(text, nil), Children: children}
}

func Quote(text string) BlockDraft {
	return BlockDraft{Type: "quote", Content: richContent(text, nil)}
}

// Callout builds a callout with an emoji icon, "💡" when empty.
func Callout(text, emoji string) BlockDraft {
	if emoji == "" {
		emoji = "💡"
	}
	return BlockDraft{Type: "callout", Content: richContent(text, map[string]any{
		"icon": map[string]any{"type": "emoji", "emoji": emoji},
	})}
}

// Code builds a code block, "plain text" when language is empty.
func Code(text, language string) BlockDraft {
	if language == "" {
		language = "plain text"
	}
	return BlockDraft{Type: "code", Content: richContent(text, map[string]any{"language": language})}
}

func Divider() BlockDraft {
	return BlockDraft{Type: "divider", Content: map[string]any{}}
}

func TableOfContents() BlockDraft {
	return BlockDraft{Type: "table_of_contents", Content: map[string]any{}}
}

func Bookmark(url, caption string) BlockDraft {
	c := map[string]any{"url": url}
	if caption != "" {
		c["caption"] = Text(caption)
	}
	return BlockDraft{Type: "bookmark", Content: c}
}

// Image builds an image block from an external URL.
func Image(url, caption string) BlockDraft {
	c := map[string]any{"type": "external", "external": map[string]any{"url": url}}
	if caption != "" {
		c["caption"] = Text(caption)
	}
	return BlockDraft{Type: "image", Content: c}
}

// BlockSpec is the tool-facing form of a block. Common types are built from
// Text and the type specific fields; Content, when set, is used verbatim.
type BlockSpec struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	Level    int            `json:"level,omitempty"`
	Checked  bool           `json:"checked,omitempty"`
	Language string         `json:"language,omitempty"`
	URL      string         `json:"url,omitempty"`
	Caption  string         `json:"caption,omitempty"`
	Icon     string         `json:"icon,omitempty"`
	Content  map[string]any `json:"content,omitempty"`
	Children []BlockSpec    `json:"children,omitempty"`
}

// Draft converts s into a block draft.
func (s BlockSpec) Draft() (BlockDraft, error) {
	children := make([]BlockDraft, 0, len(s.Children))
	for _, c := range s.Children {
		d, err := c.Draft()
		if err != nil {
			return BlockDraft{}, err
		}
		children = append(children, d)
	}
	typ := strings.TrimSpace(s.Type)
	if typ == "" {
		typ = "paragraph"
	}
	if s.Content != nil {
		return BlockDraft{Type: typ, Content: s.Content, Children: children}, nil
	}

	var d BlockDraft
	switch typ {
	case "heading", "heading_1", "heading_2", "heading_3":
		level := s.Level
		if strings.HasPrefix(typ, "heading_") {
			level = int(typ[len(typ)-1] - '0')
		}
		if level == 0 {
			level = 1
		}
		var err error
		if d, err = Heading(s.Text, level); err != nil {
			return BlockDraft{}, err
		}
	case "paragraph":
		d = Paragraph(s.Text)
	case "bulleted_list_item":
		d = BulletedItem(s.Text)
	case "numbered_list_item":
		d = NumberedItem(s.Text)
	case "to_do":
		d = ToDo(s.Text, s.Checked)
	case "toggle":
		d = Toggle(s.Text)
	case "quote":
		d = Quote(s.Text)
	case "callout":
		d = Callout(s.Text, s.Icon)
	case "code":
		d = Code(s.Text, s.Language)
	case "divider":
		d = Divider()
	case "table_of_contents":
		d = TableOfContents()
	case "bookmark", "image":
		if s.URL == "" {
			return BlockDraft{}, connector.Required(typ + " url")
		}
		if typ == "bookmark" {
			d = Bookmark(s.URL, s.Caption)
		} else {
			d = Image(s.URL, s.Caption)
		}
	default:
		return BlockDraft{}, connector.Invalidf("block type %q needs an explicit content object", typ)
	}
	if len(children) > 0 {
		d.Children = children
	}
	return d, nil
}

// Drafts converts a list of specs.
func Drafts(specs []BlockSpec) ([]BlockDraft, error) {
	out := make([]BlockDraft, 0, len(specs))
	for i, s := range specs {
		d, err := s.Draft()
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
