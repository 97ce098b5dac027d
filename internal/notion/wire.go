package notion

import "encoding/json"

// RichText is one element of a rich text array.
type RichText struct {
	Type        string       `json:"type,omitempty"`
	PlainText   string       `json:"plain_text,omitempty"`
	Text        *TextContent `json:"text,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Href        string       `json:"href,omitempty"`
}

// TextContent is the payload of a "text" rich text element.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

type Link struct {
	URL string `json:"url"`
}

// Annotations are rich text styles. Only set styles are sent.
type Annotations struct {
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Code          bool   `json:"code,omitempty"`
	Color         string `json:"color,omitempty"`
}

type User struct {
	ID string `json:"id"`
}

// Parent is the parent reference of a page, database or block.
type Parent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// Object is a page or database as returned by the API.
type Object struct {
	Object         string                     `json:"object"`
	ID             string                     `json:"id"`
	CreatedTime    string                     `json:"created_time"`
	LastEditedTime string                     `json:"last_edited_time"`
	CreatedBy      User                       `json:"created_by"`
	LastEditedBy   User                       `json:"last_edited_by"`
	Parent         Parent                     `json:"parent"`
	Icon           json.RawMessage            `json:"icon"`
	Cover          json.RawMessage            `json:"cover"`
	Properties     map[string]json.RawMessage `json:"properties"`
	// Title and Description are set on databases only.
	Title       []RichText `json:"title"`
	Description []RichText `json:"description"`
	URL         string     `json:"url"`
	Archived    bool       `json:"archived"`
}

// BlockObject is a block as returned by the API. Content holds the object
// stored under the block's type key.
type BlockObject struct {
	Object         string          `json:"object"`
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	HasChildren    bool            `json:"has_children"`
	Archived       bool            `json:"archived"`
	CreatedTime    string          `json:"created_time"`
	LastEditedTime string          `json:"last_edited_time"`
	CreatedBy      User            `json:"created_by"`
	LastEditedBy   User            `json:"last_edited_by"`
	Content        json.RawMessage `json:"-"`
}

func (b *BlockObject) UnmarshalJSON(data []byte) error {
	type plain BlockObject
	if err := json.Unmarshal(data, (*plain)(b)); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	b.Content = fields[b.Type]
	return nil
}

// List is a paginated list response.
type List[T any] struct {
	Object     string  `json:"object"`
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

func (l *List[T]) cursor() Cursor {
	c := Cursor{HasMore: l.HasMore}
	if l.NextCursor != nil {
		c.NextCursor = *l.NextCursor
	}
	return c
}

// BlockBody is a block in request form: {"type": t, t: {...}}.
type BlockBody map[string]any

// PageBody is the body of pages.create.
type PageBody struct {
	Parent     Parent                     `json:"parent"`
	Properties map[string]json.RawMessage `json:"properties"`
	Icon       json.RawMessage            `json:"icon,omitempty"`
	Cover      json.RawMessage            `json:"cover,omitempty"`
	Children   []BlockBody                `json:"children,omitempty"`
}

// PagePatch is the body of pages.update.
type PagePatch struct {
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
	Archived   *bool                      `json:"archived,omitempty"`
	Icon       json.RawMessage            `json:"icon,omitempty"`
	Cover      json.RawMessage            `json:"cover,omitempty"`
}

// SearchBody is the body of search.
type SearchBody struct {
	Query       string        `json:"query,omitempty"`
	Filter      *SearchFilter `json:"filter,omitempty"`
	Sort        SearchSort    `json:"sort"`
	PageSize    int           `json:"page_size"`
	StartCursor string        `json:"start_cursor,omitempty"`
}

type SearchFilter struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

type SearchSort struct {
	Direction string `json:"direction"`
	Timestamp string `json:"timestamp"`
}

// QueryBody is the body of databases.query.
type QueryBody struct {
	Filter      json.RawMessage `json:"filter,omitempty"`
	Sorts       json.RawMessage `json:"sorts,omitempty"`
	StartCursor string          `json:"start_cursor,omitempty"`
	PageSize    int             `json:"page_size"`
}
