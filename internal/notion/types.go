package notion

import (
	"encoding/json"
	"time"
)

// Parent types.
const (
	ParentPage      = "page_id"
	ParentDatabase  = "database_id"
	ParentBlock     = "block_id"
	ParentWorkspace = "workspace"
)

// Object types returned by search.
const (
	ObjectPage     = "page"
	ObjectDatabase = "database"
)

// Search sort values.
const (
	SortAscending      = "ascending"
	SortDescending     = "descending"
	SortLastEditedTime = "last_edited_time"
	SortCreatedTime    = "created_time"
)

// Page is a Notion page.
type Page struct {
	ID             string                     `json:"id"`
	Title          string                     `json:"title"`
	ParentType     string                     `json:"parent_type"`
	ParentID       string                     `json:"parent_id,omitempty"`
	Icon           json.RawMessage            `json:"icon,omitempty"`
	Cover          json.RawMessage            `json:"cover,omitempty"`
	Properties     map[string]json.RawMessage `json:"properties,omitempty"`
	URL            string                     `json:"url,omitempty"`
	Archived       bool                       `json:"archived"`
	CreatedTime    *time.Time                 `json:"created_time,omitempty"`
	LastEditedTime *time.Time                 `json:"last_edited_time,omitempty"`
	CreatedBy      string                     `json:"created_by,omitempty"`
	LastEditedBy   string                     `json:"last_edited_by,omitempty"`
}

// PageDraft is the input for creating a page. Without Properties a title
// property is built from Title.
type PageDraft struct {
	ParentType string
	ParentID   string
	Title      string
	Properties map[string]json.RawMessage
	Icon       json.RawMessage
	Cover      json.RawMessage
	Children   []BlockDraft
}

// PageUpdate holds the fields to change on a page. Zero fields are left
// untouched.
type PageUpdate struct {
	Title      string
	Properties map[string]json.RawMessage
	Archived   *bool
	Icon       json.RawMessage
	Cover      json.RawMessage
}

// SearchCriteria narrows a workspace search.
type SearchCriteria struct {
	Query string
	// FilterType restricts results to ObjectPage or ObjectDatabase.
	FilterType    string
	SortDirection string
	SortTimestamp string
	PageSize      int
	StartCursor   string
}

// Database is a Notion database and its property schema.
type Database struct {
	ID             string                     `json:"id"`
	Title          string                     `json:"title"`
	Description    string                     `json:"description,omitempty"`
	Properties     map[string]json.RawMessage `json:"properties,omitempty"`
	ParentType     string                     `json:"parent_type"`
	ParentID       string                     `json:"parent_id,omitempty"`
	Icon           json.RawMessage            `json:"icon,omitempty"`
	Cover          json.RawMessage            `json:"cover,omitempty"`
	URL            string                     `json:"url,omitempty"`
	Archived       bool                       `json:"archived"`
	CreatedTime    *time.Time                 `json:"created_time,omitempty"`
	LastEditedTime *time.Time                 `json:"last_edited_time,omitempty"`
}

// Entry is a page inside a database. Values holds the simplified property
// values keyed by property name.
type Entry struct {
	ID             string                     `json:"id"`
	DatabaseID     string                     `json:"database_id,omitempty"`
	Properties     map[string]json.RawMessage `json:"-"`
	Values         map[string]any             `json:"properties"`
	Icon           json.RawMessage            `json:"icon,omitempty"`
	Cover          json.RawMessage            `json:"cover,omitempty"`
	URL            string                     `json:"url,omitempty"`
	Archived       bool                       `json:"archived"`
	CreatedTime    *time.Time                 `json:"created_time,omitempty"`
	LastEditedTime *time.Time                 `json:"last_edited_time,omitempty"`
	CreatedBy      string                     `json:"created_by,omitempty"`
	LastEditedBy   string                     `json:"last_edited_by,omitempty"`
}

// EntryDraft is the input for adding a database entry. Properties must match
// the database schema.
type EntryDraft struct {
	DatabaseID string
	Properties map[string]json.RawMessage
	Icon       json.RawMessage
	Cover      json.RawMessage
	Children   []BlockDraft
}

// DatabaseQuery selects entries of a database. Filter and Sorts are passed
// through in the Notion filter and sort syntax.
type DatabaseQuery struct {
	DatabaseID  string
	Filter      json.RawMessage
	Sorts       json.RawMessage
	StartCursor string
	PageSize    int
}

// Block is a content block. Text is the plain text of text blocks; the typed
// fields are set only for the block types that carry them.
type Block struct {
	ID              string          `json:"id,omitempty"`
	Type            string          `json:"type"`
	Content         json.RawMessage `json:"-"`
	Text            string          `json:"text,omitempty"`
	Checked         *bool           `json:"checked,omitempty"`
	TableWidth      *int            `json:"table_width,omitempty"`
	HasColumnHeader *bool           `json:"has_column_header,omitempty"`
	HasRowHeader    *bool           `json:"has_row_header,omitempty"`
	Cells           []string        `json:"cells,omitempty"`
	Language        string          `json:"language,omitempty"`
	URL             string          `json:"url,omitempty"`
	Caption         string          `json:"caption,omitempty"`
	HasChildren     bool            `json:"has_children"`
	Children        []Block         `json:"children,omitempty"`
	Archived        bool            `json:"archived,omitempty"`
	CreatedTime     *time.Time      `json:"created_time,omitempty"`
	LastEditedTime  *time.Time      `json:"last_edited_time,omitempty"`
	CreatedBy       string          `json:"created_by,omitempty"`
	LastEditedBy    string          `json:"last_edited_by,omitempty"`
}

// BlockDraft is a block to append. Content is the type specific object, for
// example {"rich_text": [...]} for a paragraph.
type BlockDraft struct {
	Type     string         `json:"type"`
	Content  map[string]any `json:"content,omitempty"`
	Children []BlockDraft   `json:"children,omitempty"`
}

// Cursor continues a paginated list.
type Cursor struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}
