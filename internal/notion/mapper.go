package notion

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/teemow/connectorhub/internal/connector"
)

// Page sizes accepted by list endpoints.
const (
	DefaultPageSize = 100
	MaxPageSize     = 100
)

// property is the part of a property value the mapper reads.
type property struct {
	Type        string     `json:"type"`
	Title       []RichText `json:"title"`
	RichText    []RichText `json:"rich_text"`
	Number      *float64   `json:"number"`
	Select      *option    `json:"select"`
	Status      *option    `json:"status"`
	MultiSelect []option   `json:"multi_select"`
	Date        *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"date"`
	Checkbox    bool    `json:"checkbox"`
	URL         *string `json:"url"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
}

type option struct {
	Name string `json:"name"`
}

// PlainText concatenates the plain text of a rich text array. Elements built
// locally carry text.content instead of plain_text.
func PlainText(rt []RichText) string {
	var b strings.Builder
	for _, r := range rt {
		switch {
		case r.PlainText != "":
			b.WriteString(r.PlainText)
		case r.Text != nil:
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

// Text returns a single element rich text array.
func Text(s string) []RichText {
	return []RichText{{Type: "text", Text: &TextContent{Content: s}}}
}

// TitleProperty is the value of a title property set to s.
func TitleProperty(s string) json.RawMessage {
	b, _ := json.Marshal(map[string]any{"title": Text(s)})
	return b
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// raw drops JSON null so it is omitted from entities.
func raw(m json.RawMessage) json.RawMessage {
	if len(m) == 0 || bytes.Equal(bytes.TrimSpace(m), []byte("null")) {
		return nil
	}
	return m
}

func parentOf(p Parent) (string, string) {
	switch p.Type {
	case ParentPage:
		return p.Type, p.PageID
	case ParentDatabase:
		return p.Type, p.DatabaseID
	case ParentBlock:
		return p.Type, p.BlockID
	case "":
		return ParentWorkspace, ""
	}
	return p.Type, ""
}

// titleOf returns the value of the page's title property.
func titleOf(props map[string]json.RawMessage) string {
	for _, v := range props {
		var p property
		if json.Unmarshal(v, &p) == nil && p.Type == "title" {
			return PlainText(p.Title)
		}
	}
	return ""
}

// ToPage maps a page object.
func ToPage(o *Object) (*Page, error) {
	if o == nil || o.ID == "" {
		return nil, connector.MissingFieldError("page", "id")
	}
	pt, pid := parentOf(o.Parent)
	return &Page{
		ID:             o.ID,
		Title:          titleOf(o.Properties),
		ParentType:     pt,
		ParentID:       pid,
		Icon:           raw(o.Icon),
		Cover:          raw(o.Cover),
		Properties:     o.Properties,
		URL:            o.URL,
		Archived:       o.Archived,
		CreatedTime:    parseTime(o.CreatedTime),
		LastEditedTime: parseTime(o.LastEditedTime),
		CreatedBy:      o.CreatedBy.ID,
		LastEditedBy:   o.LastEditedBy.ID,
	}, nil
}

// ToDatabase maps a database object.
func ToDatabase(o *Object) (*Database, error) {
	if o == nil || o.ID == "" {
		return nil, connector.MissingFieldError("database", "id")
	}
	pt, pid := parentOf(o.Parent)
	return &Database{
		ID:             o.ID,
		Title:          PlainText(o.Title),
		Description:    PlainText(o.Description),
		Properties:     o.Properties,
		ParentType:     pt,
		ParentID:       pid,
		Icon:           raw(o.Icon),
		Cover:          raw(o.Cover),
		URL:            o.URL,
		Archived:       o.Archived,
		CreatedTime:    parseTime(o.CreatedTime),
		LastEditedTime: parseTime(o.LastEditedTime),
	}, nil
}

// ToEntry maps a page that lives in a database.
func ToEntry(o *Object) (*Entry, error) {
	if o == nil || o.ID == "" {
		return nil, connector.MissingFieldError("database entry", "id")
	}
	e := &Entry{
		ID:             o.ID,
		Properties:     o.Properties,
		Values:         make(map[string]any, len(o.Properties)),
		Icon:           raw(o.Icon),
		Cover:          raw(o.Cover),
		URL:            o.URL,
		Archived:       o.Archived,
		CreatedTime:    parseTime(o.CreatedTime),
		LastEditedTime: parseTime(o.LastEditedTime),
		CreatedBy:      o.CreatedBy.ID,
		LastEditedBy:   o.LastEditedBy.ID,
	}
	if o.Parent.Type == ParentDatabase {
		e.DatabaseID = o.Parent.DatabaseID
	}
	for name, v := range o.Properties {
		e.Values[name] = PropertyValue(v)
	}
	return e, nil
}

// PropertyValue simplifies a property value: text types become strings,
// selects their option names, dates their start, and so on. Unsupported
// types yield nil.
func PropertyValue(v json.RawMessage) any {
	var p property
	if err := json.Unmarshal(v, &p); err != nil {
		return nil
	}
	switch p.Type {
	case "title":
		return PlainText(p.Title)
	case "rich_text":
		return PlainText(p.RichText)
	case "number":
		if p.Number == nil {
			return nil
		}
		return *p.Number
	case "select":
		if p.Select == nil {
			return nil
		}
		return p.Select.Name
	case "status":
		if p.Status == nil {
			return nil
		}
		return p.Status.Name
	case "multi_select":
		names := make([]string, 0, len(p.MultiSelect))
		for _, o := range p.MultiSelect {
			names = append(names, o.Name)
		}
		return names
	case "date":
		if p.Date == nil {
			return nil
		}
		return p.Date.Start
	case "checkbox":
		return p.Checkbox
	case "url":
		return deref(p.URL)
	case "email":
		return deref(p.Email)
	case "phone_number":
		return deref(p.PhoneNumber)
	}
	return nil
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

var textBlocks = map[string]bool{
	"paragraph": true, "heading_1": true, "heading_2": true, "heading_3": true,
	"bulleted_list_item": true, "numbered_list_item": true, "to_do": true,
	"toggle": true, "quote": true, "callout": true, "code": true,
}

var mediaBlocks = map[string]bool{"image": true, "video": true, "file": true, "pdf": true, "audio": true}

type blockContent struct {
	RichText        []RichText   `json:"rich_text"`
	Checked         *bool        `json:"checked"`
	Language        string       `json:"language"`
	TableWidth      *int         `json:"table_width"`
	HasColumnHeader *bool        `json:"has_column_header"`
	HasRowHeader    *bool        `json:"has_row_header"`
	Cells           [][]RichText `json:"cells"`
	Caption         []RichText   `json:"caption"`
	URL             string       `json:"url"`
	External        *struct {
		URL string `json:"url"`
	} `json:"external"`
	File *struct {
		URL string `json:"url"`
	} `json:"file"`
}

// ToBlock maps a block object. Children are not fetched here.
func ToBlock(b *BlockObject) (*Block, error) {
	if b == nil || b.ID == "" {
		return nil, connector.MissingFieldError("block", "id")
	}
	typ := b.Type
	if typ == "" {
		typ = "paragraph"
	}
	out := &Block{
		ID:             b.ID,
		Type:           typ,
		Content:        raw(b.Content),
		HasChildren:    b.HasChildren,
		Archived:       b.Archived,
		CreatedTime:    parseTime(b.CreatedTime),
		LastEditedTime: parseTime(b.LastEditedTime),
		CreatedBy:      b.CreatedBy.ID,
		LastEditedBy:   b.LastEditedBy.ID,
	}
	var c blockContent
	if out.Content != nil {
		// An unreadable payload still yields the block with its type.
		_ = json.Unmarshal(out.Content, &c)
	}
	if textBlocks[typ] {
		out.Text = PlainText(c.RichText)
	}
	switch {
	case typ == "to_do":
		checked := c.Checked != nil && *c.Checked
		out.Checked = &checked
	case typ == "code":
		out.Language = c.Language
	case typ == "table":
		out.TableWidth = c.TableWidth
		out.HasColumnHeader = c.HasColumnHeader
		out.HasRowHeader = c.HasRowHeader
	case typ == "table_row":
		out.Cells = make([]string, 0, len(c.Cells))
		for _, cell := range c.Cells {
			out.Cells = append(out.Cells, PlainText(cell))
		}
	case mediaBlocks[typ]:
		switch {
		case c.External != nil:
			out.URL = c.External.URL
		case c.File != nil:
			out.URL = c.File.URL
		}
		out.Caption = PlainText(c.Caption)
	case typ == "bookmark" || typ == "embed" || typ == "link_preview":
		out.URL = c.URL
		out.Caption = PlainText(c.Caption)
	}
	return out, nil
}

// FromBlockDraft builds the request form of a block. Children are nested in
// the type object, where the API expects them.
func FromBlockDraft(d BlockDraft) (BlockBody, error) {
	typ := strings.TrimSpace(d.Type)
	if typ == "" {
		return nil, connector.Required("block type")
	}
	content := make(map[string]any, len(d.Content)+1)
	for k, v := range d.Content {
		content[k] = v
	}
	if len(d.Children) > 0 {
		children := make([]BlockBody, 0, len(d.Children))
		for _, c := range d.Children {
			body, err := FromBlockDraft(c)
			if err != nil {
				return nil, err
			}
			children = append(children, body)
		}
		content["children"] = children
	}
	return BlockBody{"type": typ, typ: content}, nil
}

func fromBlockDrafts(drafts []BlockDraft) ([]BlockBody, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	out := make([]BlockBody, 0, len(drafts))
	for _, d := range drafts {
		b, err := FromBlockDraft(d)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// FromPageDraft builds the body of pages.create.
func FromPageDraft(d PageDraft) (*PageBody, error) {
	parentType := d.ParentType
	if parentType == "" {
		parentType = ParentPage
	}
	var parent Parent
	switch parentType {
	case ParentPage:
		parent = Parent{Type: ParentPage, PageID: d.ParentID}
	case ParentDatabase:
		parent = Parent{Type: ParentDatabase, DatabaseID: d.ParentID}
	case ParentWorkspace:
		parent = Parent{Type: ParentWorkspace, Workspace: true}
	default:
		return nil, connector.Invalidf("parent_type must be %s, %s or %s", ParentPage, ParentDatabase, ParentWorkspace)
	}
	if parentType != ParentWorkspace && strings.TrimSpace(d.ParentID) == "" {
		return nil, connector.Required("parent_id")
	}
	props := d.Properties
	if len(props) == 0 {
		if strings.TrimSpace(d.Title) == "" {
			return nil, connector.Required("title")
		}
		props = map[string]json.RawMessage{"title": TitleProperty(d.Title)}
	}
	children, err := fromBlockDrafts(d.Children)
	if err != nil {
		return nil, err
	}
	if len(children) > MaxAppendBlocks {
		return nil, connector.Invalidf("at most %d blocks can be added at once", MaxAppendBlocks)
	}
	return &PageBody{
		Parent:     parent,
		Properties: props,
		Icon:       raw(d.Icon),
		Cover:      raw(d.Cover),
		Children:   children,
	}, nil
}

// FromEntryDraft builds the body of pages.create for a database entry.
func FromEntryDraft(d EntryDraft) (*PageBody, error) {
	if strings.TrimSpace(d.DatabaseID) == "" {
		return nil, connector.Required("database_id")
	}
	if len(d.Properties) == 0 {
		return nil, connector.Required("properties")
	}
	children, err := fromBlockDrafts(d.Children)
	if err != nil {
		return nil, err
	}
	return &PageBody{
		Parent:     Parent{Type: ParentDatabase, DatabaseID: d.DatabaseID},
		Properties: d.Properties,
		Icon:       raw(d.Icon),
		Cover:      raw(d.Cover),
		Children:   children,
	}, nil
}

// ToPagePatch builds the body of pages.update. Title is shorthand for the
// "title" property.
func ToPagePatch(u PageUpdate) (*PagePatch, error) {
	p := &PagePatch{Archived: u.Archived, Icon: raw(u.Icon), Cover: raw(u.Cover)}
	if len(u.Properties) > 0 || u.Title != "" {
		p.Properties = make(map[string]json.RawMessage, len(u.Properties)+1)
		for k, v := range u.Properties {
			p.Properties[k] = v
		}
		if u.Title != "" {
			p.Properties["title"] = TitleProperty(u.Title)
		}
	}
	if p.Properties == nil && p.Archived == nil && p.Icon == nil && p.Cover == nil {
		return nil, connector.Invalidf("nothing to update")
	}
	return p, nil
}

// ToSearchBody builds the body of search.
func ToSearchBody(c SearchCriteria) (*SearchBody, error) {
	b := &SearchBody{
		Query:       strings.TrimSpace(c.Query),
		Sort:        SearchSort{Direction: SortDescending, Timestamp: SortLastEditedTime},
		PageSize:    clampPageSize(c.PageSize),
		StartCursor: c.StartCursor,
	}
	switch c.FilterType {
	case "":
	case ObjectPage, ObjectDatabase:
		b.Filter = &SearchFilter{Property: "object", Value: c.FilterType}
	default:
		return nil, connector.Invalidf("filter_type must be %s or %s", ObjectPage, ObjectDatabase)
	}
	switch c.SortDirection {
	case "":
	case SortAscending, SortDescending:
		b.Sort.Direction = c.SortDirection
	default:
		return nil, connector.Invalidf("sort_direction must be %s or %s", SortAscending, SortDescending)
	}
	switch c.SortTimestamp {
	case "":
	case SortLastEditedTime, SortCreatedTime:
		b.Sort.Timestamp = c.SortTimestamp
	default:
		return nil, connector.Invalidf("sort_timestamp must be %s or %s", SortLastEditedTime, SortCreatedTime)
	}
	return b, nil
}

// ToQueryBody builds the body of databases.query.
func ToQueryBody(q DatabaseQuery) (*QueryBody, error) {
	if strings.TrimSpace(q.DatabaseID) == "" {
		return nil, connector.Required("database_id")
	}
	for name, v := range map[string]json.RawMessage{"filter": q.Filter, "sorts": q.Sorts} {
		if v = raw(v); v != nil && !json.Valid(v) {
			return nil, connector.Invalidf("%s is not valid JSON", name)
		}
	}
	return &QueryBody{
		Filter:      raw(q.Filter),
		Sorts:       raw(q.Sorts),
		StartCursor: q.StartCursor,
		PageSize:    clampPageSize(q.PageSize),
	}, nil
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}
