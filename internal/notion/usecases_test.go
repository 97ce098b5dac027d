package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
)

type fakeNotion struct {
	created  []*PageBody
	patch    *PagePatch
	search   *SearchBody
	query    *QueryBody
	appended []BlockBody
	// children maps a block id to the blocks returned for it.
	children      map[string][]BlockObject
	childrenCalls []string
	updated       BlockBody
}

func (f *fakeNotion) CreatePage(_ context.Context, body *PageBody) (*Object, error) {
	f.created = append(f.created, body)
	return &Object{Object: ObjectPage, ID: fmt.Sprintf("page-%d", len(f.created)), URL: "https://notion.so/x"}, nil
}

func (f *fakeNotion) GetPage(_ context.Context, id string) (*Object, error) {
	if id == "missing" {
		return nil, connector.NewNotFoundError("page "+id, nil)
	}
	return &Object{ID: id, Properties: map[string]json.RawMessage{
		"Name": []byte(`{"type":"title","title":[{"plain_text":"Hello"}]}`),
	}}, nil
}

func (f *fakeNotion) UpdatePage(_ context.Context, id string, p *PagePatch) (*Object, error) {
	f.patch = p
	return &Object{ID: id, Archived: p.Archived != nil && *p.Archived}, nil
}

func (f *fakeNotion) Search(_ context.Context, b *SearchBody) (*List[Object], error) {
	f.search = b
	next := "cursor-2"
	return &List[Object]{Results: []Object{
		{Object: ObjectPage, ID: "p1"},
		{Object: ObjectDatabase, ID: "d1", Title: []RichText{{PlainText: "DB"}}},
		{Object: ObjectPage},
	}, NextCursor: &next, HasMore: true}, nil
}

func (f *fakeNotion) GetDatabase(_ context.Context, id string) (*Object, error) {
	return &Object{Object: ObjectDatabase, ID: id, Title: []RichText{{PlainText: "Tasks"}}}, nil
}

func (f *fakeNotion) QueryDatabase(_ context.Context, _ string, b *QueryBody) (*List[Object], error) {
	f.query = b
	return &List[Object]{Results: []Object{
		{ID: "e1", Parent: Parent{Type: ParentDatabase, DatabaseID: "db"}, Properties: map[string]json.RawMessage{
			"Done": []byte(`{"type":"checkbox","checkbox":true}`),
		}},
		{},
	}}, nil
}

func (f *fakeNotion) BlockChildren(_ context.Context, id, _ string, _ int) (*List[BlockObject], error) {
	f.childrenCalls = append(f.childrenCalls, id)
	return &List[BlockObject]{Results: f.children[id]}, nil
}

func (f *fakeNotion) AppendBlocks(_ context.Context, _ string, children []BlockBody) (*List[BlockObject], error) {
	f.appended = children
	out := &List[BlockObject]{}
	for i := range children {
		out.Results = append(out.Results, BlockObject{ID: fmt.Sprintf("b%d", i)})
	}
	return out, nil
}

func (f *fakeNotion) UpdateBlock(_ context.Context, id string, body BlockBody) (*BlockObject, error) {
	f.updated = body
	return &BlockObject{ID: id, Type: "paragraph"}, nil
}

func (f *fakeNotion) DeleteBlock(_ context.Context, id string) (*BlockObject, error) {
	return &BlockObject{ID: id, Archived: true}, nil
}

func newTestService(t *testing.T) (*Service, *fakeNotion) {
	t.Helper()
	f := &fakeNotion{children: map[string][]BlockObject{}}
	m := accounts.NewManager[API]("notion", func(context.Context, string) (API, error) { return f, nil })
	_, err := m.Register(context.Background(), "workspace")
	require.NoError(t, err)
	return NewService(m), f
}

func TestCreatePage(t *testing.T) {
	s, f := newTestService(t)
	res := s.CreatePage(context.Background(), CreatePageRequest{Draft: PageDraft{ParentID: "p", Title: "T", Children: []BlockDraft{Paragraph("x")}}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "page-1", res.Value.ID)
	require.Len(t, f.created, 1)
	assert.Len(t, f.created[0].Children, 1)

	res = s.CreatePage(context.Background(), CreatePageRequest{Draft: PageDraft{Title: "T"}})
	assert.False(t, res.Success)
	assert.Equal(t, "create page failed: malformed request: parent_id is required", res.Error)
	assert.Len(t, f.created, 1)
}

func TestUnknownAccount(t *testing.T) {
	s, _ := newTestService(t)
	res := s.GetPage(context.Background(), PageRequest{Account: "other", PageID: "p"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "get page failed")
}

func TestGetPage(t *testing.T) {
	s, _ := newTestService(t)
	res := s.GetPage(context.Background(), PageRequest{PageID: "p1"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Hello", res.Value.Page.Title)
	assert.Contains(t, res.Value.Properties, "Name")

	res = s.GetPage(context.Background(), PageRequest{PageID: "missing"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not found")

	res = s.GetPage(context.Background(), PageRequest{})
	assert.Equal(t, "get page failed: malformed request: page_id is required", res.Error)
}

func TestUpdatePage(t *testing.T) {
	s, f := newTestService(t)
	archived := true
	res := s.UpdatePage(context.Background(), UpdatePageRequest{PageID: "p1", Update: PageUpdate{Archived: &archived}})
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Value.Page.Archived)
	assert.Nil(t, f.patch.Properties)

	res = s.UpdatePage(context.Background(), UpdatePageRequest{PageID: "p1"})
	assert.False(t, res.Success)
}

func TestSearchPages(t *testing.T) {
	s, f := newTestService(t)
	res := s.SearchPages(context.Background(), SearchRequest{Criteria: SearchCriteria{Query: "x", PageSize: 5}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Value.Count)
	assert.Equal(t, ObjectPage, res.Value.Results[0].Object)
	assert.Equal(t, ObjectDatabase, res.Value.Results[1].Object)
	assert.Equal(t, "DB", res.Value.Results[1].Title)
	assert.Equal(t, "cursor-2", res.Value.NextCursor)
	assert.True(t, res.Value.HasMore)
	assert.Equal(t, 5, f.search.PageSize)
}

func TestQueryDatabase(t *testing.T) {
	s, f := newTestService(t)
	res := s.QueryDatabase(context.Background(), QueryRequest{Query: DatabaseQuery{DatabaseID: "db"}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Value.Count)
	assert.Equal(t, true, res.Value.Entries[0].Values["Done"])
	assert.Equal(t, DefaultPageSize, f.query.PageSize)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"properties":{"Done":true}`)
}

func TestCreateDatabaseEntry(t *testing.T) {
	s, f := newTestService(t)
	res := s.CreateDatabaseEntry(context.Background(), CreateEntryRequest{Draft: EntryDraft{
		DatabaseID: "db",
		Properties: map[string]json.RawMessage{"Name": TitleProperty("Row")},
	}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, ParentDatabase, f.created[0].Parent.Type)
}

func TestGetDatabase(t *testing.T) {
	s, _ := newTestService(t)
	res := s.GetDatabase(context.Background(), DatabaseRequest{DatabaseID: "db"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Tasks", res.Value.Database.Title)
}

func TestAppendContent(t *testing.T) {
	s, f := newTestService(t)
	res := s.AppendContent(context.Background(), AppendRequest{PageID: "p", Blocks: []BlockDraft{Paragraph("a"), Divider()}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"b0", "b1"}, res.Value.BlockIDs)
	assert.Len(t, f.appended, 2)

	res = s.AppendContent(context.Background(), AppendRequest{PageID: "p"})
	assert.False(t, res.Success)

	res = s.AppendContent(context.Background(), AppendRequest{PageID: "p", Blocks: make([]BlockDraft, MaxAppendBlocks+1)})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "at most 100")
}

func TestGetPageContentRecursion(t *testing.T) {
	s, f := newTestService(t)
	f.children["page"] = []BlockObject{
		{ID: "t1", Type: "toggle", HasChildren: true},
		{ID: "p1", Type: "paragraph"},
		{ID: "cp", Type: "child_page", HasChildren: true},
	}
	f.children["t1"] = []BlockObject{{ID: "t2", Type: "toggle", HasChildren: true}}
	f.children["t2"] = []BlockObject{{ID: "leaf", Type: "paragraph"}}

	res := s.GetPageContent(context.Background(), ContentRequest{PageID: "page"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, res.Value.Count)
	assert.Nil(t, res.Value.Blocks[0].Children)
	assert.Equal(t, []string{"page"}, f.childrenCalls)

	f.childrenCalls = nil
	res = s.GetPageContent(context.Background(), ContentRequest{PageID: "page", Recursive: true, Depth: 1})
	require.True(t, res.Success, res.Error)
	require.Len(t, res.Value.Blocks[0].Children, 1)
	assert.Nil(t, res.Value.Blocks[0].Children[0].Children)
	assert.Equal(t, []string{"page", "t1"}, f.childrenCalls)

	f.childrenCalls = nil
	res = s.GetPageContent(context.Background(), ContentRequest{PageID: "page", Recursive: true})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "leaf", res.Value.Blocks[0].Children[0].Children[0].ID)
	assert.Equal(t, []string{"page", "t1", "t2"}, f.childrenCalls)
	assert.False(t, res.Value.Truncated)
}

func TestGetPageContentBudget(t *testing.T) {
	s, f := newTestService(t)
	var top []BlockObject
	for i := range maxContentCalls + 5 {
		id := fmt.Sprintf("t%d", i)
		top = append(top, BlockObject{ID: id, Type: "toggle", HasChildren: true})
	}
	f.children["page"] = top

	res := s.GetPageContent(context.Background(), ContentRequest{PageID: "page", Recursive: true})
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Value.Truncated)
	assert.Len(t, f.childrenCalls, maxContentCalls)
}

func TestUpdateAndDeleteBlock(t *testing.T) {
	s, f := newTestService(t)
	res := s.UpdateBlock(context.Background(), UpdateBlockRequest{BlockID: "b", Type: "paragraph", Content: map[string]any{"rich_text": Text("new")}})
	require.True(t, res.Success, res.Error)
	assert.Contains(t, f.updated, "paragraph")
	assert.NotContains(t, f.updated, "type")

	res = s.UpdateBlock(context.Background(), UpdateBlockRequest{BlockID: "b"})
	assert.False(t, res.Success)

	del := s.DeleteBlock(context.Background(), BlockRequest{BlockID: "b"})
	require.True(t, del.Success, del.Error)
	assert.True(t, del.Value.Deleted)
}
