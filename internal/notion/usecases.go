package notion

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
)

// Content traversal bounds for GetPageContent.
const (
	DefaultContentDepth = 3
	MaxContentDepth     = 5
	// maxContentCalls caps the block children requests of one traversal.
	maxContentCalls = 50
)

// Service holds the Notion use cases.
type Service struct {
	accounts *accounts.Manager[API]
}

func NewService(m *accounts.Manager[API]) *Service {
	return &Service{accounts: m}
}

// Accounts returns the account manager.
func (s *Service) Accounts() *accounts.Manager[API] { return s.accounts }

// PageSummary is the listing form of a page or database.
type PageSummary struct {
	ID             string     `json:"id"`
	Object         string     `json:"object"`
	Title          string     `json:"title"`
	URL            string     `json:"url,omitempty"`
	ParentType     string     `json:"parent_type"`
	ParentID       string     `json:"parent_id,omitempty"`
	Archived       bool       `json:"archived"`
	CreatedTime    *time.Time `json:"created_time,omitempty"`
	LastEditedTime *time.Time `json:"last_edited_time,omitempty"`
}

func (p *Page) Summarize() PageSummary {
	return PageSummary{
		ID: p.ID, Object: ObjectPage, Title: p.Title, URL: p.URL,
		ParentType: p.ParentType, ParentID: p.ParentID, Archived: p.Archived,
		CreatedTime: p.CreatedTime, LastEditedTime: p.LastEditedTime,
	}
}

func (d *Database) Summarize() PageSummary {
	return PageSummary{
		ID: d.ID, Object: ObjectDatabase, Title: d.Title, URL: d.URL,
		ParentType: d.ParentType, ParentID: d.ParentID, Archived: d.Archived,
		CreatedTime: d.CreatedTime, LastEditedTime: d.LastEditedTime,
	}
}

func (s *Service) client(ctx context.Context, account string) (API, error) {
	return s.accounts.Resolve(ctx, account)
}

func required(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return connector.Required(name)
	}
	return nil
}

// CreatePageRequest is the input of CreatePage.
type CreatePageRequest struct {
	Account string
	Draft   PageDraft
}

// CreatedResponse identifies a created page or entry.
type CreatedResponse struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

func (s *Service) CreatePage(ctx context.Context, req CreatePageRequest) connector.Result[CreatedResponse] {
	return connector.Run("create page", func() (CreatedResponse, error) {
		body, err := FromPageDraft(req.Draft)
		if err != nil {
			return CreatedResponse{}, err
		}
		return s.create(ctx, req.Account, body)
	})
}

func (s *Service) create(ctx context.Context, account string, body *PageBody) (CreatedResponse, error) {
	c, err := s.client(ctx, account)
	if err != nil {
		return CreatedResponse{}, err
	}
	o, err := c.CreatePage(ctx, body)
	if err != nil {
		return CreatedResponse{}, err
	}
	p, err := ToPage(o)
	if err != nil {
		return CreatedResponse{}, err
	}
	return CreatedResponse{ID: p.ID, URL: p.URL}, nil
}

// PageRequest names a page.
type PageRequest struct {
	Account string
	PageID  string
}

// PageResponse carries a page with its raw properties.
type PageResponse struct {
	Page       PageSummary                `json:"page"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
}

func (s *Service) GetPage(ctx context.Context, req PageRequest) connector.Result[PageResponse] {
	return connector.Run("get page", func() (PageResponse, error) {
		if err := required("page_id", req.PageID); err != nil {
			return PageResponse{}, err
		}
		c, err := s.client(ctx, req.Account)
		if err != nil {
			return PageResponse{}, err
		}
		o, err := c.GetPage(ctx, req.PageID)
		if err != nil {
			return PageResponse{}, err
		}
		return pageResponse(o)
	})
}

func pageResponse(o *Object) (PageResponse, error) {
	p, err := ToPage(o)
	if err != nil {
		return PageResponse{}, err
	}
	return PageResponse{Page: p.Summarize(), Properties: p.Properties}, nil
}

// UpdatePageRequest is the input of UpdatePage.
type UpdatePageRequest struct {
	Account string
	PageID  string
	Update  PageUpdate
}

func (s *Service) UpdatePage(ctx context.Context, req UpdatePageRequest) connector.Result[PageResponse] {
	return connector.Run("update page", func() (PageResponse, error) {
		if err := required("page_id", req.PageID); err != nil {
			return PageResponse{}, err
		}
		patch, err := ToPagePatch(req.Update)
		if err != nil {
			return PageResponse{}, err
		}
		c, err := s.client(ctx, req.Account)
		if err != nil {
			return PageResponse{}, err
		}
		o, err := c.UpdatePage(ctx, req.PageID, patch)
		if err != nil {
			return PageResponse{}, err
		}
		return pageResponse(o)
	})
}

// SearchRequest is the input of SearchPages.
type SearchRequest struct {
	Account  string
	Criteria SearchCriteria
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Results []PageSummary `json:"results"`
	Count   int           `json:"count"`
	Cursor
}

// SearchPages searches pages and databases shared with the integration.
// Objects without an id are skipped.
func (s *Service) SearchPages(ctx context.Context, req SearchRequest) connector.Result[SearchResponse] {
	return connector.Run("search pages", func() (SearchResponse, error) {
		body, err := ToSearchBody(req.Criteria)
		if err != nil {
			return SearchResponse{}, err
		}
		c, err := s.client(ctx, req.Account)
		if err != nil {
			return SearchResponse{}, err
		}
		list, err := c.Search(ctx, body)
		if err != nil {
			return SearchResponse{}, err
		}
		out := SearchResponse{Results: make([]PageSummary, 0, len(list.Results)), Cursor: list.cursor()}
		for i := range list.Results {
			o := &list.Results[i]
			switch o.Object {
			case ObjectDatabase:
				if d, err := ToDatabase(o); err == nil {
					out.Results = append(out.Results, d.Summarize())
				}
			default:
				if p, err := ToPage(o); err == nil {
					out.Results = append(out.Results, p.Summarize())
				}
			}
		}
		out.Count = len(out.Results)
		return out, nil
	})
}

// DatabaseRequest names a database.
type DatabaseRequest struct {
	Account    string
	DatabaseID string
}

type DatabaseResponse struct {
	Database *Database `json:"database"`
}

func (s *Service) GetDatabase(ctx context.Context, req DatabaseRequest) connector.Result[DatabaseResponse] {
	return connector.Run("get database", func() (DatabaseResponse, error) {
		if err := required("database_id", req.DatabaseID); err != nil {
			return DatabaseResponse{}, err
		}
		c, err := s.client(ctx, req.Account)
		if err != nil {
			return DatabaseResponse{}, err
		}
		o, err := c.GetDatabase(ctx, req.DatabaseID)
		if err != nil {
			return DatabaseResponse{}, err
		}
		d, err := ToDatabase(o)
		if err != nil {
			return DatabaseResponse{}, err
		}
		return DatabaseResponse{Database: d}, nil
	})
}

// QueryRequest is the input of QueryDatabase.
type QueryRequest struct {
	Account string
	Query   DatabaseQuery
}

type QueryResponse struct {
	Entries []Entry `json:"entries"`
	Count   int     `json:"count"`
	Cursor
}

func (s *Service) QueryDatabase(ctx context.Context, req QueryRequest) connector.Result[QueryResponse] {
	return connector.Run("query database", func() (QueryResponse, error) {
		body, err := ToQueryBody(req.Query)
		if err != nil {
			return QueryResponse{}, err
		}
		c, err := s.client(ctx, req.Account)
		if err != nil {
			return QueryResponse{}, err
		}
		list, err := c.QueryDatabase(ctx, req.Query.DatabaseID, body)
		if err != nil {
			return QueryResponse{}, err
		}
		out := QueryResponse{Entries: make([]Entry, 0, len(list.Results)), Cursor: list.cursor()}
		for i := range list.Results {
			e, err := ToEntry(&list.Results[i])
			if err != nil {
				continue
			}
			out.Entries = append(out.Entries, *e)
		}
		out.Count = len(out.Entries)
		return out, nil
	})
}

// CreateEntryRequest is the input of CreateDatabaseEntry.
type CreateEntryRequest struct {
	Account string
	Draft   EntryDraft
}

func (s *Service) CreateDatabaseEntry(ctx context.Context, req CreateEntryRequest) connector.Result[CreatedResponse] {
	return connector.Run("create database entry", func() (CreatedResponse, error) {
		body, err := FromEntryDraft(req.Draft)
		if err != nil {
			return CreatedResponse{}, err
		}
		return s.create(ctx, req.Account, body)
	})
}

// AppendRequest is the input of AppendContent.
type AppendRequest struct {
	Account string
	PageID  string
	Blocks  []BlockDraft
}

type AppendResponse struct {
	BlockIDs []string `json:"block_ids"`
	Count    int      `json:"count"`
}

// AppendContent appends blocks to a page or block.
func (s *Service) AppendContent(ctx context.Context, req AppendRequest) connector.Result[AppendResponse] {
	return connector.Run("append content", func() (AppendResponse, error) {
		if err := required("page_id", req.PageID); err != nil {
			return AppendResponse{}, err
		}
		switch n := len(req.Blocks); {
		case n == 0:
			return AppendResponse{}, connector.Required("blocks")
		case n > MaxAppendBlocks:
			return AppendResponse{}, connector.Invalidf("at most %d blocks can be appended at once", MaxAppendBlocks)
		}
		children, err := fromBlockDrafts(req.Blocks)
		if err != nil {
			return AppendResponse{}, err
		}
		c, err := s.client(ctx, req.Account)
		if err != nil {
			return AppendResponse{}, err
		}
		list, err := c.AppendBlocks(ctx, req.PageID, children)
		if err != nil {
			return AppendResponse{}, err
		}
		out := AppendResponse{BlockIDs: make([]string, 0, len(list.Results))}
		for _, b := range list.Results {
			if b.ID != "" {
				out.BlockIDs = append(out.BlockIDs, b.ID)
			}
		}
		out.Count = len(out.BlockIDs)
		return out, nil
	})
}

// ContentRequest is the input of GetPageContent.
type ContentRequest struct {
	Account     string
	PageID      string
	PageSize    int
	StartCursor string
	// Recursive fetches the children of nested blocks (toggles, tables, ...)
	// down to Depth levels.
	Recursive bool
	Depth     int
}

type ContentResponse struct {
	Blocks []Block `json:"blocks"`
	Count  int     `json:"count"`
	Cursor
	// Truncated is set when nested children were left unfetched because the
	// traversal hit its request limit.
	Truncated bool `json:"truncated,omitempty"`
}

// GetPageContent returns one page of the blocks of a page. With Recursive
// the children of nested blocks are fetched with one request per block,
// bounded in depth and in total requests; only their first page is read.
func (s *Service) GetPageContent(ctx context.Context, req ContentRequest) connector.Result[ContentResponse] {
	return connector.Run("get page content", func() (ContentResponse, error) {
		if err := required("page_id", req.PageID); err != nil {
			return ContentResponse{}, err
		}
		c, err := s.client(ctx, req.Account)
		if err != nil {
			return ContentResponse{}, err
		}
		list, err := c.BlockChildren(ctx, req.PageID, req.StartCursor, req.PageSize)
		if err != nil {
			return ContentResponse{}, err
		}
		w := &walker{api: c, pageSize: req.PageSize, budget: maxContentCalls - 1}
		depth := 0
		if req.Recursive {
			depth = req.Depth
			if depth <= 0 {
				depth = DefaultContentDepth
			}
			depth = min(depth, MaxContentDepth)
		}
		blocks, err := w.blocks(ctx, list.Results, depth)
		if err != nil {
			return ContentResponse{}, err
		}
		return ContentResponse{Blocks: blocks, Count: len(blocks), Cursor: list.cursor(), Truncated: w.truncated}, nil
	})
}

type walker struct {
	api       API
	pageSize  int
	budget    int
	truncated bool
}

func (w *walker) blocks(ctx context.Context, objs []BlockObject, depth int) ([]Block, error) {
	out := make([]Block, 0, len(objs))
	for i := range objs {
		b, err := ToBlock(&objs[i])
		if err != nil {
			continue
		}
		if b.HasChildren && depth > 0 && b.Type != "child_page" && b.Type != "child_database" {
			if w.budget == 0 {
				w.truncated = true
			} else {
				w.budget--
				list, err := w.api.BlockChildren(ctx, b.ID, "", w.pageSize)
				if err != nil {
					return nil, err
				}
				if b.Children, err = w.blocks(ctx, list.Results, depth-1); err != nil {
					return nil, err
				}
			}
		}
		out = append(out, *b)
	}
	return out, nil
}

// UpdateBlockRequest replaces the type object of a block.
type UpdateBlockRequest struct {
	Account  string
	BlockID  string
	Type     string
	Content  map[string]any
	Archived *bool
}

type BlockResponse struct {
	Block *Block `json:"block"`
}

func (s *Service) UpdateBlock(ctx context.Context, req UpdateBlockRequest) connector.Result[BlockResponse] {
	return connector.Run("update block", func() (BlockResponse, error) {
		if err := required("block_id", req.BlockID); err != nil {
			return BlockResponse{}, err
		}
		body := BlockBody{}
		if req.Type != "" {
			content := req.Content
			if content == nil {
				content = map[string]any{}
			}
			body[req.Type] = content
		}
		if req.Archived != nil {
			body["archived"] = *req.Archived
		}
		if len(body) == 0 {
			return BlockResponse{}, connector.Invalidf("nothing to update")
		}
		c, err := s.client(ctx, req.Account)
		if err != nil {
			return BlockResponse{}, err
		}
		o, err := c.UpdateBlock(ctx, req.BlockID, body)
		if err != nil {
			return BlockResponse{}, err
		}
		b, err := ToBlock(o)
		if err != nil {
			return BlockResponse{}, err
		}
		return BlockResponse{Block: b}, nil
	})
}

// BlockRequest names a block.
type BlockRequest struct {
	Account string
	BlockID string
}

type DeleteBlockResponse struct {
	BlockID string `json:"block_id"`
	Deleted bool   `json:"deleted"`
}

func (s *Service) DeleteBlock(ctx context.Context, req BlockRequest) connector.Result[DeleteBlockResponse] {
	return connector.Run("delete block", func() (DeleteBlockResponse, error) {
		if err := required("block_id", req.BlockID); err != nil {
			return DeleteBlockResponse{}, err
		}
		c, err := s.client(ctx, req.Account)
		if err != nil {
			return DeleteBlockResponse{}, err
		}
		if _, err := c.DeleteBlock(ctx, req.BlockID); err != nil {
			return DeleteBlockResponse{}, err
		}
		return DeleteBlockResponse{BlockID: req.BlockID, Deleted: true}, nil
	})
}
