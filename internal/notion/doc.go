// Package notion connects Notion workspaces through the public REST API.
//
// Client issues one request per operation against api.notion.com with the
// integration token of an account. The mapper turns pages, databases,
// database entries and blocks into flat entities and builds request bodies
// from drafts; the block helpers build the common block types. Service holds
// the use cases behind the notion_* tools.
package notion
