// Package notion_tools exposes the Notion use cases as MCP tools.
//
// Pages are created under a page, a database or the workspace. Content is
// given as a list of blocks; common block types take plain "text" and
// their type specific fields, any other type takes a verbatim Notion
// "content" object. Properties and database filters use the Notion API
// syntax unchanged.
package notion_tools
