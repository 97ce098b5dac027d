// Package gmail_tools exposes the Gmail use cases as MCP tools.
//
// Reading:
//   - search_emails: search messages with Gmail query criteria
//   - get_email: fetch one message with bodies and attachment metadata
//   - get_email_attachment: download an attachment (base64 or text)
//
// Writing (registered with --yolo):
//   - send_email: send a plain text and/or HTML message with attachments
//   - mark_email_as_read, mark_email_as_unread: toggle the UNREAD label of
//     one or more messages
//   - add_email_label: add an existing label to one or more messages
//
// Account management tools (list_gmail_accounts, set_default_gmail_account,
// add_gmail_account, remove_gmail_account) come from the common package.
// Every tool takes an optional "account"; without it the default account is
// used.
package gmail_tools
