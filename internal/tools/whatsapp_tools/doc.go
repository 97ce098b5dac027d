// Package whatsapp_tools exposes the WhatsApp Business Cloud API use cases
// as MCP tools.
//
// Recipients are E.164 numbers such as "+34600111222". Media is sent by
// uploaded media id, by public link, or uploaded from a local file or
// base64 data first. Incoming messages arrive through the webhook of the
// streamable-http transport, not through tools.
package whatsapp_tools
