// Package whatsapp connects WhatsApp Business Cloud API numbers through the
// Graph API: sending text, media and template messages, media upload and
// download, read receipts and template listing.
//
// Incoming messages and delivery statuses arrive through the webhook in
// webhook.go, which the HTTP transport mounts at /webhook/whatsapp.
package whatsapp
