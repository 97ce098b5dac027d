package gmail

import (
	"encoding/base64"
	"errors"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// MaxAttachmentSize is the largest attachment returned by GetAttachment
// (25MB, the Gmail send limit).
const MaxAttachmentSize = 25 * 1024 * 1024

// walkParts visits part and all of its descendants depth first.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

// extractAttachments lists the parts that carry a filename.
func extractAttachments(payload *gmail.MessagePart) []Attachment {
	out := []Attachment{}
	walkParts(payload, func(p *gmail.MessagePart) {
		if p.Filename == "" {
			return
		}
		a := Attachment{Filename: p.Filename, MimeType: p.MimeType}
		if a.MimeType == "" {
			a.MimeType = "application/octet-stream"
		}
		if p.Body != nil {
			a.Size = p.Body.Size
			a.AttachmentID = p.Body.AttachmentId
		}
		out = append(out, a)
	})
	return out
}

// extractBody returns the first text/plain and text/html bodies found.
func extractBody(payload *gmail.MessagePart) (text, html string) {
	walkParts(payload, func(p *gmail.MessagePart) {
		if p.Filename != "" || p.Body == nil || p.Body.Data == "" {
			return
		}
		mt := strings.ToLower(p.MimeType)
		switch {
		case strings.HasPrefix(mt, "text/plain") && text == "":
			if b, err := decodeData(p.Body.Data); err == nil {
				text = normalizeNewlines(string(b))
			}
		case strings.HasPrefix(mt, "text/html") && html == "":
			if b, err := decodeData(p.Body.Data); err == nil {
				html = normalizeNewlines(string(b))
			}
		}
	})
	return text, html
}

// decodeData decodes Gmail body data. The API documents base64url but both
// padded and unpadded forms occur, and older payloads use the standard
// alphabet.
func decodeData(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("invalid base64 data")
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// SanitizeFilename strips path elements from an attachment filename.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}
