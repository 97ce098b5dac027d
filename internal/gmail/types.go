package gmail

import (
	"net/mail"
	"slices"
	"time"
)

// System labels.
const (
	LabelInbox     = "INBOX"
	LabelSent      = "SENT"
	LabelDraft     = "DRAFT"
	LabelTrash     = "TRASH"
	LabelSpam      = "SPAM"
	LabelStarred   = "STARRED"
	LabelImportant = "IMPORTANT"
	LabelUnread    = "UNREAD"
)

// SystemLabels lists label ids that need no lookup.
var SystemLabels = []string{LabelInbox, LabelSent, LabelDraft, LabelTrash, LabelSpam, LabelStarred, LabelImportant, LabelUnread}

// DefaultSubject is used for messages without a Subject header.
const DefaultSubject = "(No Subject)"

// Address is a mailbox with an optional display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// String formats the address for a MIME header.
func (a Address) String() string {
	if a.Email == "" {
		return ""
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// Attachment describes a message attachment. Data is only set on drafts.
type Attachment struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachment_id,omitempty"`
	Data         []byte `json:"-"`
}

// Email is a received message.
type Email struct {
	ID          string       `json:"id"`
	ThreadID    string       `json:"thread_id,omitempty"`
	Subject     string       `json:"subject"`
	From        Address      `json:"from"`
	To          []Address    `json:"to"`
	Cc          []Address    `json:"cc,omitempty"`
	Bcc         []Address    `json:"bcc,omitempty"`
	BodyText    string       `json:"body_text,omitempty"`
	BodyHTML    string       `json:"body_html,omitempty"`
	Date        *time.Time   `json:"date,omitempty"`
	Labels      []string     `json:"labels"`
	Attachments []Attachment `json:"attachments"`
	Snippet     string       `json:"snippet,omitempty"`
	IsRead      bool         `json:"is_read"`
	IsStarred   bool         `json:"is_starred"`
	MessageID   string       `json:"message_id,omitempty"`
}

// HasLabel reports whether the message carries label.
func (e *Email) HasLabel(label string) bool {
	return slices.Contains(e.Labels, label)
}

// Summary is the short form of an Email returned by searches.
type Summary struct {
	ID             string     `json:"id"`
	ThreadID       string     `json:"thread_id,omitempty"`
	Subject        string     `json:"subject"`
	FromEmail      string     `json:"from_email"`
	FromName       string     `json:"from_name,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
	Snippet        string     `json:"snippet"`
	IsRead         bool       `json:"is_read"`
	HasAttachments bool       `json:"has_attachments"`
}

// Summarize shortens e.
func (e *Email) Summarize() Summary {
	return Summary{
		ID:             e.ID,
		ThreadID:       e.ThreadID,
		Subject:        e.Subject,
		FromEmail:      e.From.Email,
		FromName:       e.From.Name,
		Date:           e.Date,
		Snippet:        e.Snippet,
		IsRead:         e.IsRead,
		HasAttachments: len(e.Attachments) > 0,
	}
}

// Draft is a message to be sent.
type Draft struct {
	To          []Address
	Cc          []Address
	Bcc         []Address
	Subject     string
	BodyText    string
	BodyHTML    string
	Attachments []Attachment
	// InReplyTo is the Message-ID header of the message answered.
	InReplyTo string
	// ThreadID places the sent message in an existing thread.
	ThreadID string
}

// Criteria selects messages. The zero value matches everything.
type Criteria struct {
	Query         string
	From          string
	To            string
	Subject       string
	HasAttachment bool
	IsUnread      bool
	Label         string
	After         time.Time
	Before        time.Time
}
