package whatsapp

import "time"

// Message types.
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeDocument = "document"
	TypeAudio    = "audio"
	TypeSticker  = "sticker"
	TypeTemplate = "template"
)

var mediaTypes = map[string]bool{
	TypeImage: true, TypeVideo: true, TypeDocument: true, TypeAudio: true, TypeSticker: true,
}

// Template statuses.
const (
	TemplateApproved = "APPROVED"
	TemplatePending  = "PENDING"
	TemplateRejected = "REJECTED"
)

var templateStatuses = []string{TemplateApproved, TemplatePending, TemplateRejected}

// Template categories.
const (
	CategoryMarketing      = "MARKETING"
	CategoryUtility        = "UTILITY"
	CategoryAuthentication = "AUTHENTICATION"
)

var templateCategories = []string{CategoryMarketing, CategoryUtility, CategoryAuthentication}

// Limits of the Cloud API.
const (
	MaxTextLength    = 4096
	MaxCaptionLength = 1024
	// MaxMediaSize is the largest media file the API accepts (documents).
	MaxMediaSize = 100 << 20
)

// Media describes an attachment of an outgoing or incoming message.
type Media struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
}

// TextDraft is an outgoing text message. To is an E.164 number with the
// leading plus.
type TextDraft struct {
	To         string
	Text       string
	PreviewURL bool
	ReplyTo    string
}

// MediaDraft is an outgoing media message referencing an uploaded media id
// or a public link.
type MediaDraft struct {
	To      string
	Media   Media
	ReplyTo string
}

// TemplateDraft is an outgoing template message. Parameters fill the body
// placeholders in order.
type TemplateDraft struct {
	To         string
	Name       string
	Language   string
	Parameters []string
}

// Message is an incoming message delivered by the webhook.
type Message struct {
	ID          string    `json:"id"`
	From        string    `json:"from"`
	ProfileName string    `json:"profile_name,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Text        string    `json:"text,omitempty"`
	Media       *Media    `json:"media,omitempty"`
	ReplyTo     string    `json:"reply_to,omitempty"`
	// PhoneNumberID is the business number that received the message.
	PhoneNumberID string `json:"phone_number_id,omitempty"`
}

// Status is a delivery status update of a sent message.
type Status struct {
	MessageID   string    `json:"message_id"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	RecipientID string    `json:"recipient_id"`
	Errors      []string  `json:"errors,omitempty"`
}

// TemplateComponent is a HEADER, BODY, FOOTER or BUTTONS block.
type TemplateComponent struct {
	Type       string   `json:"type"`
	Format     string   `json:"format,omitempty"`
	Text       string   `json:"text,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
}

// Template is a message template of the business account.
type Template struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Language       string              `json:"language"`
	Status         string              `json:"status"`
	Category       string              `json:"category"`
	Components     []TemplateComponent `json:"components,omitempty"`
	ParameterCount int                 `json:"parameter_count"`
}
