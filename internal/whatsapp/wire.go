package whatsapp

import "encoding/json"

const messagingProduct = "whatsapp"

// MessageBody is the request of POST /{phone-number-id}/messages. Exactly
// one of the content fields is set, matching Type.
type MessageBody struct {
	MessagingProduct string        `json:"messaging_product"`
	RecipientType    string        `json:"recipient_type"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *TextBody     `json:"text,omitempty"`
	Image            *MediaBody    `json:"image,omitempty"`
	Video            *MediaBody    `json:"video,omitempty"`
	Document         *MediaBody    `json:"document,omitempty"`
	Audio            *MediaBody    `json:"audio,omitempty"`
	Sticker          *MediaBody    `json:"sticker,omitempty"`
	Template         *TemplateBody `json:"template,omitempty"`
	Context          *ContextBody  `json:"context,omitempty"`
}

type TextBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type MediaBody struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type TemplateBody struct {
	Name       string          `json:"name"`
	Language   LanguageBody    `json:"language"`
	Components []ComponentBody `json:"components"`
}

type LanguageBody struct {
	Code string `json:"code"`
}

type ComponentBody struct {
	Type       string          `json:"type"`
	Parameters []ParameterBody `json:"parameters"`
}

type ParameterBody struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ContextBody struct {
	MessageID string `json:"message_id"`
}

// ReadBody marks an incoming message as read.
type ReadBody struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

// SendResponse is returned by the messages endpoint.
type SendResponse struct {
	MessagingProduct string        `json:"messaging_product"`
	Contacts         []SentContact `json:"contacts"`
	Messages         []SentMessage `json:"messages"`
	Success          bool          `json:"success"`
}

type SentContact struct {
	Input string `json:"input"`
	WaID  string `json:"wa_id"`
}

type SentMessage struct {
	ID            string `json:"id"`
	MessageStatus string `json:"message_status"`
}

// UploadResponse is returned by POST /{phone-number-id}/media.
type UploadResponse struct {
	ID string `json:"id"`
}

// MediaRecord is returned by GET /{media-id}. URL is short-lived and needs
// the access token to download.
type MediaRecord struct {
	ID               string      `json:"id"`
	URL              string      `json:"url"`
	MimeType         string      `json:"mime_type"`
	SHA256           string      `json:"sha256"`
	FileSize         json.Number `json:"file_size"`
	MessagingProduct string      `json:"messaging_product"`
}

type TemplateRecord struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Language   string            `json:"language"`
	Status     string            `json:"status"`
	Category   string            `json:"category"`
	Components []ComponentRecord `json:"components"`
}

type ComponentRecord struct {
	Type   string `json:"type"`
	Format string `json:"format"`
	Text   string `json:"text"`
}

// TemplatePage is one page of GET /{waba-id}/message_templates.
type TemplatePage struct {
	Data   []TemplateRecord `json:"data"`
	Paging struct {
		Cursors struct {
			Before string `json:"before"`
			After  string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

// NextCursor returns the cursor of the following page, or "" on the last.
func (p *TemplatePage) NextCursor() string {
	if p.Paging.Next == "" {
		return ""
	}
	return p.Paging.Cursors.After
}

// Payload is a webhook notification.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		WaID string `json:"wa_id"`
	} `json:"contacts"`
	Messages []MessageRecord `json:"messages"`
	Statuses []StatusRecord  `json:"statuses"`
}

type MessageRecord struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image    *IncomingMedia `json:"image"`
	Video    *IncomingMedia `json:"video"`
	Document *IncomingMedia `json:"document"`
	Audio    *IncomingMedia `json:"audio"`
	Sticker  *IncomingMedia `json:"sticker"`
	Context  *struct {
		From string `json:"from"`
		ID   string `json:"id"`
	} `json:"context"`
}

type IncomingMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
}

type StatusRecord struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
	Errors      []struct {
		Code    int    `json:"code"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"errors"`
}
