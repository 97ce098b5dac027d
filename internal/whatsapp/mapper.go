package whatsapp

import (
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/teemow/connectorhub/internal/connector"
)

// DefaultLanguage is used for templates sent without a language code.
const DefaultLanguage = "en_US"

// PayloadObject is the object of WhatsApp Business webhook notifications.
const PayloadObject = "whatsapp_business_account"

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// Recipient validates an E.164 number and returns it without the plus, as
// the API expects.
func Recipient(to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", connector.Required("to")
	}
	if !e164.MatchString(to) {
		return "", connector.Invalidf("phone number must be in E.164 format: %s", to)
	}
	return strings.TrimPrefix(to, "+"), nil
}

func newBody(to, typ, replyTo string) (*MessageBody, error) {
	rcpt, err := Recipient(to)
	if err != nil {
		return nil, err
	}
	b := &MessageBody{
		MessagingProduct: messagingProduct,
		RecipientType:    "individual",
		To:               rcpt,
		Type:             typ,
	}
	if replyTo != "" {
		b.Context = &ContextBody{MessageID: replyTo}
	}
	return b, nil
}

// FromTextDraft validates d and builds the send body.
func FromTextDraft(d TextDraft) (*MessageBody, error) {
	b, err := newBody(d.To, TypeText, d.ReplyTo)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Text) == "" {
		return nil, connector.Required("text")
	}
	if utf8.RuneCountInString(d.Text) > MaxTextLength {
		return nil, connector.Invalidf("text message cannot exceed %d characters", MaxTextLength)
	}
	b.Text = &TextBody{PreviewURL: d.PreviewURL, Body: d.Text}
	return b, nil
}

// FromMediaDraft validates d and builds the send body. An id takes
// precedence over a link; filenames are only sent for documents.
func FromMediaDraft(d MediaDraft) (*MessageBody, error) {
	m := d.Media
	if !mediaTypes[m.Type] {
		return nil, connector.Invalidf("invalid media type %q", m.Type)
	}
	b, err := newBody(d.To, m.Type, d.ReplyTo)
	if err != nil {
		return nil, err
	}
	mb := &MediaBody{}
	switch {
	case m.ID != "":
		mb.ID = m.ID
	case m.Link != "":
		u, err := url.Parse(m.Link)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return nil, connector.Invalidf("media link must be an http(s) URL")
		}
		mb.Link = m.Link
	default:
		return nil, connector.Invalidf("either a media id or a media link is required")
	}
	if m.Caption != "" {
		if m.Type == TypeAudio || m.Type == TypeSticker {
			return nil, connector.Invalidf("%s messages cannot have a caption", m.Type)
		}
		if utf8.RuneCountInString(m.Caption) > MaxCaptionLength {
			return nil, connector.Invalidf("media caption cannot exceed %d characters", MaxCaptionLength)
		}
		mb.Caption = m.Caption
	}
	if m.Type == TypeDocument {
		mb.Filename = m.Filename
	}

	switch m.Type {
	case TypeImage:
		b.Image = mb
	case TypeVideo:
		b.Video = mb
	case TypeDocument:
		b.Document = mb
	case TypeAudio:
		b.Audio = mb
	case TypeSticker:
		b.Sticker = mb
	}
	return b, nil
}

// FromTemplateDraft validates d and builds the send body. Parameters become
// text parameters of the body component.
func FromTemplateDraft(d TemplateDraft) (*MessageBody, error) {
	b, err := newBody(d.To, TypeTemplate, "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Name) == "" {
		return nil, connector.Required("template_name")
	}
	lang := strings.TrimSpace(d.Language)
	if lang == "" {
		lang = DefaultLanguage
	}
	t := &TemplateBody{Name: d.Name, Language: LanguageBody{Code: lang}, Components: []ComponentBody{}}
	if len(d.Parameters) > 0 {
		params := make([]ParameterBody, len(d.Parameters))
		for i, p := range d.Parameters {
			params[i] = ParameterBody{Type: "text", Text: p}
		}
		t.Components = append(t.Components, ComponentBody{Type: "body", Parameters: params})
	}
	b.Template = t
	return b, nil
}

// ReadReceipt builds the body marking messageID as read.
func ReadReceipt(messageID string) (*ReadBody, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, connector.Required("message_id")
	}
	return &ReadBody{MessagingProduct: messagingProduct, Status: "read", MessageID: messageID}, nil
}

// SentMessageID extracts the id of the message a send created.
func SentMessageID(r *SendResponse) (string, error) {
	if r == nil || len(r.Messages) == 0 || r.Messages[0].ID == "" {
		return "", connector.MissingFieldError("send message", "message id")
	}
	return r.Messages[0].ID, nil
}

var placeholder = regexp.MustCompile(`\{\{(\d+)\}\}`)

// Placeholders returns the {{n}} placeholders of a template text in order.
func Placeholders(text string) []string {
	matches := placeholder.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	return matches
}

// ValidTemplateStatus normalizes a status filter; empty matches every status.
func ValidTemplateStatus(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s != "" && !slices.Contains(templateStatuses, s) {
		return "", connector.Invalidf("invalid status %q, must be one of %s", s, strings.Join(templateStatuses, ", "))
	}
	return s, nil
}

// ToTemplate maps a template. Missing status and category default to
// PENDING and UTILITY; values outside the known enums are rejected.
func ToTemplate(r *TemplateRecord) (*Template, error) {
	if r == nil || r.ID == "" {
		return nil, connector.MissingFieldError("template", "id")
	}
	status := strings.ToUpper(r.Status)
	if status == "" {
		status = TemplatePending
	}
	if !slices.Contains(templateStatuses, status) {
		return nil, connector.NewMalformedResponseError("template "+r.Name+" has unknown status "+status, nil)
	}
	category := strings.ToUpper(r.Category)
	if category == "" {
		category = CategoryUtility
	}
	if !slices.Contains(templateCategories, category) {
		return nil, connector.NewMalformedResponseError("template "+r.Name+" has unknown category "+category, nil)
	}
	lang := r.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	t := &Template{ID: r.ID, Name: r.Name, Language: lang, Status: status, Category: category}
	for _, c := range r.Components {
		params := Placeholders(c.Text)
		t.ParameterCount += len(params)
		t.Components = append(t.Components, TemplateComponent{
			Type:       strings.ToUpper(c.Type),
			Format:     c.Format,
			Text:       c.Text,
			Parameters: params,
		})
	}
	return t, nil
}

func unixString(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}

func (r *MessageRecord) media() *IncomingMedia {
	switch r.Type {
	case TypeImage:
		return r.Image
	case TypeVideo:
		return r.Video
	case TypeDocument:
		return r.Document
	case TypeAudio:
		return r.Audio
	case TypeSticker:
		return r.Sticker
	}
	return nil
}

// ToMessage maps an incoming message. Senders are returned in E.164 form.
func ToMessage(r *MessageRecord) (*Message, error) {
	if r == nil || r.ID == "" {
		return nil, connector.MissingFieldError("webhook message", "id")
	}
	m := &Message{
		ID:        r.ID,
		From:      "+" + strings.TrimPrefix(r.From, "+"),
		Timestamp: unixString(r.Timestamp),
		Type:      r.Type,
	}
	if r.Type == TypeText && r.Text != nil {
		m.Text = r.Text.Body
	}
	if in := r.media(); in != nil {
		m.Media = &Media{
			Type:     r.Type,
			ID:       in.ID,
			MimeType: in.MimeType,
			Filename: in.Filename,
			Caption:  in.Caption,
			SHA256:   in.SHA256,
		}
	}
	if r.Context != nil {
		m.ReplyTo = r.Context.ID
	}
	return m, nil
}

// ToStatus maps a delivery status update.
func ToStatus(r *StatusRecord) (*Status, error) {
	if r == nil || r.ID == "" {
		return nil, connector.MissingFieldError("webhook status", "id")
	}
	s := &Status{
		MessageID:   r.ID,
		Status:      r.Status,
		Timestamp:   unixString(r.Timestamp),
		RecipientID: "+" + strings.TrimPrefix(r.RecipientID, "+"),
	}
	for _, e := range r.Errors {
		msg := e.Title
		if e.Message != "" {
			msg = e.Message
		}
		s.Errors = append(s.Errors, strconv.Itoa(e.Code)+": "+msg)
	}
	return s, nil
}

// Notification is the content of one webhook payload.
type Notification struct {
	Messages []Message
	Statuses []Status
	// Skipped counts entries that could not be mapped.
	Skipped int
}

// ParsePayload extracts the messages and statuses of a webhook payload.
// Entries without an id are skipped.
func ParsePayload(p *Payload) (*Notification, error) {
	if p == nil || p.Object == "" {
		return nil, connector.Invalidf("invalid webhook payload")
	}
	if p.Object != PayloadObject {
		return nil, connector.Invalidf("unsupported webhook object %q", p.Object)
	}
	n := &Notification{}
	for _, e := range p.Entry {
		for _, c := range e.Changes {
			v := &c.Value
			names := make(map[string]string, len(v.Contacts))
			for _, ct := range v.Contacts {
				names[ct.WaID] = ct.Profile.Name
			}
			for i := range v.Messages {
				m, err := ToMessage(&v.Messages[i])
				if err != nil {
					n.Skipped++
					continue
				}
				m.ProfileName = names[v.Messages[i].From]
				m.PhoneNumberID = v.Metadata.PhoneNumberID
				n.Messages = append(n.Messages, *m)
			}
			for i := range v.Statuses {
				s, err := ToStatus(&v.Statuses[i])
				if err != nil {
					n.Skipped++
					continue
				}
				n.Statuses = append(n.Statuses, *s)
			}
		}
	}
	return n, nil
}
