package gmail

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"slices"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/connectorhub/internal/connector"
)

// ToEmail converts a Gmail message in full or raw format. Missing optional
// fields are left empty; only a message without id is rejected.
func ToEmail(msg *gmail.Message) (*Email, error) {
	if msg == nil || msg.Id == "" {
		return nil, connector.NewMalformedResponseError("gmail message has no id", nil)
	}
	e := &Email{
		ID:          msg.Id,
		ThreadID:    msg.ThreadId,
		Snippet:     msg.Snippet,
		Labels:      slices.Clone(msg.LabelIds),
		Attachments: []Attachment{},
	}
	if e.Labels == nil {
		e.Labels = []string{}
	}

	var headers map[string]string
	switch {
	case msg.Payload != nil:
		headers = partHeaders(msg.Payload)
		e.BodyText, e.BodyHTML = extractBody(msg.Payload)
		e.Attachments = extractAttachments(msg.Payload)
	case msg.Raw != "":
		raw, err := parseRaw(msg.Raw)
		if err != nil {
			return nil, connector.NewMalformedResponseError("decode raw message "+msg.Id, err)
		}
		headers = raw.headers
		e.BodyText, e.BodyHTML, e.Attachments = raw.text, raw.html, raw.attachments
	}
	applyHeaders(e, headers)

	e.IsRead = !e.HasLabel(LabelUnread)
	e.IsStarred = e.HasLabel(LabelStarred)
	return e, nil
}

func partHeaders(p *gmail.MessagePart) map[string]string {
	out := make(map[string]string, len(p.Headers))
	for _, h := range p.Headers {
		k := strings.ToLower(h.Name)
		if _, ok := out[k]; !ok {
			out[k] = h.Value
		}
	}
	return out
}

var wordDecoder = new(mime.WordDecoder)

func applyHeaders(e *Email, h map[string]string) {
	e.Subject = DefaultSubject
	if s := strings.TrimSpace(h["subject"]); s != "" {
		if dec, err := wordDecoder.DecodeHeader(s); err == nil {
			s = dec
		}
		e.Subject = s
	}
	e.From = parseAddress(h["from"])
	e.To = parseAddressList(h["to"])
	e.Cc = parseAddressList(h["cc"])
	e.Bcc = parseAddressList(h["bcc"])
	e.MessageID = strings.TrimSpace(h["message-id"])
	if d := h["date"]; d != "" {
		if t, err := mail.ParseDate(d); err == nil {
			e.Date = &t
		}
	}
}

func parseAddress(s string) Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}
	}
	if a, err := mail.ParseAddress(s); err == nil {
		return Address{Email: a.Address, Name: a.Name}
	}
	if i := strings.Index(s, "<"); i >= 0 {
		if j := strings.Index(s[i:], ">"); j > 0 {
			name := strings.Trim(strings.TrimSpace(s[:i]), `"`)
			return Address{Email: strings.TrimSpace(s[i+1 : i+j]), Name: name}
		}
	}
	return Address{Email: s}
}

func parseAddressList(s string) []Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return []Address{}
	}
	if list, err := mail.ParseAddressList(s); err == nil {
		out := make([]Address, 0, len(list))
		for _, a := range list {
			out = append(out, Address{Email: a.Address, Name: a.Name})
		}
		return out
	}
	var out []Address
	for _, part := range strings.Split(s, ",") {
		if a := parseAddress(part); a.Email != "" {
			out = append(out, a)
		}
	}
	if out == nil {
		out = []Address{}
	}
	return out
}

type rawMessage struct {
	headers     map[string]string
	text        string
	html        string
	attachments []Attachment
}

func parseRaw(raw string) (*rawMessage, error) {
	data, err := decodeData(raw)
	if err != nil {
		return nil, err
	}
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	out := &rawMessage{headers: make(map[string]string, len(msg.Header)), attachments: []Attachment{}}
	for k, vs := range msg.Header {
		if len(vs) > 0 {
			out.headers[strings.ToLower(k)] = vs[0]
		}
	}
	if err := out.walk(textproto.MIMEHeader(msg.Header), msg.Body); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *rawMessage) walk(h textproto.MIMEHeader, body io.Reader) error {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mediaType, params = "text/plain", nil
	}
	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read multipart: %w", err)
			}
			if err := m.walk(p.Header, p); err != nil {
				return err
			}
		}
	}

	content, err := io.ReadAll(transferDecoder(h.Get("Content-Transfer-Encoding"), body))
	if err != nil {
		return fmt.Errorf("decode part: %w", err)
	}

	disposition, dparams, _ := mime.ParseMediaType(h.Get("Content-Disposition"))
	filename := dparams["filename"]
	if filename == "" {
		filename = params["name"]
	}
	if filename != "" || disposition == "attachment" {
		m.attachments = append(m.attachments, Attachment{Filename: filename, MimeType: mediaType, Size: int64(len(content))})
		return nil
	}
	switch {
	case mediaType == "text/plain" && m.text == "":
		m.text = normalizeNewlines(string(content))
	case mediaType == "text/html" && m.html == "":
		m.html = normalizeNewlines(string(content))
	}
	return nil
}

func transferDecoder(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	}
	return r
}

// FromDraft renders d as a base64url encoded RFC 5322 message for
// messages.send. The output depends only on d: MIME boundaries are derived
// from a hash of the draft.
func FromDraft(d Draft) (string, error) {
	b, err := buildMIME(d)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func validateDraft(d Draft) error {
	if len(d.To) == 0 {
		return connector.Required("to")
	}
	for _, list := range [][]Address{d.To, d.Cc, d.Bcc} {
		for _, a := range list {
			if _, err := mail.ParseAddress(a.Email); err != nil {
				return connector.Invalidf("invalid email address %q", a.Email)
			}
		}
	}
	for _, a := range d.Attachments {
		if a.Filename == "" {
			return connector.Required("attachment filename")
		}
	}
	return nil
}

func buildMIME(d Draft) ([]byte, error) {
	if err := validateDraft(d); err != nil {
		return nil, err
	}
	seed := draftSeed(d)
	var buf bytes.Buffer

	header(&buf, "MIME-Version", "1.0")
	header(&buf, "To", joinAddresses(d.To))
	if len(d.Cc) > 0 {
		header(&buf, "Cc", joinAddresses(d.Cc))
	}
	if len(d.Bcc) > 0 {
		header(&buf, "Bcc", joinAddresses(d.Bcc))
	}
	header(&buf, "Subject", encodeRFC2047(d.Subject))
	if d.InReplyTo != "" {
		header(&buf, "In-Reply-To", d.InReplyTo)
		header(&buf, "References", d.InReplyTo)
	}

	switch {
	case len(d.Attachments) > 0:
		mw := multipart.NewWriter(&buf)
		if err := mw.SetBoundary(boundary("mixed", seed)); err != nil {
			return nil, err
		}
		header(&buf, "Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()}))
		buf.WriteString("\r\n")
		if d.BodyHTML != "" {
			if err := writeAlternative(mw, d, seed); err != nil {
				return nil, err
			}
		} else if err := writeText(mw, "text/plain", d.BodyText); err != nil {
			return nil, err
		}
		for _, a := range d.Attachments {
			if err := writeAttachment(mw, a); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
	case d.BodyHTML != "":
		mw := multipart.NewWriter(&buf)
		if err := mw.SetBoundary(boundary("alt", seed)); err != nil {
			return nil, err
		}
		header(&buf, "Content-Type", mime.FormatMediaType("multipart/alternative", map[string]string{"boundary": mw.Boundary()}))
		buf.WriteString("\r\n")
		if err := writeBodies(mw, d); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
	default:
		header(&buf, "Content-Type", mime.FormatMediaType("text/plain", map[string]string{"charset": "UTF-8"}))
		header(&buf, "Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		qw := quotedprintable.NewWriter(&buf)
		if _, err := qw.Write([]byte(d.BodyText)); err != nil {
			return nil, err
		}
		if err := qw.Close(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeAlternative(mw *multipart.Writer, d Draft, seed string) error {
	var inner bytes.Buffer
	alt := multipart.NewWriter(&inner)
	if err := alt.SetBoundary(boundary("alt", seed)); err != nil {
		return err
	}
	if err := writeBodies(alt, d); err != nil {
		return err
	}
	if err := alt.Close(); err != nil {
		return err
	}
	w, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {mime.FormatMediaType("multipart/alternative", map[string]string{"boundary": alt.Boundary()})},
	})
	if err != nil {
		return err
	}
	_, err = w.Write(inner.Bytes())
	return err
}

func writeBodies(mw *multipart.Writer, d Draft) error {
	if d.BodyText != "" {
		if err := writeText(mw, "text/plain", d.BodyText); err != nil {
			return err
		}
	}
	return writeText(mw, "text/html", d.BodyHTML)
}

func writeText(mw *multipart.Writer, mediaType, body string) error {
	w, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType(mediaType, map[string]string{"charset": "UTF-8"})},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return err
	}
	qw := quotedprintable.NewWriter(w)
	if _, err := qw.Write([]byte(body)); err != nil {
		return err
	}
	return qw.Close()
}

func writeAttachment(mw *multipart.Writer, a Attachment) error {
	mediaType := a.MimeType
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil && strings.Contains(mt, "/") {
		mediaType = mt
	} else {
		mediaType = "application/octet-stream"
	}
	name := SanitizeFilename(a.Filename)
	w, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType(mediaType, map[string]string{"name": name})},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": name})},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return err
	}
	enc := base64.StdEncoding.EncodeToString(a.Data)
	for len(enc) > 76 {
		if _, err := io.WriteString(w, enc[:76]+"\r\n"); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err = io.WriteString(w, enc+"\r\n")
	return err
}

// header writes one header line. CR and LF are dropped from values so
// caller supplied text cannot inject headers.
func header(buf *bytes.Buffer, name, value string) {
	value = strings.NewReplacer("\r", "", "\n", " ").Replace(value)
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func joinAddresses(list []Address) string {
	parts := make([]string, 0, len(list))
	for _, a := range list {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}

// encodeRFC2047 encodes non-ASCII header text such as umlauts in subjects.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

func draftSeed(d Draft) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	for _, list := range [][]Address{d.To, d.Cc, d.Bcc} {
		for _, a := range list {
			write(a.String())
		}
		write("|")
	}
	write(d.Subject)
	write(d.BodyText)
	write(d.BodyHTML)
	write(d.InReplyTo)
	for _, a := range d.Attachments {
		write(a.Filename)
		write(a.MimeType)
		h.Write(a.Data)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// boundary starts with "=_", which cannot occur in quoted-printable or
// base64 content.
func boundary(kind, seed string) string {
	return "=_" + kind + "_" + seed
}
