package gmail

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/connectorhub/internal/connector"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func fullMessage() *gmail.Message {
	return &gmail.Message{
		Id:       "msg1",
		ThreadId: "thr1",
		Snippet:  "Hello there",
		LabelIds: []string{"INBOX", "UNREAD", "STARRED"},
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: `"Jane Doe" <jane@example.com>`},
				{Name: "to", Value: "a@example.com, Bob <b@example.com>"},
				{Name: "CC", Value: "c@example.com"},
				{Name: "Subject", Value: "=?UTF-8?b?R3LDvMOfZQ==?="},
				{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"},
				{Name: "Message-ID", Value: "<abc@mail.example.com>"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("plain body")}},
						{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>html body</p>")}},
					},
				},
				{
					MimeType: "application/pdf",
					Filename: "report.pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "att1", Size: 2048},
				},
			},
		},
	}
}

func TestToEmailFullMessage(t *testing.T) {
	e, err := ToEmail(fullMessage())
	require.NoError(t, err)

	assert.Equal(t, "msg1", e.ID)
	assert.Equal(t, "thr1", e.ThreadID)
	assert.Equal(t, "Grüße", e.Subject)
	assert.Equal(t, Address{Email: "jane@example.com", Name: "Jane Doe"}, e.From)
	assert.Equal(t, []Address{{Email: "a@example.com"}, {Email: "b@example.com", Name: "Bob"}}, e.To)
	assert.Equal(t, []Address{{Email: "c@example.com"}}, e.Cc)
	assert.Equal(t, "plain body", e.BodyText)
	assert.Equal(t, "<p>html body</p>", e.BodyHTML)
	assert.Equal(t, "<abc@mail.example.com>", e.MessageID)
	require.NotNil(t, e.Date)
	assert.Equal(t, 2006, e.Date.Year())
	assert.False(t, e.IsRead)
	assert.True(t, e.IsStarred)
	require.Len(t, e.Attachments, 1)
	assert.Equal(t, Attachment{Filename: "report.pdf", MimeType: "application/pdf", Size: 2048, AttachmentID: "att1"}, e.Attachments[0])

	s := e.Summarize()
	assert.True(t, s.HasAttachments)
	assert.Equal(t, "jane@example.com", s.FromEmail)
	assert.Equal(t, "Jane Doe", s.FromName)
}

func TestToEmailSimpleMessage(t *testing.T) {
	e, err := ToEmail(&gmail.Message{
		Id: "m",
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Headers:  []*gmail.MessagePartHeader{{Name: "From", Value: "solo@example.com"}},
			Body:     &gmail.MessagePartBody{Data: b64("just text")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "just text", e.BodyText)
	assert.Empty(t, e.BodyHTML)
	assert.Equal(t, Address{Email: "solo@example.com"}, e.From)
	assert.True(t, e.IsRead)
	assert.Empty(t, e.Attachments)
}

func TestToEmailMissingHeaders(t *testing.T) {
	e, err := ToEmail(&gmail.Message{Id: "m", Payload: &gmail.MessagePart{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultSubject, e.Subject)
	assert.Equal(t, Address{}, e.From)
	assert.Empty(t, e.To)
	assert.Nil(t, e.Date)
	assert.NotNil(t, e.Labels)
}

func TestToEmailInvalidDateIgnored(t *testing.T) {
	e, err := ToEmail(&gmail.Message{Id: "m", Payload: &gmail.MessagePart{
		Headers: []*gmail.MessagePartHeader{{Name: "Date", Value: "yesterday-ish"}},
	}})
	require.NoError(t, err)
	assert.Nil(t, e.Date)
}

func TestToEmailRequiresID(t *testing.T) {
	_, err := ToEmail(&gmail.Message{Snippet: "no id"})
	assert.ErrorIs(t, err, connector.ErrMalformedResponse)

	_, err = ToEmail(nil)
	assert.ErrorIs(t, err, connector.ErrMalformedResponse)
}

func TestParseAddressFallback(t *testing.T) {
	assert.Equal(t, Address{Email: "x@y.z", Name: "Broken Name"}, parseAddress(`Broken Name" <x@y.z>`))
	assert.Equal(t, Address{Email: "plain"}, parseAddress("plain"))
	assert.Equal(t, []Address{{Email: "a@b.c"}, {Email: "weird"}}, parseAddressList("a@b.c, weird"))
}

func TestFromDraftSimple(t *testing.T) {
	raw, err := FromDraft(Draft{
		To:       []Address{{Email: "to@example.com"}},
		Subject:  "Hello",
		BodyText: "Body",
	})
	require.NoError(t, err)

	data, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "To: <to@example.com>\r\n")
	assert.Contains(t, s, "Subject: Hello\r\n")
	assert.Contains(t, s, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.NotContains(t, s, "multipart")
	assert.True(t, strings.HasSuffix(s, "\r\n\r\nBody"))
}

func TestFromDraftHTMLIsAlternative(t *testing.T) {
	raw, err := FromDraft(Draft{
		To:       []Address{{Email: "to@example.com"}},
		Subject:  "Hi",
		BodyText: "text",
		BodyHTML: "<b>html</b>",
	})
	require.NoError(t, err)
	data, _ := base64.URLEncoding.DecodeString(raw)
	assert.Contains(t, string(data), "multipart/alternative")
	assert.NotContains(t, string(data), "multipart/mixed")
}

func TestFromDraftIsDeterministic(t *testing.T) {
	d := Draft{
		To:          []Address{{Email: "to@example.com", Name: "To"}},
		Subject:     "Report",
		BodyText:    "see attached",
		BodyHTML:    "<p>see attached</p>",
		Attachments: []Attachment{{Filename: "a.txt", MimeType: "text/plain", Data: []byte("abc")}},
	}
	a, err := FromDraft(d)
	require.NoError(t, err)
	b, err := FromDraft(d)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	d.BodyText = "changed"
	c, err := FromDraft(d)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFromDraftValidation(t *testing.T) {
	_, err := FromDraft(Draft{Subject: "x"})
	assert.ErrorIs(t, err, connector.ErrMalformedRequest)

	_, err = FromDraft(Draft{To: []Address{{Email: "not an address"}}})
	assert.ErrorIs(t, err, connector.ErrMalformedRequest)
}

func TestFromDraftHeaderInjection(t *testing.T) {
	raw, err := FromDraft(Draft{To: []Address{{Email: "to@example.com"}}, Subject: "hi\r\nBcc: evil@example.com"})
	require.NoError(t, err)
	data, _ := base64.URLEncoding.DecodeString(raw)
	assert.NotContains(t, string(data), "\r\nBcc:")
}

// A draft rendered by FromDraft reads back through ToEmail with the same
// recipients, subject, bodies and attachments.
func TestDraftRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
	}{
		{
			name: "plain",
			draft: Draft{
				To:       []Address{{Email: "to@example.com"}},
				Subject:  "Plain",
				BodyText: "line one\nline two with trailing space \nüñí©ødé",
			},
		},
		{
			name: "html with cc and bcc",
			draft: Draft{
				To:        []Address{{Email: "a@example.com", Name: "Ann Example"}, {Email: "b@example.com"}},
				Cc:        []Address{{Email: "c@example.com"}},
				Bcc:       []Address{{Email: "d@example.com"}},
				Subject:   "Grüße aus Köln",
				BodyText:  "text version",
				BodyHTML:  "<p>html version</p>",
				InReplyTo: "<orig@example.com>",
			},
		},
		{
			name: "attachments",
			draft: Draft{
				To:       []Address{{Email: "to@example.com"}},
				Subject:  "Files",
				BodyHTML: "<p>two files</p>",
				Attachments: []Attachment{
					{Filename: "notes.txt", MimeType: "text/plain", Data: []byte("some notes")},
					{Filename: "blob.bin", MimeType: "application/octet-stream", Data: []byte(strings.Repeat("\x00\x01\x02", 100))},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := FromDraft(tt.draft)
			require.NoError(t, err)

			e, err := ToEmail(&gmail.Message{Id: "rt", Raw: raw})
			require.NoError(t, err)

			assert.Equal(t, tt.draft.To, e.To)
			assert.Equal(t, nonNil(tt.draft.Cc), e.Cc)
			assert.Equal(t, nonNil(tt.draft.Bcc), e.Bcc)
			assert.Equal(t, tt.draft.Subject, e.Subject)
			assert.Equal(t, tt.draft.BodyText, e.BodyText)
			assert.Equal(t, tt.draft.BodyHTML, e.BodyHTML)
			require.Len(t, e.Attachments, len(tt.draft.Attachments))
			for i, a := range tt.draft.Attachments {
				assert.Equal(t, a.Filename, e.Attachments[i].Filename)
				assert.Equal(t, a.MimeType, e.Attachments[i].MimeType)
				assert.Equal(t, int64(len(a.Data)), e.Attachments[i].Size)
			}
		})
	}
}

func nonNil(a []Address) []Address {
	if a == nil {
		return []Address{}
	}
	return a
}
