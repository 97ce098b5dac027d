package whatsapp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
)

type fakeWhatsApp struct {
	sent      []*MessageBody
	read      *ReadBody
	uploaded  []byte
	uploadMT  string
	templates *TemplatePage
	limit     int
	media     []byte
	noURL     bool
}

func (f *fakeWhatsApp) SendMessage(_ context.Context, body *MessageBody) (*SendResponse, error) {
	f.sent = append(f.sent, body)
	return &SendResponse{Messages: []SentMessage{{ID: "wamid.OUT"}}}, nil
}

func (f *fakeWhatsApp) MarkRead(_ context.Context, body *ReadBody) error {
	f.read = body
	return nil
}

func (f *fakeWhatsApp) UploadMedia(_ context.Context, _, mimeType string, data []byte) (*UploadResponse, error) {
	f.uploaded, f.uploadMT = data, mimeType
	return &UploadResponse{ID: "media-up"}, nil
}

func (f *fakeWhatsApp) GetMedia(_ context.Context, id string) (*MediaRecord, error) {
	if id == "missing" {
		return nil, connector.NewNotFoundError("media not found", nil)
	}
	rec := &MediaRecord{ID: id, MimeType: "audio/ogg", SHA256: "h"}
	if !f.noURL {
		rec.URL = "https://lookaside.test/" + id
	}
	return rec, nil
}

func (f *fakeWhatsApp) DownloadMedia(context.Context, string) (*connector.Response, error) {
	return &connector.Response{Status: 200, Body: f.media}, nil
}

func (f *fakeWhatsApp) ListTemplates(_ context.Context, limit int, _ string) (*TemplatePage, error) {
	f.limit = limit
	return f.templates, nil
}

func newTestService(t *testing.T) (*Service, *fakeWhatsApp) {
	t.Helper()
	f := &fakeWhatsApp{}
	m := accounts.NewManager[API](ServiceName, func(context.Context, string) (API, error) { return f, nil })
	_, err := m.Register(context.Background(), "PNID")
	require.NoError(t, err)
	return NewService(m), f
}

func TestSendTextMessage(t *testing.T) {
	s, f := newTestService(t)
	res := s.SendTextMessage(context.Background(), SendTextRequest{Draft: TextDraft{To: "+34600111222", Text: "hola"}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, SentResponse{MessageID: "wamid.OUT", To: "+34600111222"}, res.Value)

	res = s.SendTextMessage(context.Background(), SendTextRequest{Draft: TextDraft{To: "600111222", Text: "hola"}})
	assert.Equal(t, "send text message failed: malformed request: phone number must be in E.164 format: 600111222", res.Error)
	assert.Len(t, f.sent, 1)
}

func TestSendMediaMessage(t *testing.T) {
	s, f := newTestService(t)
	res := s.SendMediaMessage(context.Background(), SendMediaRequest{
		Draft: MediaDraft{To: "+34600111222", Media: Media{Type: TypeImage, Link: "https://x.test/a.png", Caption: "hi"}},
	})
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Value.MediaID)
	assert.Nil(t, f.uploaded)
	assert.Equal(t, "https://x.test/a.png", f.sent[0].Image.Link)

	res = s.SendMediaMessage(context.Background(), SendMediaRequest{
		Draft: MediaDraft{To: "+34600111222", Media: Media{Type: TypeDocument, Filename: "a.pdf"}},
		Data:  []byte("%PDF-1.4 test"),
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "media-up", res.Value.MediaID)
	assert.Equal(t, "application/pdf", f.uploadMT)
	assert.Equal(t, &MediaBody{ID: "media-up", Filename: "a.pdf"}, f.sent[1].Document)
}

func TestSendMediaMessageValidatesBeforeUpload(t *testing.T) {
	s, f := newTestService(t)
	res := s.SendMediaMessage(context.Background(), SendMediaRequest{
		Draft: MediaDraft{To: "+34600111222", Media: Media{Type: TypeAudio, Caption: "no"}},
		Data:  []byte("OggS"),
	})
	assert.False(t, res.Success)
	assert.Nil(t, f.uploaded)
	assert.Empty(t, f.sent)
}

func TestSendTemplateMessage(t *testing.T) {
	s, f := newTestService(t)
	res := s.SendTemplateMessage(context.Background(), SendTemplateRequest{Draft: TemplateDraft{To: "+34600111222", Name: "hello", Parameters: []string{"Ana"}}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "hello", f.sent[0].Template.Name)
	assert.Len(t, f.sent[0].Template.Components[0].Parameters, 1)
}

func TestListTemplates(t *testing.T) {
	s, f := newTestService(t)
	f.templates = &TemplatePage{Data: []TemplateRecord{
		{ID: "t1", Name: "a", Status: "APPROVED", Category: "MARKETING"},
		{ID: "t2", Name: "b", Status: "REJECTED"},
		{ID: "t3", Name: "c", Status: "PAUSED"},
	}}

	res := s.ListTemplates(context.Background(), ListTemplatesRequest{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Value.Count)
	assert.Equal(t, 1, res.Value.Skipped)
	assert.Equal(t, DefaultTemplateLimit, f.limit)

	res = s.ListTemplates(context.Background(), ListTemplatesRequest{Status: "approved", Limit: 1000})
	require.True(t, res.Success, res.Error)
	require.Equal(t, 1, res.Value.Count)
	assert.Equal(t, "t1", res.Value.Templates[0].ID)
	assert.Equal(t, MaxTemplateLimit, f.limit)

	res = s.ListTemplates(context.Background(), ListTemplatesRequest{Status: "DRAFT"})
	assert.Contains(t, res.Error, "list templates failed: malformed request: invalid status")
}

func TestDownloadMedia(t *testing.T) {
	s, f := newTestService(t)
	f.media = []byte("OggS-data")

	res := s.DownloadMedia(context.Background(), DownloadMediaRequest{MediaID: "m1"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "audio/ogg", res.Value.MimeType)
	assert.Equal(t, 9, res.Value.SizeBytes)
	assert.Equal(t, f.media, res.Value.Data)

	path := filepath.Join(t.TempDir(), "inbox", "voice.ogg")
	res = s.DownloadMedia(context.Background(), DownloadMediaRequest{MediaID: "m1", SavePath: path})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, path, res.Value.SavedPath)
	assert.Nil(t, res.Value.Data)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f.media, data)

	res = s.DownloadMedia(context.Background(), DownloadMediaRequest{MediaID: "missing"})
	assert.Contains(t, res.Error, "not found")

	f.noURL = true
	res = s.DownloadMedia(context.Background(), DownloadMediaRequest{MediaID: "m2"})
	assert.Contains(t, res.Error, "malformed response")

	res = s.DownloadMedia(context.Background(), DownloadMediaRequest{})
	assert.Equal(t, "download media failed: malformed request: media_id is required", res.Error)
}

func TestMarkAsRead(t *testing.T) {
	s, f := newTestService(t)
	res := s.MarkAsRead(context.Background(), MarkReadRequest{MessageID: "wamid.IN"})
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Value.Read)
	assert.Equal(t, "wamid.IN", f.read.MessageID)
}
