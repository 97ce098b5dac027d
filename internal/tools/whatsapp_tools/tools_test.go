package whatsapp_tools

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/tools/toolstest"
)

func newWhatsAppServer(t *testing.T, handler http.HandlerFunc, readOnly bool) *mcpserver.MCPServer {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer wa-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(api.Close)

	sc := toolstest.NewServerContext(t, map[string]string{
		"WHATSAPP_ACCESS_TOKEN":        "wa-token",
		"WHATSAPP_PHONE_NUMBER_ID":     "1055",
		"WHATSAPP_BUSINESS_ACCOUNT_ID": "2077",
		"WHATSAPP_API_BASE_URL":        api.URL,
	}, readOnly)
	s := toolstest.NewMCPServer()
	require.NoError(t, RegisterWhatsAppTools(s, sc, readOnly))
	return s
}

func sentOK(w http.ResponseWriter) {
	_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.1"}]}`))
}

func TestRegisterWhatsAppTools(t *testing.T) {
	readOnly := []string{
		"list_whatsapp_accounts",
		"set_default_whatsapp_account",
		"whatsapp_download_media",
		"whatsapp_list_templates",
	}
	s := newWhatsAppServer(t, func(w http.ResponseWriter, r *http.Request) {}, true)
	assert.Equal(t, readOnly, toolstest.ToolNames(t, s))

	s = newWhatsAppServer(t, func(w http.ResponseWriter, r *http.Request) {}, false)
	names := toolstest.ToolNames(t, s)
	assert.Len(t, names, len(readOnly)+7)
	for _, n := range []string{
		"add_whatsapp_account",
		"remove_whatsapp_account",
		"whatsapp_mark_as_read",
		"whatsapp_send_document",
		"whatsapp_send_image",
		"whatsapp_send_template",
		"whatsapp_send_text_message",
	} {
		assert.Contains(t, names, n)
	}
}

func TestSendTextMessage(t *testing.T) {
	var body map[string]any
	s := newWhatsAppServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v18.0/1055/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sentOK(w)
	}, false)

	res := toolstest.CallTool(t, s, "whatsapp_send_text_message", map[string]any{
		"to":       "+34600111222",
		"text":     "  hello  ",
		"reply_to": "wamid.0",
	})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "wamid.1", res.JSON["message_id"])
	assert.Equal(t, "+34600111222", res.JSON["to"])

	assert.Equal(t, "34600111222", body["to"])
	assert.Equal(t, "text", body["type"])
	text := body["text"].(map[string]any)
	assert.Equal(t, "  hello  ", text["body"])
	assert.Equal(t, map[string]any{"message_id": "wamid.0"}, body["context"])
}

func TestSendDocument_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o600))

	var uploaded string
	var body map[string]any
	s := newWhatsAppServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v18.0/1055/media":
			f, hdr, err := r.FormFile("file")
			if !assert.NoError(t, err) {
				return
			}
			defer f.Close()
			data, _ := io.ReadAll(f)
			uploaded = hdr.Filename + ":" + string(data)
			_, _ = w.Write([]byte(`{"id":"media-9"}`))
		case "/v18.0/1055/messages":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			sentOK(w)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, false)

	res := toolstest.CallTool(t, s, "whatsapp_send_document", map[string]any{
		"to":        "+34600111222",
		"file_path": path,
		"mime_type": "application/pdf",
		"caption":   "Q3",
	})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "media-9", res.JSON["media_id"])
	assert.Equal(t, "report.pdf:%PDF-1.4 test", uploaded)

	doc := body["document"].(map[string]any)
	assert.Equal(t, "media-9", doc["id"])
	assert.Equal(t, "report.pdf", doc["filename"])
	assert.Equal(t, "Q3", doc["caption"])
}

func TestSendImage_ByLink(t *testing.T) {
	var body map[string]any
	s := newWhatsAppServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v18.0/1055/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sentOK(w)
	}, false)

	res := toolstest.CallTool(t, s, "whatsapp_send_image", map[string]any{
		"to":   "+34600111222",
		"link": "https://example.com/cat.png",
	})
	require.False(t, res.IsError, res.Text)
	image := body["image"].(map[string]any)
	assert.Equal(t, "https://example.com/cat.png", image["link"])
	_, hasName := image["filename"]
	assert.False(t, hasName)
}

func TestSendTemplate(t *testing.T) {
	var body map[string]any
	s := newWhatsAppServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sentOK(w)
	}, false)

	res := toolstest.CallTool(t, s, "whatsapp_send_template", map[string]any{
		"to":            "+34600111222",
		"template_name": "order_update",
		"language":      "es",
		"parameters":    []any{"Ana", "#42"},
	})
	require.False(t, res.IsError, res.Text)
	tmpl := body["template"].(map[string]any)
	assert.Equal(t, "order_update", tmpl["name"])
	assert.Equal(t, map[string]any{"code": "es"}, tmpl["language"])
	components := tmpl["components"].([]any)
	require.Len(t, components, 1)
	params := components[0].(map[string]any)["parameters"].([]any)
	require.Len(t, params, 2)
	assert.Equal(t, "Ana", params[0].(map[string]any)["text"])
}

func TestListTemplates(t *testing.T) {
	s := newWhatsAppServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v18.0/2077/message_templates", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[
			{"id":"t1","name":"hello","language":"en_US","status":"APPROVED","category":"UTILITY"},
			{"id":"t2","name":"promo","language":"en_US","status":"PENDING","category":"MARKETING"}
		]}`))
	}, true)

	res := toolstest.CallTool(t, s, "whatsapp_list_templates", map[string]any{
		"status": "APPROVED",
		"limit":  10,
	})
	require.False(t, res.IsError, res.Text)
	assert.EqualValues(t, 1, res.JSON["count"])
	templates := res.JSON["templates"].([]any)
	assert.Equal(t, "hello", templates[0].(map[string]any)["name"])
}

func TestMessageToolErrors(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantErr string
	}{
		{
			name:    "missing recipient",
			tool:    "whatsapp_send_text_message",
			args:    map[string]any{"text": "hi"},
			wantErr: "to",
		},
		{
			name:    "empty text",
			tool:    "whatsapp_send_text_message",
			args:    map[string]any{"to": "+34600111222", "text": "   "},
			wantErr: "text is required",
		},
		{
			name:    "text too long",
			tool:    "whatsapp_send_text_message",
			args:    map[string]any{"to": "+34600111222", "text": strings.Repeat("a", 4097)},
			wantErr: "4096",
		},
		{
			name:    "file and data",
			tool:    "whatsapp_send_image",
			args:    map[string]any{"to": "+34600111222", "file_path": "/tmp/x", "data": "eA=="},
			wantErr: "mutually exclusive",
		},
		{
			name:    "bad base64",
			tool:    "whatsapp_send_image",
			args:    map[string]any{"to": "+34600111222", "data": "!!"},
			wantErr: "base64",
		},
		{
			name:    "missing file",
			tool:    "whatsapp_send_document",
			args:    map[string]any{"to": "+34600111222", "file_path": "/does/not/exist.pdf"},
			wantErr: "file_path",
		},
		{
			name:    "unknown account",
			tool:    "whatsapp_mark_as_read",
			args:    map[string]any{"account": "other", "message_id": "wamid.1"},
			wantErr: `"other" is not registered`,
		},
		{
			name:    "invalid template status",
			tool:    "whatsapp_list_templates",
			args:    map[string]any{"status": "DRAFT"},
			wantErr: "status",
		},
	}
	calls := 0
	s := newWhatsAppServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		sentOK(w)
	}, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := toolstest.CallTool(t, s, tt.tool, tt.args)
			assert.True(t, res.IsError)
			assert.Equal(t, false, res.JSON["success"])
			assert.Contains(t, res.JSON["error"], tt.wantErr)
		})
	}
	assert.Zero(t, calls)
}

func TestMediaData(t *testing.T) {
	data, name, err := mediaData(map[string]any{"data": base64.StdEncoding.EncodeToString([]byte("png"))})
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Empty(t, name)

	data, _, err = mediaData(map[string]any{"media_id": "m1"})
	require.NoError(t, err)
	assert.Nil(t, data)
}
