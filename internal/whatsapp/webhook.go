package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/teemow/connectorhub/internal/logging"
)

// WebhookPath is where the HTTP transport mounts the webhook.
const WebhookPath = "/webhook/whatsapp"

// SignatureHeader carries the HMAC-SHA256 of the body keyed by the app secret.
const SignatureHeader = "X-Hub-Signature-256"

const (
	defaultDedupeSize = 10000
	defaultDedupeTTL  = 24 * time.Hour
	maxWebhookBody    = 1 << 20
)

// Webhook event kinds and outcomes.
const (
	EventVerification = "verification"
	EventMessage      = "message"
	EventStatus       = "status"
	EventPayload      = "payload"

	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
)

// Recorder counts webhook events. instrumentation.Metrics implements it.
type Recorder interface {
	RecordWebhookEvent(ctx context.Context, kind, outcome string)
}

// WebhookConfig configures the webhook endpoint.
type WebhookConfig struct {
	VerifyToken string
	// AppSecret verifies payload signatures. Without it notifications are
	// rejected; subscription verification still works.
	AppSecret  string
	DedupeSize int
	DedupeTTL  time.Duration
}

// Webhook receives Meta's subscription verification and notifications.
// Meta redelivers notifications that were not acknowledged in time, so
// message and status ids already seen are dropped.
type Webhook struct {
	cfg      WebhookConfig
	logger   *slog.Logger
	recorder Recorder

	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

// NewWebhook creates the handler. recorder may be nil.
func NewWebhook(cfg WebhookConfig, logger *slog.Logger, recorder Recorder) *Webhook {
	if cfg.DedupeSize <= 0 {
		cfg.DedupeSize = defaultDedupeSize
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = defaultDedupeTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AppSecret == "" {
		logger.Warn("whatsapp app secret not configured, webhook notifications will be rejected")
	}
	return &Webhook{
		cfg:      cfg,
		logger:   logging.WithService(logger, ServiceName),
		recorder: recorder,
		seen:     expirable.NewLRU[string, struct{}](cfg.DedupeSize, nil, cfg.DedupeTTL),
	}
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verify(w, r)
	case http.MethodPost:
		h.receive(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Webhook) record(ctx context.Context, kind, outcome string) {
	if h.recorder != nil {
		h.recorder.RecordWebhookEvent(ctx, kind, outcome)
	}
}

func (h *Webhook) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("hub.verify_token")
	if q.Get("hub.mode") != "subscribe" || h.cfg.VerifyToken == "" ||
		!hmac.Equal([]byte(token), []byte(h.cfg.VerifyToken)) {
		h.record(r.Context(), EventVerification, OutcomeRejected)
		h.logger.Warn("webhook verification rejected", "mode", q.Get("hub.mode"))
		http.Error(w, "verification token mismatch or invalid mode", http.StatusForbidden)
		return
	}
	h.record(r.Context(), EventVerification, OutcomeAccepted)
	h.logger.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

// ValidSignature reports whether header is "sha256=<hex hmac>" of body
// keyed by secret.
func ValidSignature(body []byte, header, secret string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

type webhookAck struct {
	Status     string `json:"status"`
	Messages   int    `json:"messages"`
	Statuses   int    `json:"statuses"`
	Duplicates int    `json:"duplicates"`
}

func (h *Webhook) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil || len(body) > maxWebhookBody {
		h.record(ctx, EventPayload, OutcomeRejected)
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	if h.cfg.AppSecret == "" {
		h.record(ctx, EventPayload, OutcomeRejected)
		h.logger.Warn("webhook notification rejected, no app secret to verify it")
		http.Error(w, "webhook signatures cannot be verified", http.StatusForbidden)
		return
	}
	if !ValidSignature(body, r.Header.Get(SignatureHeader), h.cfg.AppSecret) {
		h.record(ctx, EventPayload, OutcomeRejected)
		h.logger.Warn("webhook signature rejected")
		http.Error(w, "invalid webhook signature", http.StatusForbidden)
		return
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		h.record(ctx, EventPayload, OutcomeRejected)
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	n, err := ParsePayload(&p)
	if err != nil {
		// Acknowledged anyway; Meta would keep redelivering it.
		h.record(ctx, EventPayload, OutcomeRejected)
		h.logger.Warn("webhook payload ignored", logging.Err(err))
		writeAck(w, webhookAck{Status: "ignored"})
		return
	}
	h.record(ctx, EventPayload, OutcomeAccepted)
	if n.Skipped > 0 {
		h.logger.Warn("webhook entries without id skipped", "count", n.Skipped)
	}

	ack := webhookAck{Status: "received"}
	for _, m := range n.Messages {
		if h.duplicate("m:" + m.ID) {
			ack.Duplicates++
			h.record(ctx, EventMessage, OutcomeDuplicate)
			continue
		}
		ack.Messages++
		h.record(ctx, EventMessage, OutcomeAccepted)
		h.logger.Info("whatsapp message received",
			"message_id", m.ID,
			"type", m.Type,
			"from", logging.AnonymizeAccount(m.From),
			"phone_number_id", m.PhoneNumberID,
			"reply", m.ReplyTo != "",
		)
	}
	for _, s := range n.Statuses {
		if h.duplicate("s:" + s.MessageID + ":" + s.Status) {
			ack.Duplicates++
			h.record(ctx, EventStatus, OutcomeDuplicate)
			continue
		}
		ack.Statuses++
		h.record(ctx, EventStatus, OutcomeAccepted)
		attrs := []any{"message_id", s.MessageID, logging.Status(s.Status)}
		if len(s.Errors) > 0 {
			attrs = append(attrs, "errors", s.Errors)
		}
		h.logger.Info("whatsapp status update", attrs...)
	}
	writeAck(w, ack)
}

// duplicate marks key as seen and reports whether it already was.
func (h *Webhook) duplicate(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seen.Contains(key) {
		return true
	}
	h.seen.Add(key, struct{}{})
	return false
}

func writeAck(w http.ResponseWriter, ack webhookAck) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ack)
}
