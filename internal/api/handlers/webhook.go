package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/pratik-mahalle/jobtrail/internal/api/dto"
	"github.com/pratik-mahalle/jobtrail/internal/api/middleware"
	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/metrics"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/utils"
)

const (
	maxWebhookBody  = 1 << 20
	signatureHeader = "Stripe-Signature"
	archiveTimeout  = 10 * time.Second
)

// WebhookHandler receives payment gateway webhook deliveries
type WebhookHandler struct {
	gateway    billing.Gateway
	reconciler billing.Reconciler
	events     billing.EventLog
	archiver   billing.Archiver
	cfg        config.BillingConfig
	logger     *logger.Logger
	now        func() time.Time
}

// NewWebhookHandler creates a new WebhookHandler. events and archiver may be nil.
func NewWebhookHandler(
	gateway billing.Gateway,
	reconciler billing.Reconciler,
	events billing.EventLog,
	archiver billing.Archiver,
	cfg config.BillingConfig,
	log *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		gateway:    gateway,
		reconciler: reconciler,
		events:     events,
		archiver:   archiver,
		cfg:        cfg,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle verifies and reconciles one webhook delivery. Only persistence
// failures answer 5xx, which makes the gateway retry the delivery.
// @Summary Payment gateway webhook
// @Description Receives signed Stripe events and reconciles user entitlements
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Webhook signature"
// @Success 200 {object} dto.WebhookAck "Delivery accepted"
// @Failure 400 {object} utils.ErrorResponse "Missing or invalid signature"
// @Failure 500 {object} utils.ErrorResponse "Reconciliation failed"
// @Failure 503 {object} utils.ErrorResponse "Webhook not configured"
// @Router /stripe/webhook [post]
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		metrics.RecordWebhook(eventType, status, time.Since(start))
	}()

	if !h.cfg.PaymentsEnabled {
		eventType = "disabled"
		h.ack(w)
		return
	}

	if h.cfg.WebhookSecret == "" {
		status = http.StatusServiceUnavailable
		h.logger.Error("Webhook received but STRIPE_WEBHOOK_SECRET is not set")
		utils.WriteError(w, errors.ServiceUnavailable("Webhook not configured"))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
			utils.WriteErrorMessage(w, status, errors.ErrCodeBadRequest, "Webhook payload too large")
			return
		}
		status = http.StatusBadRequest
		utils.WriteError(w, errors.BadRequest("Failed to read webhook body"))
		return
	}

	event, err := h.gateway.ParseWebhook(payload, r.Header.Get(signatureHeader))
	switch {
	case err == nil:
	case stderrors.Is(err, billing.ErrUnsupportedEvent):
		env := peekEnvelope(payload)
		eventType = "unsupported"
		middleware.AddLogField(w, "event_id", env.ID)
		h.logger.Debugf("Ignoring unsupported webhook event %s (%s)", env.Type, env.ID)
		h.record(r.Context(), env, "", billing.Outcome{}, billing.OutcomeIgnored, nil)
		h.archive(r.Context(), env.ID, payload)
		h.ack(w)
		return
	case stderrors.Is(err, billing.ErrMalformedEvent):
		env := peekEnvelope(payload)
		status = http.StatusBadRequest
		eventType = env.Type
		middleware.AddLogField(w, "event_id", env.ID)
		h.logger.WithFields(map[string]interface{}{
			"event_id":   env.ID,
			"event_type": env.Type,
		}).ErrorWithErr(err, "Failed to decode webhook event")
		utils.WriteError(w, errors.BadRequest("Webhook event could not be decoded"))
		return
	default:
		status = http.StatusBadRequest
		h.logger.WarnWithErr(err, "Rejected webhook delivery")
		utils.WriteError(w, errors.BadRequest("Webhook signature verification failed"))
		return
	}

	meta := event.Meta()
	eventType = meta.Type
	middleware.AddLogField(w, "event_id", meta.ID)
	middleware.AddLogField(w, "event_type", meta.Type)
	h.archive(r.Context(), meta.ID, payload)

	outcome, err := h.reconciler.Apply(r.Context(), event)
	if err != nil {
		status = http.StatusInternalServerError
		h.record(r.Context(), meta, billing.CustomerOf(event), outcome, billing.OutcomeFailed, err)
		h.logger.WithFields(map[string]interface{}{
			"event_id":   meta.ID,
			"event_type": meta.Type,
		}).ErrorWithErr(err, "Webhook reconciliation failed")
		utils.WriteJSON(w, status, map[string]string{"error": "Webhook handler failed"})
		return
	}

	h.record(r.Context(), meta, billing.CustomerOf(event), outcome, outcomeLabel(outcome), nil)
	h.ack(w)
}

func (h *WebhookHandler) ack(w http.ResponseWriter) {
	utils.WriteJSON(w, http.StatusOK, dto.WebhookAck{Received: true})
}

// record writes the audit row. Failures are logged and never change the response.
func (h *WebhookHandler) record(ctx context.Context, meta billing.Envelope, customerID string, outcome billing.Outcome, label string, cause error) {
	if h.events == nil || meta.ID == "" {
		return
	}
	rec := &billing.EventRecord{
		EventID:    meta.ID,
		Type:       meta.Type,
		CustomerID: customerID,
		UserID:     outcome.UserID,
		Outcome:    label,
		ReceivedAt: h.now(),
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := h.events.Record(ctx, rec); err != nil {
		h.logger.WarnWithErr(err, "Failed to record webhook event")
	}
}

func (h *WebhookHandler) archive(ctx context.Context, eventID string, payload []byte) {
	if h.archiver == nil || eventID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := h.archiver.Archive(ctx, eventID, h.now(), payload); err != nil {
		h.logger.WithFields(map[string]interface{}{
			"event_id": eventID,
		}).WarnWithErr(err, "Failed to archive webhook payload")
	}
}

func outcomeLabel(o billing.Outcome) string {
	switch {
	case o.Ignored:
		return billing.OutcomeIgnored
	case !o.Resolved:
		return billing.OutcomeUnresolved
	case o.Stale:
		return billing.OutcomeStale
	default:
		return billing.OutcomeApplied
	}
}

// peekEnvelope reads the id and type of an already verified payload
func peekEnvelope(payload []byte) billing.Envelope {
	var raw struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
	}
	_ = json.Unmarshal(payload, &raw)
	env := billing.Envelope{ID: raw.ID, Type: raw.Type}
	if raw.Created > 0 {
		env.Created = time.Unix(raw.Created, 0).UTC()
	}
	return env
}
