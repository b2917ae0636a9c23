package controller

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
	"github.com/vaktsms/vaktsms-backend/internal/service"
)

// MessageController exposes inbound ingestion, acknowledgement, and the
// provider delivery webhook.
type MessageController struct {
	Ingest   *service.IngestService
	Ack      *service.AckService
	Delivery *service.DeliveryService
}

// IngestMessage handles POST /messages/ingest.
func (c *MessageController) IngestMessage(w http.ResponseWriter, r *http.Request) {
	var in service.IngestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := c.Ingest.Ingest(r.Context(), in)
	if err != nil {
		// A dropped inbound message is operator-relevant: there is no
		// retry from our side once the provider got its 4xx.
		if errors.Is(err, apperrors.ErrNoRouteFound) {
			log.Printf("[ingest] DROPPING message from %s on gateway %d: no route", in.FromNumber, in.GatewayID)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AcknowledgeMessage handles POST /messages/{id}/acknowledge. Caller
// identity comes from the X-User-ID header set by the auth proxy.
func (c *MessageController) AcknowledgeMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(r.Header.Get("X-User-ID"))
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	messageID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
		return
	}

	result, err := c.Ack.Acknowledge(r.Context(), messageID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DeliveryWebhook handles POST /webhooks/delivery. Unknown external ids are
// acknowledged with 200 so the provider stops retrying.
func (c *MessageController) DeliveryWebhook(w http.ResponseWriter, r *http.Request) {
	var report service.DeliveryReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if report.ExternalMessageID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "external_message_id is required"})
		return
	}

	matched, err := c.Delivery.Apply(r.Context(), report)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ignored": !matched})
}
