package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
	"github.com/vaktsms/vaktsms-backend/internal/model"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
)

// InboxHandler serves the read side consumed by the inbox UI: threads with
// their messages, and campaign progress.
type InboxHandler struct {
	ThreadRepo   repository.ThreadRepositoryInterface
	MessageRepo  repository.MessageRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
}

// ListThreadsHandler returns a group's threads, most recently active first.
func (h *InboxHandler) ListThreadsHandler(w http.ResponseWriter, r *http.Request) {
	tenantID, err := strconv.Atoi(r.URL.Query().Get("tenant_id"))
	if err != nil {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}
	groupID, err := strconv.Atoi(r.URL.Query().Get("group_id"))
	if err != nil {
		http.Error(w, "group_id is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	threads, err := h.ThreadRepo.ListByGroup(r.Context(), tenantID, groupID, limit)
	if err != nil {
		http.Error(w, "failed to list threads: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if threads == nil {
		threads = []model.Thread{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": threads})
}

// GetThreadHandler returns one thread together with its messages.
func (h *InboxHandler) GetThreadHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid thread id", http.StatusBadRequest)
		return
	}

	thread, err := h.ThreadRepo.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to fetch thread: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if thread == nil {
		http.Error(w, "thread not found", http.StatusNotFound)
		return
	}

	messages, err := h.MessageRepo.ListByThread(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to fetch messages: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"thread":   thread,
		"messages": messages,
	})
}

// GetCampaignHandler returns the campaign with per-recipient status counts.
func (h *InboxHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := h.CampaignRepo.GetByID(r.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stats, err := h.CampaignRepo.RecipientStats(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to fetch stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign": campaign,
		"stats":    stats,
	})
}
