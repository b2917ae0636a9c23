package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vaktsms/vaktsms-backend/internal/service"
)

// CampaignController exposes the bulk send executor.
type CampaignController struct {
	Bulk *service.BulkService
}

// SendCampaign handles POST /campaigns/{id}/send. The whole batch runs in
// the request; for very large lists the caller should expect this to take
// a while (sequential sends with a throttle delay).
func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid campaign id"})
		return
	}

	result, err := c.Bulk.RunCampaign(r.Context(), campaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
