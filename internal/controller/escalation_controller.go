package controller

import (
	"net/http"

	"github.com/vaktsms/vaktsms-backend/internal/service"
)

// EscalationController exposes the sweep for cron-style triggering.
type EscalationController struct {
	Escalation *service.EscalationService
}

// RunSweep handles POST /escalations/run. No request body; the sweep
// re-scans all escalation-enabled groups every time.
func (c *EscalationController) RunSweep(w http.ResponseWriter, r *http.Request) {
	result, err := c.Escalation.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
