package api

import (
	"net/http"
	"strings"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/repo"
)

// TriggerReminders envia os lembretes de ?date=YYYY-MM-DD (padrão: amanhã no fuso dos lembretes).
func (h *Handler) TriggerReminders(w http.ResponseWriter, r *http.Request) {
	if h.Reminders == nil {
		writeError(w, http.StatusServiceUnavailable, "reminders not configured")
		return
	}
	date, err := queryDate(r, "date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if date.IsZero() {
		date = caldate.Of(h.clock().In(h.Cfg.ReminderLocation())).AddDays(1)
	}
	res, err := h.Reminders.Send(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListAuditEvents: filtros ?action, ?resource_id, ?patient_id.
func (h *Handler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	var f repo.AuditFilter
	var err error
	f.Action = strings.TrimSpace(r.URL.Query().Get("action"))
	if f.ResourceID, err = queryUUID(r, "resource_id"); err != nil {
		h.fail(w, r, err)
		return
	}
	if f.PatientID, err = queryUUID(r, "patient_id"); err != nil {
		h.fail(w, r, err)
		return
	}
	f.Limit, f.Offset = ParseLimitOffset(r)
	list, total, err := h.Audit.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []repo.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  list,
		"limit":  f.Limit,
		"offset": f.Offset,
		"total":  total,
	})
}
