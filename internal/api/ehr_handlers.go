package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestordeclinica/backend/internal/auth"
	"github.com/gestordeclinica/backend/internal/repo"
)

type EHREventRequest struct {
	EventType      string     `json:"event_type" validate:"required"`
	Title          string     `json:"title" validate:"required,max=200"`
	Content        string     `json:"content" validate:"required"`
	OccurredAt     *time.Time `json:"occurred_at"`
	ProfessionalID *string    `json:"professional_id" validate:"omitempty,uuid"`
}

// ListEHREvents: ?types=evolution,prescription filtra por tipo.
func (h *Handler) ListEHREvents(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.Patients.Get(r.Context(), patientID); err != nil {
		h.fail(w, r, err)
		return
	}
	var types []string
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		if !repo.ValidEHREventType(t) {
			writeError(w, http.StatusBadRequest, "invalid type: "+t)
			return
		}
		types = append(types, t)
	}
	limit, offset := ParseLimitOffset(r)
	list, total, err := h.EHR.ListByPatient(r.Context(), patientID, types, limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []repo.EHREvent{}
	}
	h.audit(r.Context(), repo.AuditEvent{Action: "EHR_LISTED", PatientID: &patientID,
		Metadata: map[string]interface{}{"count": len(list)}})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": list,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) GetEHREvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := h.EHR.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rt, rid := resource("ehr_event", id)
	h.audit(r.Context(), repo.AuditEvent{Action: "EHR_VIEWED", ResourceType: rt, ResourceID: rid, PatientID: &e.PatientID})
	writeJSON(w, http.StatusOK, e)
}

// CreateEHREvent: profissional logado assina o registro com o próprio professional_id; admin
// pode informar o profissional no corpo.
func (h *Handler) CreateEHREvent(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req EHREventRequest
	if !decodeJSON(w, r, &req) || !validate(w, req) {
		return
	}
	if !repo.ValidEHREventType(req.EventType) {
		writeError(w, http.StatusBadRequest, "event_type must be one of: "+strings.Join(repo.EHREventTypes, ", "))
		return
	}
	if _, err := h.Patients.Get(r.Context(), patientID); err != nil {
		h.fail(w, r, err)
		return
	}
	e := repo.EHREvent{
		PatientID: patientID,
		EventType: req.EventType,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
	}
	if req.OccurredAt != nil {
		e.OccurredAt = req.OccurredAt.UTC()
	}
	if author, err := uuid.Parse(auth.UserIDFrom(r.Context())); err == nil {
		e.AuthorID = &author
	}
	if pid := auth.ProfessionalIDFrom(r.Context()); pid != nil && auth.RoleFrom(r.Context()) == auth.RoleProfessional {
		e.ProfessionalID = optionalUUID(pid)
	} else {
		e.ProfessionalID = optionalUUID(req.ProfessionalID)
	}
	if err := h.EHR.Create(r.Context(), &e); err != nil {
		h.fail(w, r, err)
		return
	}
	rt, rid := resource("ehr_event", e.ID)
	h.audit(r.Context(), repo.AuditEvent{Action: "EHR_CREATED", ResourceType: rt, ResourceID: rid, PatientID: &patientID,
		Metadata: map[string]string{"event_type": e.EventType}})
	writeJSON(w, http.StatusCreated, e)
}
