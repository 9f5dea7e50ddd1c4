package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestordeclinica/backend/internal/cache"
	"github.com/gestordeclinica/backend/internal/repo"
)

const professionalsCachePrefix = "professionals:"

type ProfessionalRequest struct {
	FullName     string  `json:"full_name" validate:"required,max=200"`
	Specialty    *string `json:"specialty" validate:"omitempty,max=120"`
	Registration *string `json:"registration" validate:"omitempty,max=40"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone" validate:"omitempty,max=30"`
	Color        *string `json:"color" validate:"omitempty,hexcolor"`
	// Active só é considerado no PUT; nil mantém o valor atual.
	Active *bool `json:"active"`
}

func (req ProfessionalRequest) apply(p *repo.Professional) {
	p.FullName = strings.TrimSpace(req.FullName)
	p.Specialty = trimmed(req.Specialty)
	p.Registration = trimmed(req.Registration)
	p.Email = trimmed(req.Email)
	p.Phone = trimmed(req.Phone)
	p.Color = trimmed(req.Color)
	if req.Active != nil {
		p.Active = *req.Active
	}
}

func professionalKey(id uuid.UUID) string { return professionalsCachePrefix + id.String() }

func (h *Handler) invalidateProfessionals(r *http.Request) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.DeletePrefix(r.Context(), professionalsCachePrefix); err != nil {
		h.Log.Warn("cache invalidate", zap.String("prefix", professionalsCachePrefix), zap.Error(err))
	}
}

func (h *Handler) cacheSet(r *http.Request, key string, v interface{}) {
	if err := cache.SetJSON(r.Context(), h.Cache, key, v); err != nil {
		h.Log.Warn("cache set", zap.String("key", key), zap.Error(err))
	}
}

// ListProfessionals: ?all=true inclui inativos.
func (h *Handler) ListProfessionals(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"
	key := professionalsCachePrefix + "list:all"
	if activeOnly {
		key = professionalsCachePrefix + "list:active"
	}
	var list []repo.Professional
	if !cache.GetJSON(r.Context(), h.Cache, key, &list) {
		var err error
		list, err = h.Professionals.List(r.Context(), activeOnly)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if list == nil {
			list = []repo.Professional{}
		}
		h.cacheSet(r, key, list)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"professionals": list, "total": len(list)})
}

func (h *Handler) GetProfessional(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p repo.Professional
	if cache.GetJSON(r.Context(), h.Cache, professionalKey(id), &p) {
		writeJSON(w, http.StatusOK, p)
		return
	}
	got, err := h.Professionals.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cacheSet(r, professionalKey(id), got)
	writeJSON(w, http.StatusOK, got)
}

func (h *Handler) CreateProfessional(w http.ResponseWriter, r *http.Request) {
	var req ProfessionalRequest
	if !decodeJSON(w, r, &req) || !validate(w, req) {
		return
	}
	var p repo.Professional
	req.apply(&p)
	if err := h.Professionals.Create(r.Context(), &p); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidateProfessionals(r)
	rt, rid := resource("professional", p.ID)
	h.audit(r.Context(), repo.AuditEvent{Action: "PROFESSIONAL_CREATED", ResourceType: rt, ResourceID: rid})
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProfessional(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ProfessionalRequest
	if !decodeJSON(w, r, &req) || !validate(w, req) {
		return
	}
	p, err := h.Professionals.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req.apply(p)
	if err := h.Professionals.Update(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidateProfessionals(r)
	rt, rid := resource("professional", id)
	h.audit(r.Context(), repo.AuditEvent{Action: "PROFESSIONAL_UPDATED", ResourceType: rt, ResourceID: rid})
	writeJSON(w, http.StatusOK, p)
}

// DeleteProfessional desativa; o histórico de consultas continua apontando para ele.
func (h *Handler) DeleteProfessional(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Professionals.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidateProfessionals(r)
	rt, rid := resource("professional", id)
	h.audit(r.Context(), repo.AuditEvent{Action: "PROFESSIONAL_DEACTIVATED", ResourceType: rt, ResourceID: rid})
	w.WriteHeader(http.StatusNoContent)
}
