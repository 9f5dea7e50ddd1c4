package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/pdf"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/internal/validation"
)

type PatientRequest struct {
	FullName  string       `json:"full_name" validate:"required,max=200"`
	BirthDate caldate.Date `json:"birth_date"`
	CPF       *string      `json:"cpf" validate:"omitempty,cpf"`
	Email     *string      `json:"email" validate:"omitempty,email"`
	Phone     *string      `json:"phone" validate:"omitempty,max=30"`
	Address   *string      `json:"address" validate:"omitempty,max=500"`
	Notes     *string      `json:"notes"`
}

// apply copia o pedido para p; strings vazias viram nil e o CPF fica só com dígitos.
func (req PatientRequest) apply(p *repo.Patient) {
	p.FullName = strings.TrimSpace(req.FullName)
	p.BirthDate = req.BirthDate
	p.CPF = nil
	if req.CPF != nil {
		if d := validation.OnlyDigits(*req.CPF); d != "" {
			p.CPF = &d
		}
	}
	p.Email = trimmed(req.Email)
	p.Phone = trimmed(req.Phone)
	p.Address = trimmed(req.Address)
	p.Notes = trimmed(req.Notes)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r)
	list, total, err := h.Patients.List(r.Context(), r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []repo.Patient{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": list,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
	})
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Patients.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req PatientRequest
	if !decodeJSON(w, r, &req) || !validate(w, req) {
		return
	}
	var p repo.Patient
	req.apply(&p)
	if err := h.Patients.Create(r.Context(), &p); err != nil {
		h.fail(w, r, cpfConflict(err))
		return
	}
	rt, rid := resource("patient", p.ID)
	h.audit(r.Context(), repo.AuditEvent{Action: "PATIENT_CREATED", ResourceType: rt, ResourceID: rid, PatientID: &p.ID})
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req PatientRequest
	if !decodeJSON(w, r, &req) || !validate(w, req) {
		return
	}
	p, err := h.Patients.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req.apply(p)
	if err := h.Patients.Update(r.Context(), p); err != nil {
		h.fail(w, r, cpfConflict(err))
		return
	}
	rt, rid := resource("patient", id)
	h.audit(r.Context(), repo.AuditEvent{Action: "PATIENT_UPDATED", ResourceType: rt, ResourceID: rid, PatientID: &id})
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Patients.SoftDelete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	rt, rid := resource("patient", id)
	h.audit(r.Context(), repo.AuditEvent{Action: "PATIENT_DELETED", ResourceType: rt, ResourceID: rid, PatientID: &id})
	w.WriteHeader(http.StatusNoContent)
}

// Único índice único de pacientes é o CPF.
func cpfConflict(err error) error {
	if isConflict(err) {
		return &RequestError{Status: http.StatusConflict, Message: "Já existe paciente com este CPF"}
	}
	return err
}

// PatientStatementPDF gera o extrato financeiro do paciente. Sem from/to, usa os últimos 90 dias
// até hoje.
func (h *Handler) PatientStatementPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if to.IsZero() {
		to = caldate.Of(h.clock().In(h.Cfg.ReminderLocation()))
	}
	if from.IsZero() {
		from = to.AddDays(-90)
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "from must not be after to")
		return
	}
	p, err := h.Patients.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	txs, _, err := h.Financial.List(r.Context(), repo.TransactionFilter{From: from, To: to, PatientID: &id})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	st := pdf.Statement{
		ClinicName:  h.Cfg.ClinicName,
		PatientName: p.FullName,
		From:        from,
		To:          to,
		PatientURL:  strings.TrimRight(h.Cfg.AppPublicURL, "/") + "/patients/" + id.String(),
		GeneratedAt: h.clock(),
	}
	if p.CPF != nil {
		st.PatientCPF = *p.CPF
	}
	for _, t := range txs {
		st.Lines = append(st.Lines, pdf.StatementLine{
			DueDate:     t.DueDate,
			Description: t.Description,
			Type:        t.Type,
			Status:      t.Status,
			AmountCents: t.AmountCents,
			PaidDate:    t.PaidDate,
		})
	}
	body, err := pdf.BuildStatementPDF(st)
	if err != nil {
		h.fail(w, r, fmt.Errorf("statement pdf: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="extrato-%s.pdf"`, id.String()[:8]))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	h.audit(r.Context(), repo.AuditEvent{Action: "PATIENT_STATEMENT_EXPORTED", PatientID: &id,
		Metadata: map[string]string{"from": from.String(), "to": to.String()}})
}
