package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/repo"
)

type TransactionRequest struct {
	Type          string       `json:"type" validate:"required,oneof=income expense"`
	Category      *string      `json:"category" validate:"omitempty,max=80"`
	Description   string       `json:"description" validate:"required,max=300"`
	AmountCents   int64        `json:"amount_cents" validate:"gt=0"`
	DueDate       caldate.Date `json:"due_date"`
	PaidDate      caldate.Date `json:"paid_date"`
	Status        string       `json:"status" validate:"omitempty,oneof=pending paid cancelled"`
	PaymentMethod *string      `json:"payment_method" validate:"omitempty,max=40"`
	PatientID     *string      `json:"patient_id" validate:"omitempty,uuid"`
	AppointmentID *string      `json:"appointment_id" validate:"omitempty,uuid"`
}

type PayRequest struct {
	PaidDate      caldate.Date `json:"paid_date"`
	PaymentMethod *string      `json:"payment_method" validate:"omitempty,max=40"`
}

func optionalUUID(s *string) *uuid.UUID {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &id
}

// toTransaction valida datas e referências. Pago sem paid_date recebe a data de hoje.
func (h *Handler) toTransaction(r *http.Request, req TransactionRequest, t *repo.Transaction) error {
	if req.DueDate.IsZero() {
		return badRequest("due_date is required")
	}
	t.Type = req.Type
	t.Category = trimmed(req.Category)
	t.Description = strings.TrimSpace(req.Description)
	t.AmountCents = req.AmountCents
	t.DueDate = req.DueDate
	t.Status = req.Status
	if t.Status == "" {
		t.Status = repo.TxPending
	}
	t.PaidDate = req.PaidDate
	if t.Status == repo.TxPaid && t.PaidDate.IsZero() {
		t.PaidDate = caldate.Of(h.clock().In(h.Cfg.ReminderLocation()))
	}
	if t.Status != repo.TxPaid {
		t.PaidDate = caldate.Date{}
	}
	t.PaymentMethod = trimmed(req.PaymentMethod)
	t.PatientID = optionalUUID(req.PatientID)
	t.AppointmentID = optionalUUID(req.AppointmentID)
	if t.PatientID != nil {
		if _, err := h.Patients.Get(r.Context(), *t.PatientID); err != nil {
			if isNotFound(err) {
				return notFound("Paciente não encontrado")
			}
			return err
		}
	}
	if t.AppointmentID != nil {
		if _, err := h.Appointments.Get(r.Context(), *t.AppointmentID); err != nil {
			if isNotFound(err) {
				return notFound("Consulta não encontrada")
			}
			return err
		}
	}
	return nil
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var f repo.TransactionFilter
	var err error
	if f.From, err = queryDate(r, "from"); err != nil {
		h.fail(w, r, err)
		return
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		h.fail(w, r, err)
		return
	}
	if f.PatientID, err = queryUUID(r, "patient_id"); err != nil {
		h.fail(w, r, err)
		return
	}
	f.Type = strings.TrimSpace(r.URL.Query().Get("type"))
	f.Status = strings.TrimSpace(r.URL.Query().Get("status"))
	f.Limit, f.Offset = ParseLimitOffset(r)
	list, total, err := h.Financial.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []repo.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": list,
		"limit":        f.Limit,
		"offset":       f.Offset,
		"total":        total,
	})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.Financial.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decodeJSON(w, r, &req) || !validate(w, req) {
		return
	}
	var t repo.Transaction
	if err := h.toTransaction(r, req, &t); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Financial.Create(r.Context(), &t); err != nil {
		h.fail(w, r, err)
		return
	}
	h.auditTransaction(r, "TRANSACTION_CREATED", &t)
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req TransactionRequest
	if !decodeJSON(w, r, &req) || !validate(w, req) {
		return
	}
	t, err := h.Financial.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.toTransaction(r, req, t); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Financial.Update(r.Context(), t); err != nil {
		h.fail(w, r, err)
		return
	}
	h.auditTransaction(r, "TRANSACTION_UPDATED", t)
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.Financial.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Financial.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.auditTransaction(r, "TRANSACTION_DELETED", t)
	w.WriteHeader(http.StatusNoContent)
}

// PayTransaction: corpo opcional; sem paid_date usa hoje.
func (h *Handler) PayTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req PayRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) || !validate(w, req) {
			return
		}
	}
	if req.PaidDate.IsZero() {
		req.PaidDate = caldate.Of(h.clock().In(h.Cfg.ReminderLocation()))
	}
	t, err := h.Financial.Pay(r.Context(), id, req.PaidDate, trimmed(req.PaymentMethod))
	if err != nil {
		if isConflict(err) {
			writeError(w, http.StatusConflict, "Lançamento cancelado não pode ser pago")
			return
		}
		h.fail(w, r, err)
		return
	}
	h.auditTransaction(r, "TRANSACTION_PAID", t)
	writeJSON(w, http.StatusOK, t)
}

// FinancialSummary: sem from/to, o mês corrente.
func (h *Handler) FinancialSummary(w http.ResponseWriter, r *http.Request) {
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
	today := caldate.Of(h.clock().In(h.Cfg.ReminderLocation()))
	if from.IsZero() {
		from = caldate.New(today.Year, today.Month, 1)
	}
	if to.IsZero() {
		to = caldate.New(from.Year, from.Month+1, 1).AddDays(-1)
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "from must not be after to")
		return
	}
	sum, err := h.Financial.Summary(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) auditTransaction(r *http.Request, action string, t *repo.Transaction) {
	rt, rid := resource("financial_transaction", t.ID)
	h.audit(r.Context(), repo.AuditEvent{
		Action: action, ResourceType: rt, ResourceID: rid, PatientID: t.PatientID,
		Metadata: map[string]interface{}{"type": t.Type, "amount_cents": t.AmountCents, "status": t.Status},
	})
}
