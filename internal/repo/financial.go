package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestordeclinica/backend/internal/caldate"
)

const (
	TxIncome  = "income"
	TxExpense = "expense"

	TxPending   = "pending"
	TxPaid      = "paid"
	TxCancelled = "cancelled"
)

// Transaction é um lançamento financeiro. Valores sempre em centavos.
type Transaction struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Type          string       `gorm:"not null" json:"type"`
	Category      *string      `json:"category"`
	Description   string       `gorm:"not null" json:"description"`
	AmountCents   int64        `gorm:"not null" json:"amount_cents"`
	DueDate       caldate.Date `gorm:"not null;index" json:"due_date"`
	PaidDate      caldate.Date `json:"paid_date"`
	Status        string       `gorm:"not null;default:pending" json:"status"`
	PaymentMethod *string      `json:"payment_method"`
	PatientID     *uuid.UUID   `gorm:"type:uuid;index" json:"patient_id"`
	AppointmentID *uuid.UUID   `gorm:"type:uuid" json:"appointment_id"`
	Timestamps
}

func (Transaction) TableName() string { return "financial_transactions" }

type TransactionFilter struct {
	From      caldate.Date
	To        caldate.Date
	Type      string
	Status    string
	PatientID *uuid.UUID
	Limit     int
	Offset    int
}

// FinancialSummary soma o período por tipo e status; Balance = receitas pagas - despesas pagas.
type FinancialSummary struct {
	From           caldate.Date `json:"from"`
	To             caldate.Date `json:"to"`
	IncomePaid     int64        `json:"income_paid_cents"`
	IncomePending  int64        `json:"income_pending_cents"`
	ExpensePaid    int64        `json:"expense_paid_cents"`
	ExpensePending int64        `json:"expense_pending_cents"`
	Balance        int64        `json:"balance_cents"`
}

type FinancialStore struct {
	DB *gorm.DB
}

func NewFinancialStore(db *gorm.DB) *FinancialStore { return &FinancialStore{DB: db} }

func (s *FinancialStore) filtered(ctx context.Context, f TransactionFilter) *gorm.DB {
	q := s.DB.WithContext(ctx).Model(&Transaction{})
	if !f.From.IsZero() {
		q = q.Where("due_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("due_date <= ?", f.To)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PatientID != nil {
		q = q.Where("patient_id = ?", *f.PatientID)
	}
	return q
}

func (s *FinancialStore) List(ctx context.Context, f TransactionFilter) ([]Transaction, int64, error) {
	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := s.filtered(ctx, f).Order("due_date, created_at")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var list []Transaction
	err := q.Find(&list).Error
	return list, total, err
}

func (s *FinancialStore) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	if err := s.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (s *FinancialStore) Create(ctx context.Context, t *Transaction) error {
	newID(&t.ID)
	if t.Status == "" {
		t.Status = TxPending
	}
	return mapErr(s.DB.WithContext(ctx).Create(t).Error)
}

func (s *FinancialStore) Update(ctx context.Context, t *Transaction) error {
	res := s.DB.WithContext(ctx).Model(&Transaction{}).Where("id = ?", t.ID).Select(
		"type", "category", "description", "amount_cents", "due_date", "paid_date", "status",
		"payment_method", "patient_id", "appointment_id", "updated_at",
	).Updates(t)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *FinancialStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Delete(&Transaction{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Pay marca como paga. Lançamento cancelado não pode ser pago (ErrConflict).
func (s *FinancialStore) Pay(ctx context.Context, id uuid.UUID, paidDate caldate.Date, method *string) (*Transaction, error) {
	var out *Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t Transaction
		if err := tx.First(&t, "id = ?", id).Error; err != nil {
			return mapErr(err)
		}
		if t.Status == TxCancelled {
			return ErrConflict
		}
		updates := map[string]interface{}{"status": TxPaid, "paid_date": paidDate, "updated_at": time.Now().UTC()}
		if method != nil {
			updates["payment_method"] = *method
		}
		if err := tx.Model(&Transaction{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		t.Status = TxPaid
		t.PaidDate = paidDate
		if method != nil {
			t.PaymentMethod = method
		}
		out = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FinancialStore) Summary(ctx context.Context, from, to caldate.Date) (*FinancialSummary, error) {
	var rows []struct {
		Type   string
		Status string
		Total  int64
	}
	err := s.filtered(ctx, TransactionFilter{From: from, To: to}).
		Select("type, status, COALESCE(SUM(amount_cents), 0) AS total").
		Where("status <> ?", TxCancelled).
		Group("type, status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sum := &FinancialSummary{From: from, To: to}
	for _, r := range rows {
		switch {
		case r.Type == TxIncome && r.Status == TxPaid:
			sum.IncomePaid += r.Total
		case r.Type == TxIncome:
			sum.IncomePending += r.Total
		case r.Type == TxExpense && r.Status == TxPaid:
			sum.ExpensePaid += r.Total
		case r.Type == TxExpense:
			sum.ExpensePending += r.Total
		}
	}
	sum.Balance = sum.IncomePaid - sum.ExpensePaid
	return sum, nil
}
