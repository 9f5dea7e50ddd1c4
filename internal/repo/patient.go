package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestordeclinica/backend/internal/caldate"
)

type Patient struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string       `gorm:"not null" json:"full_name"`
	BirthDate caldate.Date `json:"birth_date"`
	// CPF só com dígitos; único entre pacientes não removidos.
	CPF     *string `gorm:"column:cpf" json:"cpf"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
	Timestamps
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type PatientStore struct {
	DB *gorm.DB
}

func NewPatientStore(db *gorm.DB) *PatientStore { return &PatientStore{DB: db} }

// List busca por nome (case-insensitive) ou CPF. limit 0 = sem limite.
func (s *PatientStore) List(ctx context.Context, search string, limit, offset int) ([]Patient, int64, error) {
	q := s.DB.WithContext(ctx).Model(&Patient{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR cpf LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var list []Patient
	err := q.Order("full_name").Find(&list).Error
	return list, total, err
}

func (s *PatientStore) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *PatientStore) Create(ctx context.Context, p *Patient) error {
	newID(&p.ID)
	return mapErr(s.DB.WithContext(ctx).Create(p).Error)
}

// Update grava todos os campos editáveis, inclusive os que voltaram a nil.
func (s *PatientStore) Update(ctx context.Context, p *Patient) error {
	res := s.DB.WithContext(ctx).Model(&Patient{}).Where("id = ?", p.ID).Select(
		"full_name", "birth_date", "cpf", "email", "phone", "address", "notes", "updated_at",
	).Updates(p)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PatientStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Delete(&Patient{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
