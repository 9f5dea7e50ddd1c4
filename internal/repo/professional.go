package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Professional struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Specialty *string   `json:"specialty"`
	// CRM, CRP etc.
	Registration *string `json:"registration"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	// Cor da agenda no frontend (#RRGGBB).
	Color  *string `json:"color"`
	Active bool    `gorm:"not null;default:true" json:"active"`
	Timestamps
}

type ProfessionalStore struct {
	DB *gorm.DB
}

func NewProfessionalStore(db *gorm.DB) *ProfessionalStore { return &ProfessionalStore{DB: db} }

func (s *ProfessionalStore) List(ctx context.Context, activeOnly bool) ([]Professional, error) {
	q := s.DB.WithContext(ctx).Model(&Professional{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var list []Professional
	err := q.Order("full_name").Find(&list).Error
	return list, err
}

func (s *ProfessionalStore) Get(ctx context.Context, id uuid.UUID) (*Professional, error) {
	var p Professional
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *ProfessionalStore) Create(ctx context.Context, p *Professional) error {
	newID(&p.ID)
	p.Active = true
	return mapErr(s.DB.WithContext(ctx).Create(p).Error)
}

func (s *ProfessionalStore) Update(ctx context.Context, p *Professional) error {
	res := s.DB.WithContext(ctx).Model(&Professional{}).Where("id = ?", p.ID).Select(
		"full_name", "specialty", "registration", "email", "phone", "color", "active", "updated_at",
	).Updates(p)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete só desativa: consultas antigas continuam apontando para o profissional.
func (s *ProfessionalStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&Professional{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
