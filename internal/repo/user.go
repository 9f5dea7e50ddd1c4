package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FullName     string    `gorm:"not null" json:"full_name"`
	Role         string    `gorm:"not null" json:"role"`
	// Usuário PROFESSIONAL vinculado ao cadastro de profissional da agenda.
	ProfessionalID *uuid.UUID `gorm:"type:uuid" json:"professional_id"`
	Timestamps
}

type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{DB: db} }

func (s *UserStore) ByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.DB.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *UserStore) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, u *User) error {
	newID(&u.ID)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return mapErr(s.DB.WithContext(ctx).Create(u).Error)
}
