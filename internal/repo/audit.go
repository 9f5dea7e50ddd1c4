package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActorUser   = "USER"
	ActorSystem = "SYSTEM"
)

type AuditEvent struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Action       string         `gorm:"not null;index" json:"action"`
	ActorType    string         `gorm:"not null" json:"actor_type"`
	ActorID      *uuid.UUID     `gorm:"type:uuid" json:"actor_id"`
	ResourceType *string        `json:"resource_type"`
	ResourceID   *uuid.UUID     `gorm:"type:uuid" json:"resource_id"`
	PatientID    *uuid.UUID     `gorm:"type:uuid;index" json:"patient_id"`
	RequestID    *string        `json:"request_id"`
	IP           *string        `gorm:"column:ip" json:"ip"`
	MetadataJSON datatypes.JSON `gorm:"column:metadata" json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	// Metadata é serializado para MetadataJSON no Create.
	Metadata interface{} `gorm:"-" json:"-"`
}

type AuditFilter struct {
	Action     string
	ResourceID *uuid.UUID
	PatientID  *uuid.UUID
	Limit      int
	Offset     int
}

type AuditStore struct {
	DB *gorm.DB
}

func NewAuditStore(db *gorm.DB) *AuditStore { return &AuditStore{DB: db} }

func (s *AuditStore) Create(ctx context.Context, ev AuditEvent) error {
	newID(&ev.ID)
	if ev.ActorType == "" {
		ev.ActorType = ActorUser
	}
	if ev.Metadata != nil {
		meta, err := json.Marshal(ev.Metadata)
		if err != nil {
			return err
		}
		ev.MetadataJSON = datatypes.JSON(meta)
	}
	if len(ev.MetadataJSON) == 0 {
		ev.MetadataJSON = datatypes.JSON("{}")
	}
	return s.DB.WithContext(ctx).Create(&ev).Error
}

func (s *AuditStore) List(ctx context.Context, f AuditFilter) ([]AuditEvent, int64, error) {
	q := s.DB.WithContext(ctx).Model(&AuditEvent{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.ResourceID != nil {
		q = q.Where("resource_id = ?", *f.ResourceID)
	}
	if f.PatientID != nil {
		q = q.Where("patient_id = ?", *f.PatientID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var list []AuditEvent
	err := q.Order("created_at DESC").Find(&list).Error
	return list, total, err
}

func StrPtr(s string) *string { return &s }
