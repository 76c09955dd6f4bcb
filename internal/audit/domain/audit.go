// Package domain contains the append-only audit trail model.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeAdmin  ActorType = "admin"
	ActorTypeSystem ActorType = "system"
)

type AuditLog struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	ActorType  string         `json:"actor_type" gorm:"type:text;not null"`
	ActorID    *string        `json:"actor_id" gorm:"type:text;index"`
	Action     string         `json:"action" gorm:"type:text;not null;index"`
	EntityType string         `json:"entity_type" gorm:"type:text;not null"`
	EntityID   *string        `json:"entity_id" gorm:"type:text;index"`
	Metadata   datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type Service interface {
	AuditLog(ctx context.Context, actorType string, actorID *string, action, entityType string, entityID *string, metadata map[string]interface{})
	List(ctx context.Context, action string, limit int) ([]AuditLog, error)
}
