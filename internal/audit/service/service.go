package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/uplinelabs/upline/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
	}
}

// AuditLog records an audit entry. Failures are logged, never propagated:
// an audit write must not roll back the business operation it describes.
func (s *Service) AuditLog(ctx context.Context, actorType string, actorID *string, action, entityType string, entityID *string, metadata map[string]interface{}) {
	payload, err := json.Marshal(metadata)
	if err != nil {
		s.log.Error("marshal audit metadata", zap.Error(err), zap.String("action", action))
		payload = []byte("{}")
	}

	entry := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   payload,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.log.Error("write audit log", zap.Error(err), zap.String("action", action))
	}
}

func (s *Service) List(ctx context.Context, action string, limit int) ([]auditdomain.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Model(&auditdomain.AuditLog{}).Order("created_at DESC").Limit(limit)
	if action != "" {
		q = q.Where("action = ?", action)
	}
	var rows []auditdomain.AuditLog
	err := q.Find(&rows).Error
	return rows, err
}
