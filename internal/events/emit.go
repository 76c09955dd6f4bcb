package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Emit appends an outbox event on the given handle. Callers pass their open
// transaction so the event commits atomically with the state change.
func Emit(ctx context.Context, tx *gorm.DB, id snowflake.ID, userID snowflake.ID, eventType string, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).Create(&OutboxEvent{
		ID:        id,
		UserID:    userID,
		EventType: eventType,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}).Error
}
