package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uplinelabs/upline/internal/events"
	notificationdomain "github.com/uplinelabs/upline/internal/notification/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DispatcherConsumerID = "notification_dispatcher"
	BatchSize            = 50
)

// Dispatcher drains the outbox and hands payloads to the registered
// providers. Events are kept after dispatch; only the cursor moves.
type Dispatcher struct {
	db        *gorm.DB
	log       *zap.Logger
	providers []notificationdomain.Provider
}

func NewDispatcher(db *gorm.DB, log *zap.Logger, providers []notificationdomain.Provider) *Dispatcher {
	return &Dispatcher{
		db:        db,
		log:       log.Named("notification.dispatcher"),
		providers: providers,
	}
}

func (d *Dispatcher) ProcessEvents(ctx context.Context) error {
	lastID, err := d.getLastEventID(ctx)
	if err != nil {
		return err
	}

	var rows []events.OutboxEvent
	err = d.db.WithContext(ctx).
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(BatchSize).
		Find(&rows).Error
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	for _, row := range rows {
		if err := d.dispatch(ctx, row); err != nil {
			d.log.Error("failed to dispatch event",
				zap.Error(err),
				zap.String("event_id", row.ID.String()),
			)
		}
		// Advance per event so a crash never re-delivers a whole batch.
		if err := d.updateLastEventID(ctx, row.ID); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, row events.OutboxEvent) error {
	var data map[string]any
	if err := json.Unmarshal(row.Payload, &data); err != nil {
		return err
	}

	n := notificationdomain.Notification{
		UserID:    row.UserID,
		EventType: row.EventType,
		Data:      data,
	}
	for _, p := range d.providers {
		if err := p.Send(ctx, n); err != nil {
			d.log.Warn("provider send failed",
				zap.String("provider", p.Name()),
				zap.String("event_type", row.EventType),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (d *Dispatcher) getLastEventID(ctx context.Context) (snowflake.ID, error) {
	var offset events.DispatchOffset
	err := d.db.WithContext(ctx).
		Where("consumer_id = ?", DispatcherConsumerID).
		First(&offset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return offset.LastEventID, nil
}

func (d *Dispatcher) updateLastEventID(ctx context.Context, id snowflake.ID) error {
	now := time.Now().UTC()
	res := d.db.WithContext(ctx).Model(&events.DispatchOffset{}).
		Where("consumer_id = ?", DispatcherConsumerID).
		Updates(map[string]interface{}{"last_event_id": id, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return d.db.WithContext(ctx).Create(&events.DispatchOffset{
			ConsumerID:  DispatcherConsumerID,
			LastEventID: id,
			UpdatedAt:   now,
		}).Error
	}
	return nil
}
