// Package domain defines the notification provider contract. Delivery
// mechanics live behind this interface; the engine only hands over a payload.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Notification struct {
	UserID    snowflake.ID
	EventType string
	Data      map[string]any
}

type Provider interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}
