package notification

import (
	"github.com/uplinelabs/upline/internal/config"
	notificationdomain "github.com/uplinelabs/upline/internal/notification/domain"
	"github.com/uplinelabs/upline/internal/notification/provider/webhook"
	"github.com/uplinelabs/upline/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(
		newProviders,
		service.NewDispatcher,
	),
)

func newProviders(cfg config.Config) []notificationdomain.Provider {
	var providers []notificationdomain.Provider
	if cfg.Dispatcher.WebhookURL != "" {
		providers = append(providers, webhook.New(cfg.Dispatcher.WebhookURL))
	}
	return providers
}
