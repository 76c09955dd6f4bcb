package profitshare

import (
	"github.com/uplinelabs/upline/internal/profitshare/service"
	"go.uber.org/fx"
)

var Module = fx.Module("profitshare.service",
	fx.Provide(service.NewService),
)
