package commission

import (
	"github.com/uplinelabs/upline/internal/commission/repository"
	"github.com/uplinelabs/upline/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
