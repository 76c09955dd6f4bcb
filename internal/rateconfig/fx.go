package rateconfig

import (
	"github.com/uplinelabs/upline/internal/rateconfig/repository"
	"github.com/uplinelabs/upline/internal/rateconfig/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rateconfig.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
