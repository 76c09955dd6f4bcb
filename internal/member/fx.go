package member

import (
	"github.com/uplinelabs/upline/internal/member/repository"
	"github.com/uplinelabs/upline/internal/member/service"
	"go.uber.org/fx"
)

var Module = fx.Module("member.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
