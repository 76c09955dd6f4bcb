package ledger

import (
	ledgerdomain "github.com/uplinelabs/upline/internal/ledger/domain"
	"github.com/uplinelabs/upline/internal/ledger/repository"
	"github.com/uplinelabs/upline/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) ledgerdomain.Recorder { return s }),
)
