package di

import (
	"go.uber.org/fx"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/adapter/l2"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/adapter/ledger"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/app"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/config"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/events"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/logger"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/metrics"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/pkg/auth"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/server/http/handlers"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/server/http/router"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/storage"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		storage.Module,
		ledger.Module,
		l2.Module,
		events.Module,
		metrics.Module,
		usecase.Module,
		fx.Provide(func(f *app.BridgeFacade) handlers.BridgeFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
