package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/metrics"
	pkgAuth "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/pkg/auth"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/server/http/handlers"
)

// Module registers HTTP router construction for fx runtime.
var Module = fx.Provide(newEngine)

type engineParams struct {
	fx.In

	Facade   handlers.BridgeFacade
	Verifier pkgAuth.Verifier
	Metrics  *metrics.Registry
	Logger   *slog.Logger
}

func newEngine(p engineParams) *gin.Engine {
	return Setup(p.Facade, p.Verifier, p.Metrics.Handler(), p.Logger)
}
