package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	pkgAuth "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/pkg/auth"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/server/http/handlers"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.BridgeFacade, verifier pkgAuth.Verifier, metrics http.Handler, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	statusHandler := handlers.NewStatusHandler(facade)
	withdrawalHandler := handlers.NewWithdrawalHandler(facade)
	balanceHandler := handlers.NewBalanceHandler(facade)

	engine.GET("/", statusHandler.Root)
	engine.GET("/healthz", statusHandler.Health)
	engine.POST("/withdraw", withdrawalHandler.Withdraw)
	engine.POST("/paid", withdrawalHandler.Paid)
	engine.GET("/withdrawals/:fingerprint", withdrawalHandler.Get)

	operator := engine.Group("")
	operator.Use(middleware.OperatorRequired(verifier))
	operator.GET("/balance", balanceHandler.Summary)
	if metrics != nil {
		operator.GET("/metrics", gin.WrapH(metrics))
	}

	return engine
}
