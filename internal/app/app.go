package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/config"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/repository"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewBridgeFacade,
		newHTTPServer,
		newAttentionMonitor,
	),
	fx.Invoke(verifyExecutables),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type monitorParams struct {
	fx.In

	Repository repository.WithdrawalRepository
	Recorder   worker.AttentionRecorder `optional:"true"`
	Config     *config.Config
	Logger     *slog.Logger
}

func newAttentionMonitor(p monitorParams) *worker.AttentionMonitor {
	return worker.NewAttentionMonitor(
		p.Repository,
		p.Recorder,
		p.Config.AttentionInterval,
		p.Config.AttentionBatchSize,
		p.Config.StalePaidAfter,
		p.Logger,
	)
}

type verifyParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func verifyExecutables(p verifyParams) error {
	if p.Config.SkipCLICheck {
		p.Logger.Warn("skipping L2 CLI verification")
		return nil
	}
	if err := config.VerifyExecutables(p.Config); err != nil {
		return err
	}
	p.Logger.Info("all CLI tools verified successfully")
	return nil
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Monitor    *worker.AttentionMonitor
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting fast withdrawal server",
				slog.String("addr", p.Server.Addr),
				slog.String("network", p.Config.BitcoinNetwork),
				slog.Int64("server_fee_sats", p.Config.ServerFeeSats),
			)
			p.Monitor.Start(context.WithoutCancel(ctx))
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Monitor.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("fast withdrawal server stopped")
			return nil
		},
	})
}
