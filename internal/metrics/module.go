package metrics

import (
	"go.uber.org/fx"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/usecase"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/worker"
)

// Module provides the metrics registry and exposes it to the use case and the attention monitor.
var Module = fx.Provide(
	NewRegistry,
	func(r *Registry) usecase.MetricsRecorder { return r },
	func(r *Registry) worker.AttentionRecorder { return r },
)
