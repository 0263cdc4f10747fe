package events

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/config"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/usecase"
)

// Module provides the withdrawal event publisher.
var Module = fx.Provide(newPublisher)

type publisherParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newPublisher(p publisherParams) (usecase.EventPublisher, error) {
	if len(p.Config.KafkaBrokers) == 0 {
		p.Logger.Info("kafka brokers not configured, withdrawal events disabled")
		return Nop{}, nil
	}
	publisher, err := NewKafkaPublisher(p.Config.KafkaBrokers, p.Config.KafkaTopic)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	p.Logger.Info("publishing withdrawal events",
		slog.Any("brokers", p.Config.KafkaBrokers),
		slog.String("topic", p.Config.KafkaTopic),
	)
	return publisher, nil
}
