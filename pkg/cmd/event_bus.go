package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/dripflow/dripflow/pkg/channels/gochannel"
	"github.com/dripflow/dripflow/pkg/channels/kafka"
	"github.com/dripflow/dripflow/pkg/eventbus"
)

// NewEventBus creates the lifecycle event bus for the given provider. Kafka is
// the production broker; gochannel runs everything in-process for local
// development; "none" disables event publishing entirely.
func NewEventBus(provider, serviceName string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka channel: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gochannel: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
