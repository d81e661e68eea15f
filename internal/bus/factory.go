package bus

import (
	"context"
	"fmt"
	"strings"

	"github.com/fusesearch/fuse-search/internal/config"
	"github.com/fusesearch/fuse-search/internal/pkg/errors"
)

// NewBus creates a new Bus instance based on the configuration.
func NewBus(cfg config.BusConfig) (Bus, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryBus(), nil

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		return NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: "fuse-search",
			ClientID:      "fuse-search-bus",
		})

	case "none":
		return NewNopBus(), nil

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}
}

// NopBus discards every event. Used when telemetry is disabled.
type NopBus struct{}

// NewNopBus creates a bus that drops all events.
func NewNopBus() *NopBus { return &NopBus{} }

// Publish implements Bus.
func (*NopBus) Publish(_ context.Context, _ string, _ Event) error { return nil }

// Subscribe implements Bus.
func (*NopBus) Subscribe(_ context.Context, _ string, _ Handler) error { return nil }

// Close implements Bus.
func (*NopBus) Close() error { return nil }
