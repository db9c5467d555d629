package bus

import (
	"fmt"
	"strings"

	"github.com/ricesearch/driftbench/internal/config"
	"github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/logger"
)

// NewBus creates a new Bus instance based on the configuration. When
// cfg.EventLog is set the bus also journals every publication to that file.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	var b Bus

	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		b = NewMemoryBus(log)

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "driftbench"
		}

		kb, err := NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "driftbench",
		}, log)
		if err != nil {
			return nil, err
		}
		b = kb

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}

	if cfg.EventLog == "" {
		return b, nil
	}

	journal, err := OpenJournal(cfg.EventLog)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return NewJournaledBus(b, journal, log), nil
}
