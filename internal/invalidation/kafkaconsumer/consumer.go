// Package kafkaconsumer applies boundary invalidation events from Kafka to
// the resolver caches.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
	obs "github.com/mohammed-shakir/suburb-boundaries/internal/core/observability"
	"github.com/mohammed-shakir/suburb-boundaries/internal/invalidation"
	mylog "github.com/mohammed-shakir/suburb-boundaries/internal/logger"
)

// Invalidator drops cached lookups. *resolver.Resolver satisfies it.
type Invalidator interface {
	InvalidateArea(ctx context.Context, bb model.BBox) error
	InvalidateName(ctx context.Context, name, region string) error
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	inv    Invalidator
}

func New(cfg Config, logger *slog.Logger, inv Invalidator) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "kafka_consumer"),
		inv:    inv,
	}
}

// Start joins the consumer group and applies events until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.inv == nil {
		return errors.New("kafkaconsumer: missing invalidator")
	}
	if len(c.cfg.Brokers) == 0 {
		return errors.New("kafkaconsumer: no brokers configured")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("kafka invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka consumer error", "err", err, "topic", c.cfg.Topic)
			select {
			case <-time.After(c.cfg.RetryBackoff):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			c.logger.Info("kafka invalidation consumer shutting down")
			return nil
		}
	}
}

// ProcessOne applies a single message. Undecodable or invalid events are
// logged and skipped so they cannot wedge the partition; cache failures are
// returned and the message is redelivered.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = mylog.WithComponent(ctx, "kafka_consumer")

	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncInvalidation("", "skipped")
		c.logger.WarnContext(ctx, "skipping undecodable invalidation event",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.IncInvalidation(ev.Kind, "skipped")
		c.logger.WarnContext(ctx, "skipping invalid invalidation event",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}

	var err error
	switch ev.Kind {
	case invalidation.KindArea:
		err = c.inv.InvalidateArea(ctx, ev.BBox.Model())
	case invalidation.KindName:
		err = c.inv.InvalidateName(ctx, strings.TrimSpace(ev.Name), ev.Region)
	}
	if err != nil {
		obs.IncInvalidation(ev.Kind, "error")
		c.logger.ErrorContext(ctx, "invalidation failed",
			"kind", ev.Kind, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return fmt.Errorf("invalidate %s: %w", ev.Kind, err)
	}

	obs.IncInvalidation(ev.Kind, "ok")
	c.logger.DebugContext(ctx, "invalidated cached boundaries",
		"kind", ev.Kind, "name", ev.Name, "region", ev.Region, "source", ev.Source)
	return nil
}
