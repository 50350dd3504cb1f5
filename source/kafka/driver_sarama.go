// Package kafka is a sarama consumer-group source. Each message value is one
// encoded event. A partition's offset is marked only up to the newest
// message whose predecessors have all completed, and marks are committed on
// the configured interval.
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/campaneros/TQGenLevelAnalysis/internal/frame"
	"github.com/campaneros/TQGenLevelAnalysis/internal/logging"
	"github.com/campaneros/TQGenLevelAnalysis/source"
)

type SaramaDriver struct {
	cfg   Config
	cl    sarama.Client
	group sarama.ConsumerGroup
}

func (d *SaramaDriver) Configure(raw any) error {
	config, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("kafka-source: expected Config, got %T", raw)
	}
	d.cfg = config

	sc, err := saramaConfig(config)
	if err != nil {
		return err
	}
	if d.cl, err = sarama.NewClient(config.Brokers, sc); err != nil {
		return err
	}
	if d.group, err = newConsumerGroup(config.GroupID, d.cl); err != nil {
		_ = d.cl.Close()
		d.cl = nil
		return err
	}
	return nil
}

var newConsumerGroup = sarama.NewConsumerGroupFromClient

func saramaConfig(config Config) (*sarama.Config, error) {
	ver, err := sarama.ParseKafkaVersion(config.Version)
	if err != nil {
		return nil, err
	}
	sc := sarama.NewConfig()
	sc.Version = ver
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = config.Checkpoint.CommitInt
	if config.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if config.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = config.SASLUser, config.SASLPass
	}
	switch config.StartFrom {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	return sc, nil
}

func (d *SaramaDriver) Run(ctx context.Context, emit source.EmitFunc) error {
	handler := &groupHandler{emit: emit, maxInFlight: d.cfg.Checkpoint.MaxInFlight}

	go func() {
		for err := range d.group.Errors() {
			logging.L().Warn("kafka-source: consumer error", "err", err)
		}
	}()

	for {
		if err := d.group.Consume(ctx, d.cfg.Topics, handler); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (d *SaramaDriver) Close() error {
	if d.group != nil {
		_ = d.group.Close()
	}
	if d.cl != nil {
		_ = d.cl.Close()
	}
	return nil
}

type groupHandler struct {
	emit        source.EmitFunc
	maxInFlight int64
}

func (*groupHandler) Setup(sarama.ConsumerGroupSession) error { return nil }

func (*groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	sess.Commit()
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	tracker := NewCapped[*sarama.ConsumerMessage](h.maxInFlight)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			resolve, err := tracker.Track(ctx, msg, 1)
			if err != nil {
				return nil
			}
			f := toFrame(msg)
			f.Done = func() {
				if hi := resolve(); hi != nil {
					sess.MarkMessage(*hi, "")
				}
			}
			if err := h.emit(ctx, f); err != nil {
				return err
			}
		}
	}
}

func toFrame(msg *sarama.ConsumerMessage) *frame.Frame {
	return &frame.Frame{
		Key:        msg.Key,
		Value:      msg.Value,
		Headers:    toHeaderMap(msg.Headers),
		Ts:         msg.Timestamp,
		Checkpoint: frame.Checkpoint{Source: msg.Topic, Partition: msg.Partition, Offset: msg.Offset},
	}
}

func toHeaderMap(src []*sarama.RecordHeader) map[string][]byte {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(src))
	for _, h := range src {
		out[string(h.Key)] = h.Value
	}
	return out
}

func init() {
	source.Register("kafka", func() source.Adapter { return &SaramaDriver{} })
}
