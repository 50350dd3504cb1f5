// Package kafka publishes result frames to a topic with a sarama async
// producer, keyed by event id. Push returns once the broker has answered
// for that frame, so a nil error means the frame was delivered.
package kafka

import (
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"github.com/campaneros/TQGenLevelAnalysis/internal/frame"
	"github.com/campaneros/TQGenLevelAnalysis/internal/logging"
	"github.com/campaneros/TQGenLevelAnalysis/sink"
)

var errClosed = errors.New("kafka-sink: closed")

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
	Version string   `yaml:"version"`
}

type driver struct {
	cfg Config

	mu     sync.RWMutex // guards p against Close
	p      sarama.AsyncProducer
	closed bool
	done   chan struct{}

	errMu sync.Mutex
	err   error // first delivery failure
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if cfg.Topic == "" || len(cfg.Brokers) == 0 {
		return errors.New("kafka-sink: brokers and topic required")
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return err
		}
		sc.Version = ver
	} else {
		sc.Version = sarama.V2_8_0_0
	}
	p, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return err
	}
	d.attach(p)
	return nil
}

// attach takes ownership of p and routes every delivery result back to the
// Push waiting on it. p must return successes.
func (d *driver) attach(p sarama.AsyncProducer) {
	d.p = p
	d.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for msg := range p.Successes() {
			reply(msg, nil)
		}
	}()
	go func() {
		defer wg.Done()
		for perr := range p.Errors() {
			err := fmt.Errorf("kafka-sink: produce to %s: %w", d.cfg.Topic, perr.Err)
			d.fail(err)
			logging.L().Error("kafka-sink: produce failed", "topic", d.cfg.Topic, "err", perr.Err)
			reply(perr.Msg, err)
		}
	}()
	go func() {
		wg.Wait()
		close(d.done)
	}()
}

func reply(msg *sarama.ProducerMessage, err error) {
	if msg == nil {
		return
	}
	if ch, ok := msg.Metadata.(chan error); ok {
		select {
		case ch <- err:
		default: // already answered
		}
	}
}

func (d *driver) fail(err error) {
	d.errMu.Lock()
	if d.err == nil {
		d.err = err
	}
	d.errMu.Unlock()
}

func (d *driver) failure() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

func (d *driver) Push(f *frame.Frame) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errClosed
	}
	result := make(chan error, 1)
	d.p.Input() <- &sarama.ProducerMessage{
		Topic:    d.cfg.Topic,
		Key:      sarama.ByteEncoder(f.Key),
		Value:    sarama.ByteEncoder(f.Value),
		Headers:  toRecordHeaders(f.Headers),
		Metadata: result,
	}
	return <-result
}

// Close flushes the producer and reports the first delivery failure seen
// over the driver's lifetime.
func (d *driver) Close() error {
	d.mu.Lock()
	if d.closed || d.p == nil {
		d.mu.Unlock()
		return d.failure()
	}
	d.closed = true
	d.mu.Unlock()

	d.p.AsyncClose()
	<-d.done
	return d.failure()
}

func toRecordHeaders(h map[string][]byte) []sarama.RecordHeader {
	if len(h) == 0 {
		return nil
	}
	out := make([]sarama.RecordHeader, 0, len(h))
	for k, v := range h {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: v})
	}
	return out
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
