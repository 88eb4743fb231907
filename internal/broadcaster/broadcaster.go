// Package broadcaster reliably republishes pending outbox entries to a
// Kafka topic, retrying on a ticker until each is acknowledged.
//
// Grounded on a production broadcaster job that replays a durable exit
// outbox to Kafka on a fixed interval (jobs/broadcaster/broadcaster.go):
// same New/Start/replayOnce/Close shape, re-pointed at this feed's
// snapshot-request outbox instead of an order-exit outbox.
package broadcaster

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"

	"github.com/brightline-markets/feedcore/internal/outbox"
)

// Broadcaster drains StateNew and StateFailed outbox entries onto a Kafka
// topic, marking each Acked once delivered, or Failed with its retry
// count incremented when the send fails; Failed entries are sent again on
// the next tick.
type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
}

// Request is the JSON payload published for each snapshot request.
type Request struct {
	ID     string `json:"id"`
	Venue  string `json:"venue"`
	Symbol string `json:"symbol"`
}

// New dials brokers and returns a Broadcaster publishing to topic.
func New(ob *outbox.Outbox, brokers []string, topic string) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{outbox: ob, producer: producer, topic: topic}, nil
}

// Start launches the replay loop in a background goroutine, until ctx is
// cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	log.Println("[broadcaster] started")
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.replayOnce()
			}
		}
	}()
}

func (b *Broadcaster) replayOnce() {
	publish := func(rec outbox.Record) error {
		payload, err := json.Marshal(Request{ID: rec.ID, Venue: rec.Venue, Symbol: rec.Symbol})
		if err != nil {
			return nil // malformed record, skip rather than wedge the scan
		}

		msg := &sarama.ProducerMessage{Topic: b.topic, Value: sarama.ByteEncoder(payload)}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			log.Printf("[broadcaster] send failed for %s: %v", rec.ID, err)
			_ = b.outbox.UpdateState(rec.ID, outbox.StateFailed, rec.Retries+1)
			return nil
		}

		if err := b.outbox.UpdateState(rec.ID, outbox.StateAcked, rec.Retries); err != nil {
			log.Printf("[broadcaster] failed to mark %s acked: %v", rec.ID, err)
		}
		return nil
	}
	for _, state := range []outbox.State{outbox.StateNew, outbox.StateFailed} {
		if err := b.outbox.ScanByState(state, publish); err != nil {
			log.Printf("[broadcaster] scan failed: %v", err)
		}
	}
}

// Close shuts down the underlying producer.
func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
