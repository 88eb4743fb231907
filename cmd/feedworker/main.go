// Command feedworker consumes raw binary feed records from Kafka,
// decodes them, tracks sequence gaps, gates application on snapshot
// recovery, maintains the order book, and exposes the resulting stats as
// Prometheus metrics. On a detected gap it durably requests a fresh
// snapshot through the outbox/broadcaster pair rather than retrying the
// gap itself — retransmission policy is explicitly out of scope for this
// pipeline.
//
// The consumer-group handler shape (Setup/Cleanup/ConsumeClaim, one
// pipeline per partition) is grounded on a production trading worker's
// Kafka consumer (worker/main.go), adapted from protobuf trade events to
// this feed's fixed binary layout and from slog to this codebase's plain
// log idiom.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightline-markets/feedcore/internal/broadcaster"
	"github.com/brightline-markets/feedcore/internal/config"
	"github.com/brightline-markets/feedcore/internal/decoder"
	"github.com/brightline-markets/feedcore/internal/gapdetector"
	"github.com/brightline-markets/feedcore/internal/metrics"
	"github.com/brightline-markets/feedcore/internal/outbox"
	"github.com/brightline-markets/feedcore/internal/protocol"
	"github.com/brightline-markets/feedcore/internal/recovery"
	"github.com/brightline-markets/feedcore/internal/snapshotpublish"
	"github.com/brightline-markets/feedcore/internal/stats"
)

const (
	defaultTopic         = "feedcore.raw"
	defaultGroupID       = "feedcore-worker"
	defaultMetricsAddr   = ":9108"
	defaultOutboxDir     = "/var/lib/feedcore/outbox"
	defaultVenue         = "synthetic"
	defaultSymbol        = "XYZ"
	snapshotRequestTopic = "feedcore.snapshot-requests"
	depthPublishInterval = time.Second
	depthLevels          = 10
)

// pipeline is one symbol's straight-line decode -> gap-detect ->
// recovery-gated-apply chain, single-threaded per the core's concurrency
// model. depthSnapshots is fed from this same goroutine only
// (publishDepth), so the book is never read concurrently with the
// ConsumeClaim goroutine that mutates it.
type pipeline struct {
	venue, symbol   string
	gaps            *gapdetector.Detector
	recovery        *recovery.Manager
	stats           *stats.Stats
	outbox          *outbox.Outbox
	depthSnapshots  chan snapshotpublish.DepthSnapshot
}

func newPipeline(venue, symbol string, ob *outbox.Outbox, depthSnapshots chan snapshotpublish.DepthSnapshot) *pipeline {
	return &pipeline{
		venue:          venue,
		symbol:         symbol,
		gaps:           gapdetector.New(),
		recovery:       recovery.New(),
		stats:          stats.New(),
		outbox:         ob,
		depthSnapshots: depthSnapshots,
	}
}

// publishDepth takes a depth copy of the book on the calling goroutine —
// which must be the goroutine that owns the book — and hands it off to
// the snapshot publisher. It never blocks: if the publisher hasn't
// drained the previous snapshot yet, this one is dropped rather than
// stalling the consume loop.
func (p *pipeline) publishDepth() {
	if p.depthSnapshots == nil {
		return
	}
	book := p.recovery.Book()
	snap := snapshotpublish.DepthSnapshot{
		Symbol: p.symbol,
		Bids:   book.Depth(protocol.SideBid, depthLevels),
		Asks:   book.Depth(protocol.SideAsk, depthLevels),
		AsOf:   time.Now().UnixNano(),
	}
	select {
	case p.depthSnapshots <- snap:
	default:
	}
}

// consume decodes raw record-by-record, timing each decode and each
// book-update individually. It calls decoder.Decode directly rather than
// decoder.DecodeStream so that the two latencies stay attributable to the
// right stage, per the stats component's own contract.
func (p *pipeline) consume(raw []byte) {
	for len(raw) > 0 {
		decodeStart := time.Now()
		v, consumed, err := decoder.Decode(raw)
		p.stats.RecordDecodeLatency(time.Since(decodeStart).Nanoseconds())
		if err != nil {
			log.Printf("[feedworker] %s/%s: decode error: %v", p.venue, p.symbol, err)
			return
		}

		p.gaps.Process(v.Sequence())
		p.stats.SetGaps(p.gaps.TotalGaps())
		p.stats.IncrementMessages(v.MessageType(), v.Len())

		updateStart := time.Now()
		if v.MessageType() == protocol.MsgSnapshot {
			if err := p.recovery.ApplySnapshot(v); err != nil {
				log.Printf("[feedworker] %s/%s: apply_snapshot failed: %v", p.venue, p.symbol, err)
			}
		} else {
			outcome, err := p.recovery.ApplyUpdate(v)
			if err != nil {
				if err == recovery.ErrNeedsRecovery {
					p.requestSnapshot()
				} else {
					log.Printf("[feedworker] %s/%s: apply_update failed: %v", p.venue, p.symbol, err)
				}
			} else if outcome.Crossed {
				p.stats.IncrementCrossedBooks()
			}
		}
		p.stats.RecordBookUpdateLatency(time.Since(updateStart).Nanoseconds())

		raw = raw[consumed:]
	}
}

func (p *pipeline) requestSnapshot() {
	if p.outbox == nil {
		return
	}
	if _, err := p.outbox.RequestSnapshot(p.venue, p.symbol); err != nil {
		log.Printf("[feedworker] %s/%s: failed to request snapshot: %v", p.venue, p.symbol, err)
	}
}

type consumerHandler struct {
	pipelines map[string]*pipeline
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim is the sole goroutine that mutates this symbol's book: it
// both applies feed records and, on its own ticker, takes the depth copy
// that publishDepth hands off to Redis. Interleaving the two on one
// select loop is what keeps the book single-writer/single-reader-of-record.
func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	p := h.pipelines[defaultSymbol]
	msgs := claim.Messages()

	ticker := time.NewTicker(depthPublishInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if msg == nil {
				continue
			}
			p.consume(msg.Value)
			session.MarkMessage(msg, "")
		case <-ticker.C:
			p.publishDepth()
		case <-session.Context().Done():
			return nil
		}
	}
}

func main() {
	brokers, _ := config.GetEnv("FEEDCORE_KAFKA_BROKERS", []string{"localhost:9092"})
	topic, _ := config.GetEnv("FEEDCORE_TOPIC", defaultTopic)
	groupID, _ := config.GetEnv("FEEDCORE_GROUP_ID", defaultGroupID)
	metricsAddr, _ := config.GetEnv("FEEDCORE_METRICS_ADDR", defaultMetricsAddr)
	outboxDir, _ := config.GetEnv("FEEDCORE_OUTBOX_DIR", defaultOutboxDir)
	redisAddr, _ := config.GetEnv("FEEDCORE_REDIS_ADDR", "localhost:6379")

	ob, err := outbox.Open(outboxDir)
	if err != nil {
		log.Fatalf("feedworker: failed to open outbox: %v", err)
	}
	defer ob.Close()

	bc, err := broadcaster.New(ob, brokers, snapshotRequestTopic)
	if err != nil {
		log.Fatalf("feedworker: failed to start broadcaster: %v", err)
	}
	defer bc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bc.Start(ctx)

	depthSnapshots := make(chan snapshotpublish.DepthSnapshot, 1)
	p := newPipeline(defaultVenue, defaultSymbol, ob, depthSnapshots)

	redisClient := snapshotpublish.NewClient(redisAddr, "", 0)
	publisher := snapshotpublish.New(redisClient, defaultSymbol)
	go publisher.Run(ctx, depthSnapshots)

	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.New(p.stats))
	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		log.Printf("feedworker: metrics listening on %s", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.Printf("feedworker: metrics server stopped: %v", err)
		}
	}()

	cfg := sarama.NewConfig()
	cfg.Consumer.Return.Errors = true
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		log.Fatalf("feedworker: failed to start consumer group: %v", err)
	}
	defer group.Close()

	handler := &consumerHandler{pipelines: map[string]*pipeline{defaultSymbol: p}}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	for ctx.Err() == nil {
		if err := group.Consume(ctx, []string{topic}, handler); err != nil {
			log.Printf("feedworker: consume error: %v", err)
			time.Sleep(time.Second)
		}
	}
	log.Println("feedworker: shutting down")
}
