// Command feedgen publishes a synthetic stream of binary feed records to
// Kafka, for exercising feedworker without a live venue connection.
//
// Grounded on this spec's original Rust feed_generator example (random
// AddOrder/ModifyOrder/DeleteOrder/Trade records with incrementing
// sequence numbers), reworked onto the teacher's kafka-go producer
// wrapper (infra/kafka/producer.go) instead of writing to a file.
package main

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/brightline-markets/feedcore/internal/config"
	"github.com/brightline-markets/feedcore/internal/protocol"
)

func main() {
	brokers, _ := config.GetEnv("FEEDCORE_KAFKA_BROKERS", []string{"localhost:9092"})
	topic, _ := config.GetEnv("FEEDCORE_TOPIC", "feedcore.raw")
	count, _ := config.GetEnv("FEEDCORE_MESSAGE_COUNT", 10000)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	defer writer.Close()

	log.Printf("feedgen: publishing %d messages to topic %q", count, topic)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	orderIDCounter := uint64(1000)
	seq := uint32(1)

	ctx := context.Background()
	for i := 0; i < count; i++ {
		buf := generateOne(rng, &orderIDCounter, seq)
		if err := writer.WriteMessages(ctx, kafka.Message{Value: buf}); err != nil {
			log.Fatalf("feedgen: write failed: %v", err)
		}
		seq++

		if i > 0 && i%1000 == 0 {
			log.Printf("feedgen: generated %d messages", i)
		}
	}

	log.Printf("feedgen: done, generated %d messages", count)
}

func randomPrice(rng *rand.Rand) uint64 {
	const base = 100_00000000
	offset := rng.Int63n(1_000_000_000) - 500_000_000
	if offset < 0 {
		d := uint64(-offset)
		if d > base {
			return 0
		}
		return base - d
	}
	return base + uint64(offset)
}

func generateOne(rng *rand.Rand, orderIDCounter *uint64, seq uint32) []byte {
	switch rng.Intn(4) + 1 {
	case 1:
		buf := make([]byte, protocol.SizeAddOrder)
		protocol.PutHeader(buf, protocol.MsgAddOrder, protocol.SizeAddOrder, seq)
		id := *orderIDCounter
		*orderIDCounter++
		side := protocol.SideBid
		if rng.Intn(2) == 1 {
			side = protocol.SideAsk
		}
		protocol.PutAddOrder(buf, protocol.AddOrderFields{
			OrderID:  id,
			Price:    randomPrice(rng),
			Quantity: uint32(rng.Intn(999) + 1),
			Side:     side,
		})
		return buf

	case 2:
		buf := make([]byte, protocol.SizeModifyOrder)
		protocol.PutHeader(buf, protocol.MsgModifyOrder, protocol.SizeModifyOrder, seq)
		protocol.PutModifyOrder(buf, protocol.ModifyOrderFields{
			OrderID:     randomExistingID(rng, *orderIDCounter),
			NewQuantity: uint32(rng.Intn(999) + 1),
		})
		return buf

	case 3:
		buf := make([]byte, protocol.SizeDeleteOrder)
		protocol.PutHeader(buf, protocol.MsgDeleteOrder, protocol.SizeDeleteOrder, seq)
		protocol.PutDeleteOrder(buf, protocol.DeleteOrderFields{
			OrderID: randomExistingID(rng, *orderIDCounter),
		})
		return buf

	default:
		buf := make([]byte, protocol.SizeTrade)
		protocol.PutHeader(buf, protocol.MsgTrade, protocol.SizeTrade, seq)
		protocol.PutTrade(buf, protocol.TradeFields{
			BuyerOrderID:  randomExistingID(rng, *orderIDCounter),
			SellerOrderID: randomExistingID(rng, *orderIDCounter),
			Price:         randomPrice(rng),
			Quantity:      uint32(rng.Intn(999) + 1),
		})
		return buf
	}
}

func randomExistingID(rng *rand.Rand, counter uint64) uint64 {
	if counter <= 1000 {
		return 1000
	}
	return 1000 + uint64(rng.Int63n(int64(counter-1000)))
}
