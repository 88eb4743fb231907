package stats

import (
	"testing"

	"github.com/brightline-markets/feedcore/internal/protocol"
)

func TestIncrementMessagesAndSnapshot(t *testing.T) {
	s := New()
	s.IncrementMessages(protocol.MsgAddOrder, 46)
	s.IncrementMessages(protocol.MsgAddOrder, 46)
	s.IncrementMessages(protocol.MsgTrade, 38)

	report := s.Snapshot()
	if report.TotalMessages != 3 {
		t.Fatalf("total messages: %d", report.TotalMessages)
	}
	if report.MessagesByKind[protocol.MsgAddOrder] != 2 {
		t.Fatalf("AddOrder count: %d", report.MessagesByKind[protocol.MsgAddOrder])
	}
	if report.MessagesByKind[protocol.MsgTrade] != 1 {
		t.Fatalf("Trade count: %d", report.MessagesByKind[protocol.MsgTrade])
	}
}

func TestSetGapsAndCrossedBooks(t *testing.T) {
	s := New()
	s.SetGaps(3)
	s.SetGaps(5)
	s.IncrementCrossedBooks()

	report := s.Snapshot()
	if report.TotalGaps != 5 {
		t.Fatalf("total gaps: %d", report.TotalGaps)
	}
	if report.CrossedBooks != 1 {
		t.Fatalf("crossed books: %d", report.CrossedBooks)
	}
}

func TestSetGapsReflectsShrinkingTotal(t *testing.T) {
	s := New()
	s.SetGaps(5)
	s.SetGaps(2) // a late arrival reconciled part of the gap

	if report := s.Snapshot(); report.TotalGaps != 2 {
		t.Fatalf("total gaps: %d", report.TotalGaps)
	}
}

func TestLatencyPercentilesMonotonic(t *testing.T) {
	s := New()
	for i := int64(1); i <= 100; i++ {
		s.RecordDecodeLatency(i * 1000)
	}
	p := s.DecodeLatencyPercentiles()
	if !(p.P50 <= p.P90 && p.P90 <= p.P99) {
		t.Fatalf("percentiles not monotonic: %+v", p)
	}
	if p.P99 <= 0 {
		t.Fatalf("expected positive p99, got %v", p.P99)
	}
}

func TestLatencyWindowBounded(t *testing.T) {
	s := New()
	for i := 0; i < windowSize+500; i++ {
		s.RecordDecodeLatency(int64(i))
	}
	if len(s.decodeLatenciesUs) != windowSize {
		t.Fatalf("window length: %d, want %d", len(s.decodeLatenciesUs), windowSize)
	}
}

func TestResetClearsCounters(t *testing.T) {
	s := New()
	s.IncrementMessages(protocol.MsgAddOrder, 46)
	s.SetGaps(1)
	s.Reset()

	report := s.Snapshot()
	if report.TotalMessages != 0 || report.TotalGaps != 0 {
		t.Fatalf("reset did not clear counters: %+v", report)
	}
}
