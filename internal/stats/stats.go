// Package stats collects message counters, gap counts, crossed-book
// occurrences, and latency percentiles for a feed pipeline. It is a plain
// value-oriented component: nothing here blocks, and a Stats is safe to
// share only by taking a Snapshot, not by concurrent direct use.
//
// The bounded recent-history window and percentile derivation are
// grounded on the richer FeedStats component this spec was distilled
// from (original_source/src/stats.rs); the counter and percentile shape
// of Snapshot matches this feed's own StatsReport contract.
package stats

import (
	"sort"
	"time"

	"github.com/brightline-markets/feedcore/internal/protocol"
)

// windowSize bounds how many recent latency samples are kept for
// percentile computation, per metric.
const windowSize = 10000

// Stats accumulates counters and bounded latency windows.
type Stats struct {
	start time.Time

	totalMessages  uint64
	messagesByKind [6]uint64 // indexed by protocol.MessageType, 0 unused
	totalBytes     uint64
	totalGaps      uint64
	crossedBooks   uint64

	decodeLatenciesUs     []float64
	bookUpdateLatenciesUs []float64
}

// New returns a Stats with its clock started now.
func New() *Stats {
	return &Stats{start: time.Now()}
}

// IncrementMessages records one message of kind mt that was bytes long.
func (s *Stats) IncrementMessages(mt protocol.MessageType, bytes int) {
	s.totalMessages++
	if int(mt) < len(s.messagesByKind) {
		s.messagesByKind[mt]++
	}
	s.totalBytes += uint64(bytes)
}

// SetGaps records the current count of sequence numbers known to be
// missing. This is a gauge, not a counter: a gap detector's total can
// shrink as late arrivals reconcile a range, so callers should pass the
// detector's current total on every update rather than a per-message
// delta.
func (s *Stats) SetGaps(n uint32) {
	s.totalGaps = uint64(n)
}

// IncrementCrossedBooks records one observation of a crossed book.
func (s *Stats) IncrementCrossedBooks() {
	s.crossedBooks++
}

// RecordDecodeLatency appends a decode-latency sample, in nanoseconds.
func (s *Stats) RecordDecodeLatency(ns int64) {
	s.decodeLatenciesUs = pushBounded(s.decodeLatenciesUs, float64(ns)/1000)
}

// RecordBookUpdateLatency appends a book-update-latency sample, in
// nanoseconds.
func (s *Stats) RecordBookUpdateLatency(ns int64) {
	s.bookUpdateLatenciesUs = pushBounded(s.bookUpdateLatenciesUs, float64(ns)/1000)
}

func pushBounded(window []float64, v float64) []float64 {
	window = append(window, v)
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}
	return window
}

// Elapsed returns the time since Stats was created.
func (s *Stats) Elapsed() time.Duration { return time.Since(s.start) }

// MessagesPerSec returns the mean message rate since creation.
func (s *Stats) MessagesPerSec() float64 {
	secs := s.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.totalMessages) / secs
}

// BytesPerSec returns the mean byte rate since creation.
func (s *Stats) BytesPerSec() float64 {
	secs := s.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.totalBytes) / secs
}

// LatencyPercentiles are p50/p90/p99, in microseconds.
type LatencyPercentiles struct {
	P50, P90, P99 float64
}

func percentiles(samples []float64) LatencyPercentiles {
	if len(samples) == 0 {
		return LatencyPercentiles{}
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	pick := func(p float64) float64 {
		idx := int(p * float64(len(sorted)-1))
		return sorted[idx]
	}
	return LatencyPercentiles{
		P50: pick(0.50),
		P90: pick(0.90),
		P99: pick(0.99),
	}
}

// DecodeLatencyPercentiles returns percentiles over the recent decode
// latency window.
func (s *Stats) DecodeLatencyPercentiles() LatencyPercentiles {
	return percentiles(s.decodeLatenciesUs)
}

// BookUpdateLatencyPercentiles returns percentiles over the recent
// book-update latency window.
func (s *Stats) BookUpdateLatencyPercentiles() LatencyPercentiles {
	return percentiles(s.bookUpdateLatenciesUs)
}

// Report is the externally-visible snapshot of accumulated stats.
type Report struct {
	TotalMessages     uint64
	MessagesByKind    map[protocol.MessageType]uint64
	TotalGaps         uint64
	CrossedBooks      uint64
	DecodeLatency     LatencyPercentiles
	BookUpdateLatency LatencyPercentiles
	MessagesPerSec    float64
	BytesPerSec       float64
}

// Snapshot returns a point-in-time copy of the accumulated stats. Safe to
// hand to a reader running on another goroutine.
func (s *Stats) Snapshot() Report {
	byKind := make(map[protocol.MessageType]uint64, 5)
	for mt := protocol.MsgAddOrder; mt <= protocol.MsgSnapshot; mt++ {
		if s.messagesByKind[mt] > 0 {
			byKind[mt] = s.messagesByKind[mt]
		}
	}
	return Report{
		TotalMessages:     s.totalMessages,
		MessagesByKind:    byKind,
		TotalGaps:         s.totalGaps,
		CrossedBooks:      s.crossedBooks,
		DecodeLatency:     s.DecodeLatencyPercentiles(),
		BookUpdateLatency: s.BookUpdateLatencyPercentiles(),
		MessagesPerSec:    s.MessagesPerSec(),
		BytesPerSec:       s.BytesPerSec(),
	}
}

// Reset zeroes all counters and restarts the clock.
func (s *Stats) Reset() {
	*s = Stats{start: time.Now()}
}
