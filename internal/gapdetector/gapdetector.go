// Package gapdetector tracks missing sequence ranges in an otherwise
// monotonic stream of sequence numbers, tolerating out-of-order and
// duplicate arrivals without re-ordering them for downstream consumers.
//
// Grounded on the simpler append-only model in original_source's
// gap_detector.rs, extended with the late/duplicate-arrival range-split
// rule this feed's wire contract requires.
package gapdetector

import "sort"

// Range is a half-open interval [Lo, Hi) of missing sequence numbers.
type Range struct {
	Lo, Hi uint32
}

func (r Range) size() uint32 { return r.Hi - r.Lo }

// Detector observes sequence numbers in arrival order and maintains the
// set of sequence ranges that have not yet been observed.
type Detector struct {
	hasLast bool
	last    uint32
	gaps    []Range // sorted ascending by Lo, non-overlapping
}

// New returns an empty Detector.
func New() *Detector {
	return &Detector{}
}

// Process observes seq and updates the gap set per the feed's
// reconciliation rule:
//   - first call: records seq as the high-water mark, no gap.
//   - seq == last+1: advances the high-water mark, no gap.
//   - seq > last+1: records [last+1, seq) as missing, advances the mark.
//   - seq <= last: a late or duplicate arrival; removes seq from whatever
//     gap range contains it, splitting the range if seq falls strictly
//     inside it. The high-water mark does not move.
func (d *Detector) Process(seq uint32) {
	if !d.hasLast {
		d.hasLast = true
		d.last = seq
		return
	}
	switch {
	case seq == d.last+1:
		d.last = seq
	case seq > d.last+1:
		d.gaps = append(d.gaps, Range{Lo: d.last + 1, Hi: seq})
		d.last = seq
	default:
		d.reconcile(seq)
	}
}

// reconcile removes seq from any gap range containing it.
func (d *Detector) reconcile(seq uint32) {
	i := d.indexContaining(seq)
	if i < 0 {
		return
	}
	r := d.gaps[i]
	var left, right *Range
	if seq > r.Lo {
		left = &Range{Lo: r.Lo, Hi: seq}
	}
	if seq+1 < r.Hi {
		right = &Range{Lo: seq + 1, Hi: r.Hi}
	}

	switch {
	case left == nil && right == nil:
		d.gaps = append(d.gaps[:i], d.gaps[i+1:]...)
	case left != nil && right == nil:
		d.gaps[i] = *left
	case left == nil && right != nil:
		d.gaps[i] = *right
	default:
		d.gaps[i] = *left
		tail := append([]Range{*right}, d.gaps[i+1:]...)
		d.gaps = append(d.gaps[:i+1], tail...)
	}
}

// indexContaining returns the index of the gap range containing seq, or
// -1 if none does.
func (d *Detector) indexContaining(seq uint32) int {
	i := sort.Search(len(d.gaps), func(i int) bool { return d.gaps[i].Lo > seq })
	i--
	if i < 0 || i >= len(d.gaps) {
		return -1
	}
	if seq >= d.gaps[i].Lo && seq < d.gaps[i].Hi {
		return i
	}
	return -1
}

// Gaps returns a copy of the currently-known missing ranges, ordered
// ascending.
func (d *Detector) Gaps() []Range {
	out := make([]Range, len(d.gaps))
	copy(out, d.gaps)
	return out
}

// TotalGaps returns the sum of the widths of all currently-known gap
// ranges.
func (d *Detector) TotalGaps() uint32 {
	var total uint32
	for _, r := range d.gaps {
		total += r.size()
	}
	return total
}

// IsInGap reports whether seq currently falls inside a known gap range.
func (d *Detector) IsInGap(seq uint32) bool {
	return d.indexContaining(seq) >= 0
}

// Reset clears all state, as if no sequence numbers had ever been seen.
func (d *Detector) Reset() {
	d.hasLast = false
	d.last = 0
	d.gaps = nil
}
