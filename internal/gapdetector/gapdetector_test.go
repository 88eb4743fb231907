package gapdetector

import "testing"

func TestNoGapOnContiguousSequence(t *testing.T) {
	d := New()
	for _, seq := range []uint32{1, 2, 3, 4, 5} {
		d.Process(seq)
	}
	if d.TotalGaps() != 0 {
		t.Fatalf("total gaps: got %d", d.TotalGaps())
	}
}

func TestForwardGapRecorded(t *testing.T) {
	d := New()
	d.Process(1)
	d.Process(5)
	gaps := d.Gaps()
	if len(gaps) != 1 || gaps[0] != (Range{Lo: 2, Hi: 5}) {
		t.Fatalf("gaps: %+v", gaps)
	}
	if d.TotalGaps() != 3 {
		t.Fatalf("total gaps: got %d", d.TotalGaps())
	}
}

// S5 from the spec's end-to-end scenarios: [1, 2, 4, 3, 5] reconciles to
// zero total gaps once the late 3 arrives.
func TestS5GapReconciliationAcrossReordering(t *testing.T) {
	d := New()
	seqs := []uint32{1, 2, 4, 3, 5}
	for i, seq := range seqs {
		d.Process(seq)
		if i == 3 { // after the 4th call (index 3, value 3)
			if len(d.Gaps()) != 0 {
				t.Fatalf("after 4th call: gaps = %+v, want none", d.Gaps())
			}
		}
	}
	if d.TotalGaps() != 0 {
		t.Fatalf("after 5th call: total gaps = %d, want 0", d.TotalGaps())
	}
}

func TestLateArrivalSplitsRangeInMiddle(t *testing.T) {
	d := New()
	d.Process(1)
	d.Process(10) // gap [2,10)
	d.Process(5)  // late arrival in the middle of the gap

	gaps := d.Gaps()
	want := []Range{{Lo: 2, Hi: 5}, {Lo: 6, Hi: 10}}
	if len(gaps) != len(want) || gaps[0] != want[0] || gaps[1] != want[1] {
		t.Fatalf("gaps: %+v, want %+v", gaps, want)
	}
}

func TestLateArrivalAtRangeEdges(t *testing.T) {
	d := New()
	d.Process(1)
	d.Process(5) // gap [2,5)

	d.Process(2) // left edge
	if got, want := d.Gaps(), []Range{{Lo: 3, Hi: 5}}; len(got) != 1 || got[0] != want[0] {
		t.Fatalf("after left-edge arrival: %+v", got)
	}

	d.Process(4) // right edge
	if got, want := d.Gaps(), []Range{{Lo: 3, Hi: 4}}; len(got) != 1 || got[0] != want[0] {
		t.Fatalf("after right-edge arrival: %+v", got)
	}

	d.Process(3) // closes the single-width remainder entirely
	if got := d.Gaps(); len(got) != 0 {
		t.Fatalf("after closing arrival: %+v", got)
	}
}

func TestDuplicateArrivalOutsideAnyGapIsNoop(t *testing.T) {
	d := New()
	d.Process(1)
	d.Process(2)
	d.Process(1) // duplicate, no gap involved
	if d.TotalGaps() != 0 {
		t.Fatalf("total gaps: got %d", d.TotalGaps())
	}
}

func TestIsInGap(t *testing.T) {
	d := New()
	d.Process(1)
	d.Process(5)
	if !d.IsInGap(3) {
		t.Fatal("expected 3 to be in gap")
	}
	if d.IsInGap(5) {
		t.Fatal("5 should not be in gap (it's the observed high-water mark)")
	}
}

func TestReset(t *testing.T) {
	d := New()
	d.Process(1)
	d.Process(5)
	d.Reset()
	if d.TotalGaps() != 0 || len(d.Gaps()) != 0 {
		t.Fatalf("reset did not clear state")
	}
	d.Process(100) // behaves as a fresh first observation
	if d.TotalGaps() != 0 {
		t.Fatalf("total gaps after reset+first: got %d", d.TotalGaps())
	}
}
