package nbbo

import "testing"

func TestReducePicksBestAcrossVenues(t *testing.T) {
	q := Reduce([]BookSummary{
		{Venue: "A", BestBid: 100, HasBid: true, BestAsk: 110, HasAsk: true},
		{Venue: "B", BestBid: 105, HasBid: true, BestAsk: 108, HasAsk: true},
	})
	if q.BestBid != 105 || q.BestBidVenue != "B" {
		t.Fatalf("best bid: %+v", q)
	}
	if q.BestAsk != 108 || q.BestAskVenue != "B" {
		t.Fatalf("best ask: %+v", q)
	}
}

func TestReduceIgnoresEmptySides(t *testing.T) {
	q := Reduce([]BookSummary{
		{Venue: "A", HasBid: false, BestAsk: 50, HasAsk: true},
	})
	if q.HasBid {
		t.Fatal("expected no bid")
	}
	if !q.HasAsk || q.BestAsk != 50 {
		t.Fatalf("ask: %+v", q)
	}
}

func TestReduceEmptyInput(t *testing.T) {
	q := Reduce(nil)
	if q.HasBid || q.HasAsk {
		t.Fatalf("expected empty quote, got %+v", q)
	}
}
