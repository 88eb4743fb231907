// Package nbbo aggregates per-venue best-price summaries into a national
// best bid/offer. This sits entirely outside the core's latency-critical
// path; the core only needs to expose best_bid/best_ask per book, and
// this reducer is specified only at its interface, per design.
package nbbo

// BookSummary is the minimal per-venue input this reducer needs: the
// best bid and best ask currently known for one book.
type BookSummary struct {
	Venue   string
	BestBid uint64
	HasBid  bool
	BestAsk uint64
	HasAsk  bool
}

// Quote is the resulting national best bid/offer across venues.
type Quote struct {
	BestBid      uint64
	BestBidVenue string
	HasBid       bool
	BestAsk      uint64
	BestAskVenue string
	HasAsk       bool
}

// Reduce computes the NBBO across summaries: the highest bid and the
// lowest ask, each tagged with the venue that posted it.
func Reduce(summaries []BookSummary) Quote {
	var q Quote
	for _, s := range summaries {
		if s.HasBid && (!q.HasBid || s.BestBid > q.BestBid) {
			q.BestBid = s.BestBid
			q.BestBidVenue = s.Venue
			q.HasBid = true
		}
		if s.HasAsk && (!q.HasAsk || s.BestAsk < q.BestAsk) {
			q.BestAsk = s.BestAsk
			q.BestAskVenue = s.Venue
			q.HasAsk = true
		}
	}
	return q
}
