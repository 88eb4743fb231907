package outbox

import (
	"testing"
)

func TestRequestSnapshotAndGet(t *testing.T) {
	dir := t.TempDir()
	o, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer o.Close()

	id, err := o.RequestSnapshot("NASDAQ", "XYZ")
	if err != nil {
		t.Fatalf("request snapshot: %v", err)
	}

	rec, err := o.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Venue != "NASDAQ" || rec.Symbol != "XYZ" || rec.State != StateNew {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestUpdateStateTransitions(t *testing.T) {
	dir := t.TempDir()
	o, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer o.Close()

	id, _ := o.RequestSnapshot("NASDAQ", "XYZ")
	if err := o.UpdateState(id, StateSent, 1); err != nil {
		t.Fatalf("update state: %v", err)
	}

	rec, err := o.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.State != StateSent || rec.Retries != 1 {
		t.Fatalf("unexpected record after update: %+v", rec)
	}
	if rec.LastAttempt == 0 {
		t.Fatal("expected LastAttempt to be stamped")
	}
}

func TestScanByStateOnlyVisitsMatchingRecords(t *testing.T) {
	dir := t.TempDir()
	o, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer o.Close()

	newID, _ := o.RequestSnapshot("NASDAQ", "AAA")
	ackedID, _ := o.RequestSnapshot("NASDAQ", "BBB")
	if err := o.UpdateState(ackedID, StateAcked, 0); err != nil {
		t.Fatalf("update state: %v", err)
	}

	var seen []string
	if err := o.ScanByState(StateNew, func(r Record) error {
		seen = append(seen, r.ID)
		return nil
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(seen) != 1 || seen[0] != newID {
		t.Fatalf("expected only %s, got %v", newID, seen)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	dir := t.TempDir()
	o, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer o.Close()

	id, _ := o.RequestSnapshot("NASDAQ", "XYZ")
	if err := o.Delete(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := o.Get(id); err == nil {
		t.Fatal("expected error getting deleted record")
	}
}
