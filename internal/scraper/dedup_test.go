package scraper

import "testing"

func TestDedup(t *testing.T) {
	recs := []PublicationRecord{
		{Title: "Rapport annuel 2026", Date: "12 mars 2026", Category: "Rapport annuel"},
		{Title: "Rapport annuel 2026", Date: "12 mars 2026", Category: "duplicate"},
		{Title: "Rapport annuel 2026", Date: "13 mars 2026"},
		{Title: "Référé n° 5", Date: "12 mars 2026"},
	}

	unique := Dedup(recs)
	if len(unique) != 3 {
		t.Fatalf("expected 3 unique records, got %d", len(unique))
	}

	// First occurrence wins and order is preserved.
	if unique[0].Category != "Rapport annuel" {
		t.Fatalf("expected first occurrence to win, got category %q", unique[0].Category)
	}
	if unique[1].Date != "13 mars 2026" || unique[2].Title != "Référé n° 5" {
		t.Fatalf("input order not preserved: %+v", unique)
	}
}

func TestDedupIdempotent(t *testing.T) {
	recs := []PublicationRecord{
		{Title: "A", Date: "1"},
		{Title: "A", Date: "1"},
		{Title: "B", Date: "2"},
	}
	once := Dedup(recs)
	twice := Dedup(once)
	if len(once) != len(twice) {
		t.Fatalf("dedup not idempotent: %d vs %d", len(once), len(twice))
	}
}

func TestDedupEmpty(t *testing.T) {
	if got := Dedup(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}
