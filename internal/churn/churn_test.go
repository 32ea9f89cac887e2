package churn

import (
	"testing"
	"time"

	"codeintel-clone/internal/historymine"
)

func TestIsoWeekMonday(t *testing.T) {
	// 2024-01-01 is a Monday.
	monday := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if got := isoWeekMonday(monday); got != "2024-01-01" {
		t.Fatalf("expected 2024-01-01, got %s", got)
	}
	// 2024-01-07 is a Sunday, same ISO week as the Monday above.
	sunday := time.Date(2024, 1, 7, 23, 59, 0, 0, time.UTC)
	if got := isoWeekMonday(sunday); got != "2024-01-01" {
		t.Fatalf("expected sunday to fall back to 2024-01-01, got %s", got)
	}
}

// TestFold_CommutativeAcrossOrder verifies P3: churn additivity does not
// depend on the order commit records are folded in.
func TestFold_CommutativeAcrossOrder(t *testing.T) {
	week := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC) // a Monday
	a := historymine.CommitRecord{
		Hash:       "a",
		AuthoredAt: week,
		Deltas:     []historymine.FileDelta{{FilePath: "x.go", Added: 10, Deleted: 2}},
	}
	b := historymine.CommitRecord{
		Hash:       "b",
		AuthoredAt: week.Add(2 * time.Hour),
		Deltas:     []historymine.FileDelta{{FilePath: "x.go", Added: 5, Deleted: 1}},
	}

	forward := Fold([]historymine.CommitRecord{a, b})
	backward := Fold([]historymine.CommitRecord{b, a})

	key := bucketKey{filePath: "x.go", weekStart: "2024-03-04"}
	if forward[key] != backward[key] {
		t.Fatalf("fold is not order-independent: forward=%+v backward=%+v", forward[key], backward[key])
	}
	if forward[key].added != 15 || forward[key].deleted != 3 || forward[key].commits != 2 {
		t.Fatalf("unexpected fold totals: %+v", forward[key])
	}
}

func TestFold_SeparatesByWeek(t *testing.T) {
	week1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	week2 := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	records := []historymine.CommitRecord{
		{Hash: "a", AuthoredAt: week1, Deltas: []historymine.FileDelta{{FilePath: "x.go", Added: 3, Deleted: 0}}},
		{Hash: "b", AuthoredAt: week2, Deltas: []historymine.FileDelta{{FilePath: "x.go", Added: 4, Deleted: 0}}},
	}
	buckets := Fold(records)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 distinct weekly buckets, got %d", len(buckets))
	}
}
