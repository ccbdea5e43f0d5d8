package models

import (
	"sort"
	"testing"
	"time"
)

func TestFormatTimestampIsLexicographicallyOrdered(t *testing.T) {
	times := []time.Time{
		time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 6, 10, 7, 59, 59, 0, time.UTC),
		time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	formatted := make([]string, len(times))
	for i, tm := range times {
		formatted[i] = FormatTimestamp(tm)
	}

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	sort.Strings(formatted)

	for i := range times {
		if formatted[i] != FormatTimestamp(times[i]) {
			t.Fatalf("string order diverges from time order at %d: %s vs %s",
				i, formatted[i], FormatTimestamp(times[i]))
		}
	}
}

func TestHistoricalBidUnitPrice(t *testing.T) {
	b := HistoricalBid{Quantity: 4, TotalAmount: 1000}
	if got := b.UnitPrice(); got != 250 {
		t.Fatalf("unexpected unit price: %v", got)
	}

	for _, bad := range []HistoricalBid{
		{Quantity: 0, TotalAmount: 1000},
		{Quantity: -1, TotalAmount: 1000},
		{Quantity: 4, TotalAmount: 0},
	} {
		if got := bad.UnitPrice(); got != 0 {
			t.Fatalf("unusable row should price at 0, got %v", got)
		}
	}
}

func TestCompanyProfileKeywordList(t *testing.T) {
	p := CompanyProfile{Keywords: "laptop, repair , , notebooks"}
	got := p.KeywordList()
	want := []string{"laptop", "repair", "notebooks"}
	if len(got) != len(want) {
		t.Fatalf("unexpected keywords: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keyword %d = %q, want %q", i, got[i], want[i])
		}
	}

	if got := (CompanyProfile{}).KeywordList(); len(got) != 0 {
		t.Fatalf("empty column should yield no keywords, got %v", got)
	}
}
