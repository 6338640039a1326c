package analytics

import (
	"testing"
	"time"
)

var testCategories = []Category{
	{Name: "A", Color: "#FF0000"},
	{Name: "B", Color: "#0000FF"},
}

// kst builds a KST timestamp at noon on the given date.
func kst(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, refZone)
}

func TestAggregateZeroFill(t *testing.T) {
	now := kst(2026, 3, 10)
	trend := Aggregate(nil, 7, BucketDay, Options{Now: now, Categories: testCategories})

	if len(trend.Series) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(trend.Series))
	}
	if trend.ActiveDays != 0 {
		t.Errorf("expected 0 active days, got %d", trend.ActiveDays)
	}
	for _, p := range trend.Series {
		if len(p.Counts) != 2 {
			t.Errorf("bucket %s: expected 2 category keys, got %d", p.Date, len(p.Counts))
		}
		for cat, n := range p.Counts {
			if n != 0 {
				t.Errorf("bucket %s category %s: expected 0, got %d", p.Date, cat, n)
			}
		}
	}
	if trend.Series[0].Date != "2026-03-04" {
		t.Errorf("first bucket = %s, want 2026-03-04", trend.Series[0].Date)
	}
	if trend.Series[6].Date != "2026-03-10" {
		t.Errorf("last bucket = %s, want 2026-03-10", trend.Series[6].Date)
	}
}

func TestAggregateEndToEnd(t *testing.T) {
	day0 := kst(2026, 3, 9)
	day1 := kst(2026, 3, 10)
	entries := []Entry{
		{At: day0, Category: "A"},
		{At: day0, Category: "A"},
		{At: day1, Category: "B"},
	}
	opts := Options{Now: day1, Categories: testCategories}

	trend := Aggregate(entries, 7, BucketDay, opts)
	if len(trend.Series) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(trend.Series))
	}
	for _, p := range trend.Series {
		wantA, wantB := 0, 0
		switch p.Date {
		case "2026-03-09":
			wantA = 2
		case "2026-03-10":
			wantB = 1
		}
		if p.Counts["A"] != wantA || p.Counts["B"] != wantB {
			t.Errorf("bucket %s: got A=%d B=%d, want A=%d B=%d",
				p.Date, p.Counts["A"], p.Counts["B"], wantA, wantB)
		}
	}
	if trend.ActiveDays != 2 {
		t.Errorf("active days = %d, want 2", trend.ActiveDays)
	}

	dist := Distribution(entries, 7, opts)
	if len(dist) != 2 {
		t.Fatalf("expected 2 distribution items, got %d", len(dist))
	}
	if dist[0].Category != "A" || dist[0].Count != 2 {
		t.Errorf("dist[0] = %+v, want A count 2", dist[0])
	}
	if dist[1].Category != "B" || dist[1].Count != 1 {
		t.Errorf("dist[1] = %+v, want B count 1", dist[1])
	}

	top, n, ok := MostFrequent(dist, entries, opts)
	if !ok || top != "A" || n != 2 {
		t.Errorf("most frequent = %q/%d/%v, want A/2/true", top, n, ok)
	}
}

func TestAggregateEntriesOutsideWindowIgnored(t *testing.T) {
	now := kst(2026, 3, 10)
	entries := []Entry{
		{At: kst(2026, 3, 1), Category: "A"},  // before the 7-day window
		{At: kst(2026, 3, 11), Category: "A"}, // after today
		{At: kst(2026, 3, 8), Category: "A"},
	}
	trend := Aggregate(entries, 7, BucketDay, Options{Now: now, Categories: testCategories})

	total := 0
	for _, p := range trend.Series {
		total += p.Counts["A"]
	}
	if total != 1 {
		t.Errorf("expected 1 counted entry, got %d", total)
	}
	if trend.ActiveDays != 1 {
		t.Errorf("active days = %d, want 1", trend.ActiveDays)
	}
}

func TestAggregateAutoBucketBoundary(t *testing.T) {
	now := kst(2026, 3, 31)
	opts := Options{Now: now, Categories: testCategories}

	mkEntries := func(days int) []Entry {
		var entries []Entry
		for i := 0; i < days; i++ {
			d := now.AddDate(0, 0, -i)
			entries = append(entries, Entry{At: d, Category: "A"}, Entry{At: d, Category: "A"})
		}
		return entries
	}

	at := Aggregate(mkEntries(autoWeekThreshold), 30, BucketAuto, opts)
	if at.Bucket != BucketDay {
		t.Errorf("at threshold: bucket = %s, want day", at.Bucket)
	}
	over := Aggregate(mkEntries(autoWeekThreshold+1), 30, BucketAuto, opts)
	if over.Bucket != BucketWeek {
		t.Errorf("over threshold: bucket = %s, want week", over.Bucket)
	}
}

func TestAggregateWeekBucketsStartMonday(t *testing.T) {
	// 2026-03-10 is a Tuesday; its week starts 2026-03-09.
	now := kst(2026, 3, 10)
	entries := []Entry{{At: now, Category: "A"}}
	trend := Aggregate(entries, 30, BucketWeek, Options{Now: now, Categories: testCategories})

	found := false
	for _, p := range trend.Series {
		if p.Counts["A"] > 0 {
			found = true
			if p.Date != "2026-03-09" {
				t.Errorf("entry bucketed at %s, want 2026-03-09", p.Date)
			}
		}
	}
	if !found {
		t.Fatal("entry not counted in any bucket")
	}
}

func TestAggregateDiscoveryMode(t *testing.T) {
	now := kst(2026, 3, 10)
	entries := []Entry{
		{At: now, Category: "calm", Color: "88CCEE"},
		{At: now, Category: "joy", Color: "#FFD700"},
		{At: now, Category: "calm", Color: "#123456"}, // loses to first write
		{At: now, Category: "fog", Color: "nonsense"},
	}
	trend := Aggregate(entries, 7, BucketDay, Options{Now: now})

	want := []string{"calm", "joy", "fog"}
	if len(trend.Categories) != len(want) {
		t.Fatalf("categories = %v, want %v", trend.Categories, want)
	}
	for i, c := range want {
		if trend.Categories[i] != c {
			t.Errorf("categories[%d] = %s, want %s", i, trend.Categories[i], c)
		}
	}
	if trend.Colors["calm"] != "#88CCEE" {
		t.Errorf("calm color = %s, want #88CCEE", trend.Colors["calm"])
	}
	if trend.Colors["fog"] != DefaultColor {
		t.Errorf("fog color = %s, want default", trend.Colors["fog"])
	}
}

func TestAggregateFixedModeDropsUnknownCategories(t *testing.T) {
	now := kst(2026, 3, 10)
	entries := []Entry{
		{At: now, Category: "A"},
		{At: now, Category: "mystery"},
	}
	trend := Aggregate(entries, 7, BucketDay, Options{Now: now, Categories: testCategories})

	if len(trend.Categories) != 2 {
		t.Fatalf("categories = %v, want the fixed pair", trend.Categories)
	}
	for _, p := range trend.Series {
		if _, ok := p.Counts["mystery"]; ok {
			t.Fatal("unknown category leaked into series")
		}
	}
}

func TestChooseShape(t *testing.T) {
	now := kst(2026, 3, 10)
	opts := Options{Now: now, Categories: testCategories}

	sparse := Aggregate([]Entry{
		{At: kst(2026, 3, 9), Category: "A"},
		{At: kst(2026, 3, 9), Category: "A"},
		{At: kst(2026, 3, 10), Category: "A"},
		{At: kst(2026, 3, 10), Category: "A"},
	}, 7, BucketDay, opts)
	if sparse.Shape != ShapeBars {
		t.Errorf("two active buckets: shape = %s, want bars", sparse.Shape)
	}

	flat := Aggregate([]Entry{
		{At: kst(2026, 3, 7), Category: "A"},
		{At: kst(2026, 3, 8), Category: "B"},
		{At: kst(2026, 3, 9), Category: "A"},
	}, 7, BucketDay, opts)
	if flat.Shape != ShapeBars {
		t.Errorf("all counts <= 1: shape = %s, want bars", flat.Shape)
	}

	stacked := Aggregate([]Entry{
		{At: kst(2026, 3, 7), Category: "A"}, {At: kst(2026, 3, 7), Category: "A"},
		{At: kst(2026, 3, 8), Category: "B"}, {At: kst(2026, 3, 8), Category: "B"},
		{At: kst(2026, 3, 9), Category: "A"}, {At: kst(2026, 3, 9), Category: "A"},
		{At: kst(2026, 3, 9), Category: "B"}, {At: kst(2026, 3, 9), Category: "B"},
	}, 7, BucketDay, opts)
	if stacked.Shape != ShapeStacked {
		t.Errorf("identical nonzero values in one bucket: shape = %s, want stacked", stacked.Shape)
	}

	line := Aggregate([]Entry{
		{At: kst(2026, 3, 7), Category: "A"}, {At: kst(2026, 3, 7), Category: "A"},
		{At: kst(2026, 3, 8), Category: "A"}, {At: kst(2026, 3, 8), Category: "A"},
		{At: kst(2026, 3, 8), Category: "B"},
		{At: kst(2026, 3, 9), Category: "A"}, {At: kst(2026, 3, 9), Category: "A"},
		{At: kst(2026, 3, 9), Category: "A"},
	}, 7, BucketDay, opts)
	if line.Shape != ShapeLine {
		t.Errorf("distinct values: shape = %s, want line", line.Shape)
	}
}

func TestMostFrequentFallbackToHistory(t *testing.T) {
	now := kst(2026, 3, 10)
	opts := Options{Now: now, Categories: testCategories}

	history := []Entry{
		{At: kst(2025, 12, 1), Category: "B"},
		{At: kst(2025, 12, 2), Category: "B"},
		{At: kst(2025, 12, 3), Category: "A"},
	}
	dist := Distribution(history, 30, opts)
	for _, it := range dist {
		if it.Count != 0 {
			t.Fatalf("expected empty window, got %+v", it)
		}
	}

	top, n, ok := MostFrequent(dist, history, opts)
	if !ok || top != "B" || n != 2 {
		t.Errorf("most frequent = %q/%d/%v, want B/2/true", top, n, ok)
	}
}

func TestMostFrequentTieBreaksByListOrder(t *testing.T) {
	now := kst(2026, 3, 10)
	opts := Options{Now: now, Categories: testCategories}
	entries := []Entry{
		{At: kst(2026, 3, 9), Category: "B"},
		{At: kst(2026, 3, 10), Category: "A"},
	}
	dist := Distribution(entries, 7, opts)
	top, _, ok := MostFrequent(dist, entries, opts)
	if !ok || top != "A" {
		t.Errorf("tie broke to %q, want A (list order)", top)
	}
}

func TestMostFrequentNoData(t *testing.T) {
	opts := Options{Now: kst(2026, 3, 10), Categories: testCategories}
	if _, _, ok := MostFrequent(Distribution(nil, 7, opts), nil, opts); ok {
		t.Error("expected ok=false with no data at all")
	}
}

func TestNormalizeHex(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"#FF0000", "#FF0000"},
		{"FF0000", "#FF0000"},
		{"#ff00aa", "#ff00aa"},
		{"#FFF", ""},
		{"red", ""},
		{"#GG0000", ""},
	}
	for _, c := range cases {
		if got := NormalizeHex(c.in); got != c.want {
			t.Errorf("NormalizeHex(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		remaining, total, want int
	}{
		{5, 10, 50},
		{10, 10, 100},
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 0, 100}, // zero total guards to 1
		{-2, 10, 0},
		{20, 10, 100},
	}
	for _, c := range cases {
		if got := ProgressPercent(c.remaining, c.total); got != c.want {
			t.Errorf("ProgressPercent(%d, %d) = %d, want %d", c.remaining, c.total, got, c.want)
		}
	}
}
