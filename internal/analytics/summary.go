package analytics

import "time"

// DistributionItem is one slice of the category share breakdown.
type DistributionItem struct {
	Category string `json:"category"`
	Color    string `json:"color"`
	Count    int    `json:"count"`
}

// Distribution counts entries per category over the trailing periodDays
// calendar days ending today. With an authoritative category list every
// category appears, zero-filled, in list order.
func Distribution(entries []Entry, periodDays int, opts Options) []DistributionItem {
	if periodDays < 1 {
		periodDays = 1
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := dayOf(now)
	start := today.AddDate(0, 0, -(periodDays - 1))

	cats := newCategorySet(opts.Categories)
	counts := make(map[string]int)
	for _, e := range entries {
		d := dayOf(e.At)
		if d.Before(start) || d.After(today) {
			continue
		}
		cats.observe(e.Category, e.Color)
		if !cats.member(e.Category) {
			continue
		}
		counts[e.Category]++
	}

	colors := cats.colorsOut()
	out := make([]DistributionItem, 0, len(cats.order))
	for _, label := range cats.order {
		out = append(out, DistributionItem{
			Category: label,
			Color:    colors[label],
			Count:    counts[label],
		})
	}
	return out
}

// MostFrequent picks the dominant category from a windowed distribution.
// When the window is empty it falls back to the full history so a returning
// user still sees their long-run mood instead of a blank. Ties go to the
// earlier category in list order, which keeps the answer stable across
// calls. ok is false only when there is no data at all.
func MostFrequent(windowed []DistributionItem, history []Entry, opts Options) (category string, count int, ok bool) {
	best, n := pickTop(windowed)
	if n > 0 {
		return best, n, true
	}

	if len(history) == 0 {
		return "", 0, false
	}
	cats := newCategorySet(opts.Categories)
	counts := make(map[string]int)
	for _, e := range history {
		cats.observe(e.Category, e.Color)
		if cats.member(e.Category) {
			counts[e.Category]++
		}
	}
	items := make([]DistributionItem, 0, len(cats.order))
	for _, label := range cats.order {
		items = append(items, DistributionItem{Category: label, Count: counts[label]})
	}
	best, n = pickTop(items)
	if n == 0 {
		return "", 0, false
	}
	return best, n, true
}

func pickTop(items []DistributionItem) (string, int) {
	var best string
	max := 0
	for _, it := range items {
		if it.Count > max {
			max = it.Count
			best = it.Category
		}
	}
	return best, max
}

// ProgressPercent reports how much of a pass remains, rounded to the
// nearest whole percent and clamped to 0..100.
func ProgressPercent(remaining, total int) int {
	if total < 1 {
		total = 1
	}
	if remaining < 0 {
		remaining = 0
	}
	pct := int(float64(remaining)/float64(total)*100 + 0.5)
	if pct > 100 {
		pct = 100
	}
	return pct
}
