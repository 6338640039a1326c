package analytics

import (
	"regexp"
	"time"
)

// BucketMode selects the calendar grain of the trend series.
type BucketMode string

const (
	BucketAuto  BucketMode = "auto"
	BucketDay   BucketMode = "day"
	BucketWeek  BucketMode = "week"
	BucketMonth BucketMode = "month"
)

// Shape tells the presentation layer how to draw the trend. The decision
// lives here so every client renders the same data the same way.
type Shape string

const (
	// ShapeBars: one aggregated bar per category, summed over the window.
	ShapeBars Shape = "bars"
	// ShapeLine: one line per category across buckets.
	ShapeLine Shape = "line"
	// ShapeStacked: stacked bars; chosen when line points would overlap.
	ShapeStacked Shape = "stacked"
)

// Display heuristics. Product-tuned, not derived; change with care and keep
// the boundary tests in sync.
const (
	// Past this many distinct active days, day buckets are illegible and
	// auto mode switches to weeks.
	autoWeekThreshold = 20

	// At or below this many active buckets the trend reads better as a
	// single bar per category.
	crowdedActiveBuckets = 2
)

// DefaultColor is used for categories that never supplied a valid color.
const DefaultColor = "#9CA3AF"

// All calendar math is pinned to KST so "today" means the same thing on the
// client and the server. FixedZone avoids a tzdata dependency.
var refZone = time.FixedZone("KST", 9*60*60)

// Entry is one aggregation input: a timestamp, a category label, and an
// optional raw color code.
type Entry struct {
	At       time.Time
	Category string
	Color    string
}

// Category pairs a label with its taxonomy color, for the authoritative
// fixed-category mode.
type Category struct {
	Name  string
	Color string
}

// Point is one bucket of the series. Counts always carries every category,
// zero-filled, so a gap renders as zero rather than a missing point.
type Point struct {
	Date   string         `json:"date"`
	Counts map[string]int `json:"counts"`
}

// Trend is the full aggregation output.
type Trend struct {
	Series     []Point           `json:"series"`
	Categories []string          `json:"categories"`
	Colors     map[string]string `json:"colors_by_category"`
	Bucket     BucketMode        `json:"bucket"`
	PeriodDays int               `json:"period_days"`
	ActiveDays int               `json:"active_days"`
	Shape      Shape             `json:"shape"`
}

// Options tune an aggregation call. A zero Now means the wall clock. A nil
// Categories list switches from the fixed taxonomy to first-seen discovery.
type Options struct {
	Now        time.Time
	Categories []Category
}

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// NormalizeHex returns a canonical #RRGGBB color, adding the leading # if
// missing, or "" when the input is not a 6-digit hex color.
func NormalizeHex(c string) string {
	if c == "" {
		return ""
	}
	if c[0] != '#' {
		c = "#" + c
	}
	if !hexColorRe.MatchString(c) {
		return ""
	}
	return c
}

// categorySet tracks labels in a deterministic order plus first-write-wins
// colors. With an authoritative list, membership is closed; otherwise
// labels are discovered in first-seen order.
type categorySet struct {
	order  []string
	colors map[string]string
	fixed  bool
	index  map[string]bool
}

func newCategorySet(authoritative []Category) *categorySet {
	cs := &categorySet{
		colors: make(map[string]string),
		index:  make(map[string]bool),
		fixed:  authoritative != nil,
	}
	for _, c := range authoritative {
		cs.order = append(cs.order, c.Name)
		cs.index[c.Name] = true
		if hex := NormalizeHex(c.Color); hex != "" {
			cs.colors[c.Name] = hex
		}
	}
	return cs
}

// observe registers a label (discovery mode only) and locks in its first
// valid color. Later conflicting colors for the same label are ignored.
func (cs *categorySet) observe(label, color string) {
	if !cs.index[label] {
		if cs.fixed {
			return
		}
		cs.order = append(cs.order, label)
		cs.index[label] = true
	}
	if _, ok := cs.colors[label]; !ok {
		if hex := NormalizeHex(color); hex != "" {
			cs.colors[label] = hex
		}
	}
}

// member reports whether a label participates in the output.
func (cs *categorySet) member(label string) bool {
	return cs.index[label]
}

// colorsOut returns the color map with DefaultColor filled in for
// categories that never supplied one.
func (cs *categorySet) colorsOut() map[string]string {
	out := make(map[string]string, len(cs.order))
	for _, label := range cs.order {
		if c, ok := cs.colors[label]; ok {
			out[label] = c
		} else {
			out[label] = DefaultColor
		}
	}
	return out
}

const dayFormat = "2006-01-02"

// DayKey is t's calendar date in the reference timezone, YYYY-MM-DD.
func DayKey(t time.Time) string {
	return dayOf(t).Format(dayFormat)
}

func dayOf(t time.Time) time.Time {
	t = t.In(refZone)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, refZone)
}

// weekOf returns the Monday starting the week containing d.
func weekOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func monthOf(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, refZone)
}

func bucketOf(d time.Time, mode BucketMode) time.Time {
	switch mode {
	case BucketWeek:
		return weekOf(d)
	case BucketMonth:
		return monthOf(d)
	default:
		return d
	}
}

// Aggregate buckets entries into a zero-filled series over the trailing
// periodDays calendar days ending today (inclusive), and decides the
// display shape for the result.
func Aggregate(entries []Entry, periodDays int, mode BucketMode, opts Options) Trend {
	if periodDays < 1 {
		periodDays = 1
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	today := dayOf(now)
	start := today.AddDate(0, 0, -(periodDays - 1))

	// Distinct days inside the window that have data; drives the auto
	// bucket choice and the sparse-data hint.
	active := make(map[string]bool)
	for _, e := range entries {
		d := dayOf(e.At)
		if !d.Before(start) && !d.After(today) {
			active[d.Format(dayFormat)] = true
		}
	}

	resolved := mode
	if mode == BucketAuto {
		if len(active) > autoWeekThreshold {
			resolved = BucketWeek
		} else {
			resolved = BucketDay
		}
	}

	cats := newCategorySet(opts.Categories)
	counts := make(map[string]map[string]int)
	for _, e := range entries {
		bucket := bucketOf(dayOf(e.At), resolved)
		// The bucket's anchor date decides window membership, so an
		// entry whose week starts before the window is left out even
		// when the entry itself falls inside it.
		if bucket.Before(start) || bucket.After(today) {
			continue
		}
		cats.observe(e.Category, e.Color)
		if !cats.member(e.Category) {
			continue
		}
		key := bucket.Format(dayFormat)
		if counts[key] == nil {
			counts[key] = make(map[string]int)
		}
		counts[key][e.Category]++
	}

	// Complete timeline, one point per bucket, zero-filled.
	var series []Point
	seen := make(map[string]bool)
	for cur := start; !cur.After(today); {
		key := bucketOf(cur, resolved).Format(dayFormat)
		if !seen[key] {
			seen[key] = true
			point := Point{Date: key, Counts: make(map[string]int, len(cats.order))}
			for _, label := range cats.order {
				point.Counts[label] = counts[key][label]
			}
			series = append(series, point)
		}
		switch resolved {
		case BucketWeek:
			cur = cur.AddDate(0, 0, 7)
		case BucketMonth:
			cur = cur.AddDate(0, 1, 0)
		default:
			cur = cur.AddDate(0, 0, 1)
		}
	}

	trend := Trend{
		Series:     series,
		Categories: append([]string(nil), cats.order...),
		Colors:     cats.colorsOut(),
		Bucket:     resolved,
		PeriodDays: periodDays,
		ActiveDays: len(active),
	}
	trend.Shape = chooseShape(trend)
	return trend
}

// chooseShape picks how the trend should render. Sparse or low-resolution
// data collapses to per-category bars; identical nonzero values in the same
// bucket would overlap as lines, so those stack instead.
func chooseShape(t Trend) Shape {
	var activeRows []Point
	for _, p := range t.Series {
		for _, n := range p.Counts {
			if n > 0 {
				activeRows = append(activeRows, p)
				break
			}
		}
	}

	if len(activeRows) <= crowdedActiveBuckets {
		return ShapeBars
	}
	for _, p := range activeRows {
		flat := true
		for _, n := range p.Counts {
			if n > 1 {
				flat = false
				break
			}
		}
		if flat {
			return ShapeBars
		}
	}

	for _, p := range t.Series {
		seen := make(map[int]bool)
		for _, n := range p.Counts {
			if n == 0 {
				continue
			}
			if seen[n] {
				return ShapeStacked
			}
			seen[n] = true
		}
	}
	return ShapeLine
}
