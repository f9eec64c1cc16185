// Package stats derives practice statistics from the session history.
// Nothing here mutates the sessions it reads.
package stats

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"fretlog/internal/domain"
)

// DateLayout is the key format of daily totals.
const DateLayout = "2006-01-02"

const defaultMemoSize = 64

// Source supplies the session history. Revision must change whenever the
// sessions or categories change.
type Source interface {
	Sessions() []domain.Session
	Categories() []domain.Category
	Revision() uint64
}

// Summary is the practice time in each calendar period containing now.
type Summary struct {
	Today    time.Duration
	Week     time.Duration
	Month    time.Duration
	Year     time.Duration
	AllTime  time.Duration
	Sessions int
}

// ItemTotal is the accumulated time of one library item.
type ItemTotal struct {
	LibraryItemID string
	Name          string
	CategoryID    string
	Total         time.Duration
	Sessions      int
}

// RecentItem is a practiced item tagged with its session's date.
type RecentItem struct {
	SessionID string
	Date      time.Time
	Item      domain.SessionItem
}

// CategoryShare is the time spent in one category and its share of the
// period total.
type CategoryShare struct {
	CategoryID string
	Name       string
	Icon       string
	Color      string
	Total      time.Duration
	Share      float64
}

// Streak counts consecutive practice days.
type Streak struct {
	Current int
	Longest int
	// LastPracticed is the most recent practice day, zero if none.
	LastPracticed time.Time
}

// DayTotal is one heatmap cell.
type DayTotal struct {
	Date  time.Time
	Total time.Duration
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the zone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.loc = loc }
}

// WithMemoSize sets how many results are memoized.
func WithMemoSize(size int) Option {
	return func(a *Aggregator) { a.memoSize = size }
}

// Aggregator computes statistics on demand and memoizes them per source
// revision and calendar day.
type Aggregator struct {
	source   Source
	now      func() time.Time
	loc      *time.Location
	memoSize int
	memo     *lru.Cache[string, any]
}

// New creates an Aggregator over source.
func New(source Source, opts ...Option) (*Aggregator, error) {
	a := &Aggregator{
		source:   source,
		now:      time.Now,
		loc:      time.Local,
		memoSize: defaultMemoSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.memoSize <= 0 {
		a.memoSize = defaultMemoSize
	}
	memo, err := lru.New[string, any](a.memoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats memo: %w", err)
	}
	a.memo = memo
	return a, nil
}

func (a *Aggregator) today() time.Time {
	return a.now().In(a.loc)
}

// cached returns the memoized value for key, computing it on a miss.
func cached[T any](a *Aggregator, key string, compute func() T) T {
	k := fmt.Sprintf("%d|%s|%s", a.source.Revision(), a.today().Format(DateLayout), key)
	if v, ok := a.memo.Get(k); ok {
		if t, ok := v.(T); ok {
			return t
		}
	}
	v := compute()
	a.memo.Add(k, v)
	return v
}

// TotalInRange sums session totals dated within [start, end].
func (a *Aggregator) TotalInRange(start, end time.Time) time.Duration {
	return totalIn(a.source.Sessions(), Range{Start: start, End: end})
}

func totalIn(sessions []domain.Session, r Range) time.Duration {
	var total time.Duration
	for _, s := range sessions {
		if r.Contains(s.Date) {
			total += s.TotalTime
		}
	}
	return total
}

// PeriodRange returns the window of p containing the aggregator's now.
func (a *Aggregator) PeriodRange(p Period) Range {
	return PeriodRange(p, a.today())
}

func (a *Aggregator) Summary() Summary {
	return cached(a, "summary", func() Summary {
		sessions := a.source.Sessions()
		now := a.today()
		return Summary{
			Today:    totalIn(sessions, PeriodRange(PeriodDay, now)),
			Week:     totalIn(sessions, PeriodRange(PeriodWeek, now)),
			Month:    totalIn(sessions, PeriodRange(PeriodMonth, now)),
			Year:     totalIn(sessions, PeriodRange(PeriodYear, now)),
			AllTime:  totalIn(sessions, Range{}),
			Sessions: len(sessions),
		}
	})
}

// MostPracticedItems groups item time by library item within the period,
// most time first. A limit of zero or less returns every item.
func (a *Aggregator) MostPracticedItems(p Period, limit int) []ItemTotal {
	all := cached(a, "top|"+string(p), func() []ItemTotal {
		r := a.PeriodRange(p)
		byID := make(map[string]*ItemTotal)
		var order []string
		for _, s := range a.source.Sessions() {
			if !r.Contains(s.Date) {
				continue
			}
			seen := make(map[string]bool)
			for _, item := range s.Items {
				t, ok := byID[item.LibraryItemID]
				if !ok {
					t = &ItemTotal{LibraryItemID: item.LibraryItemID, Name: item.Name, CategoryID: item.CategoryID}
					byID[item.LibraryItemID] = t
					order = append(order, item.LibraryItemID)
				}
				t.Total += item.TimeSpent
				if !seen[item.LibraryItemID] {
					seen[item.LibraryItemID] = true
					t.Sessions++
				}
			}
		}
		out := make([]ItemTotal, 0, len(order))
		for _, id := range order {
			out = append(out, *byID[id])
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
		return out
	})
	return truncate(all, limit)
}

// RecentPracticeItems flattens items from the newest sessions first, keeping
// each session's item order.
func (a *Aggregator) RecentPracticeItems(limit int) []RecentItem {
	all := cached(a, "recent", func() []RecentItem {
		sessions := slices.Clone(a.source.Sessions())
		sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].Date.After(sessions[j].Date) })
		var out []RecentItem
		for _, s := range sessions {
			for _, item := range s.Items {
				out = append(out, RecentItem{SessionID: s.ID, Date: s.Date, Item: item})
			}
		}
		return out
	})
	return truncate(all, limit)
}

// DailyTotals buckets session totals by local calendar date.
func (a *Aggregator) DailyTotals() map[string]time.Duration {
	return maps.Clone(a.dailyTotals())
}

func (a *Aggregator) dailyTotals() map[string]time.Duration {
	return cached(a, "daily", func() map[string]time.Duration {
		out := make(map[string]time.Duration)
		for _, s := range a.source.Sessions() {
			out[s.Date.In(a.loc).Format(DateLayout)] += s.TotalTime
		}
		return out
	})
}

// CategoryBreakdown groups item time by category within the period,
// leaving out categories with no time.
func (a *Aggregator) CategoryBreakdown(p Period) []CategoryShare {
	out := cached(a, "categories|"+string(p), func() []CategoryShare {
		r := a.PeriodRange(p)
		totals := make(map[string]time.Duration)
		var order []string
		var grand time.Duration
		for _, s := range a.source.Sessions() {
			if !r.Contains(s.Date) {
				continue
			}
			for _, item := range s.Items {
				if _, ok := totals[item.CategoryID]; !ok {
					order = append(order, item.CategoryID)
				}
				totals[item.CategoryID] += item.TimeSpent
				grand += item.TimeSpent
			}
		}

		known := make(map[string]domain.Category)
		for _, c := range a.source.Categories() {
			known[c.ID] = c
		}

		shares := make([]CategoryShare, 0, len(order))
		for _, id := range order {
			total := totals[id]
			if total <= 0 {
				continue
			}
			c := known[id]
			shares = append(shares, CategoryShare{
				CategoryID: id,
				Name:       c.Name,
				Icon:       c.Icon,
				Color:      c.Color,
				Total:      total,
				Share:      float64(total) / float64(grand),
			})
		}
		sort.SliceStable(shares, func(i, j int) bool { return shares[i].Total > shares[j].Total })
		return shares
	})
	return slices.Clone(out)
}

// Streak counts consecutive days with practice time. The current streak
// counts back from today, or from yesterday when today has no practice yet.
func (a *Aggregator) Streak() Streak {
	return cached(a, "streak", func() Streak {
		daily := a.dailyTotals()
		practiced := func(day time.Time) bool {
			return daily[day.Format(DateLayout)] > 0
		}

		var st Streak
		day := StartOfDay(a.today())
		if !practiced(day) {
			day = day.AddDate(0, 0, -1)
		}
		for practiced(day) {
			st.Current++
			day = day.AddDate(0, 0, -1)
		}

		days := make([]time.Time, 0, len(daily))
		for key, total := range daily {
			if total <= 0 {
				continue
			}
			if d, err := time.ParseInLocation(DateLayout, key, a.loc); err == nil {
				days = append(days, d)
			}
		}
		slices.SortFunc(days, func(x, y time.Time) int { return x.Compare(y) })

		run := 0
		for i, d := range days {
			if i > 0 && days[i-1].AddDate(0, 0, 1).Equal(d) {
				run++
			} else {
				run = 1
			}
			st.Longest = max(st.Longest, run)
		}
		if len(days) > 0 {
			st.LastPracticed = days[len(days)-1]
		}
		return st
	})
}

// Heatmap returns the last n days of totals, oldest first, including
// days without practice.
func (a *Aggregator) Heatmap(n int) []DayTotal {
	if n <= 0 {
		return []DayTotal{}
	}
	daily := a.dailyTotals()
	today := StartOfDay(a.today())
	out := make([]DayTotal, n)
	for i := range out {
		day := today.AddDate(0, 0, i-n+1)
		out[i] = DayTotal{Date: day, Total: daily[day.Format(DateLayout)]}
	}
	return out
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return slices.Clone(items)
}
