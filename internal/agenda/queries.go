package agenda

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/query"
)

const dateLayout = "2006-01-02"

// dayOptions tunes the calendar day view: near-real-time staleness so a
// booking made on another terminal shows up quickly.
func dayOptions() query.Options {
	return query.Options{StaleTime: query.StaleRealTime, Retries: 1}
}

func listOptions(mobile bool) query.Options {
	base := query.StaleListWeb
	if mobile {
		base = query.StaleListMobile
	}
	return query.Options{StaleTime: base, Retries: 1}
}

func searchOptions() query.Options {
	return query.Options{StaleTime: query.StaleSearch, Retries: 1}
}

// DayQuery observes one calendar day's envelope on one surface.
type DayQuery struct {
	observer *query.Observer[DayResult]
	client   *Client
}

// NewDayQuery builds a day observer on the shared cache.
func NewDayQuery(cache *query.Client, client *Client) *DayQuery {
	return &DayQuery{
		observer: query.NewObserver[DayResult](cache, dayOptions()),
		client:   client,
	}
}

// Observe points the query at a day and surface. Filters participate in
// the cache key so distinct filter sets cache independently.
func (q *DayQuery) Observe(ctx context.Context, date time.Time, domain Domain, filters query.Filters) {
	key := query.AgendaDayKey(date.Format(dateLayout), string(domain), filters)
	q.observer.Observe(ctx, key, func(ctx context.Context) (DayResult, error) {
		return q.client.GetDay(ctx, date, domain)
	})
}

// Result returns the current day snapshot.
func (q *DayQuery) Result() query.Result[DayResult] { return q.observer.Result() }

// Updates signals result changes.
func (q *DayQuery) Updates() <-chan struct{} { return q.observer.Updates() }

// SetEnabled suspends or resumes fetching.
func (q *DayQuery) SetEnabled(enabled bool) { q.observer.SetEnabled(enabled) }

// Refetch forces revalidation of the currently observed day.
func (q *DayQuery) Refetch(ctx context.Context, date time.Time, domain Domain) {
	q.observer.Refetch(ctx, func(ctx context.Context) (DayResult, error) {
		return q.client.GetDay(ctx, date, domain)
	})
}

// WeekQuery observes one week's envelope.
type WeekQuery struct {
	observer *query.Observer[WeekResult]
	client   *Client
}

func NewWeekQuery(cache *query.Client, client *Client) *WeekQuery {
	return &WeekQuery{
		observer: query.NewObserver[WeekResult](cache, listOptions(false)),
		client:   client,
	}
}

// Observe points the query at the inclusive [start, end] range.
func (q *WeekQuery) Observe(ctx context.Context, start, end time.Time, domain Domain) {
	key := query.AgendaWeekKey(start.Format(dateLayout), end.Format(dateLayout), string(domain))
	q.observer.Observe(ctx, key, func(ctx context.Context) (WeekResult, error) {
		return q.client.GetWeek(ctx, start, end, domain)
	})
}

// Refetch forces revalidation of the currently observed week.
func (q *WeekQuery) Refetch(ctx context.Context, start, end time.Time, domain Domain) {
	q.observer.Refetch(ctx, func(ctx context.Context) (WeekResult, error) {
		return q.client.GetWeek(ctx, start, end, domain)
	})
}

func (q *WeekQuery) Result() query.Result[WeekResult] { return q.observer.Result() }
func (q *WeekQuery) Updates() <-chan struct{}         { return q.observer.Updates() }
func (q *WeekQuery) SetEnabled(enabled bool)          { q.observer.SetEnabled(enabled) }

// ConflictsQuery observes the server-computed conflicts of a range.
type ConflictsQuery struct {
	observer *query.Observer[[]ConflictRecord]
	client   *Client
}

func NewConflictsQuery(cache *query.Client, client *Client) *ConflictsQuery {
	return &ConflictsQuery{
		observer: query.NewObserver[[]ConflictRecord](cache, dayOptions()),
		client:   client,
	}
}

// Observe points the query at a date range. Conflict records flow
// through as opaque server data.
func (q *ConflictsQuery) Observe(ctx context.Context, start, end time.Time) {
	key := query.AgendaConflictsKey(start.Format(dateLayout), end.Format(dateLayout))
	q.observer.Observe(ctx, key, func(ctx context.Context) ([]ConflictRecord, error) {
		return q.client.GetConflicts(ctx, start, end)
	})
}

func (q *ConflictsQuery) Result() query.Result[[]ConflictRecord] { return q.observer.Result() }
func (q *ConflictsQuery) Updates() <-chan struct{}               { return q.observer.Updates() }

// SearchQuery observes a server-side appointment search. The query is
// disabled while the term is empty; clearing the term suspends fetching
// without discarding the last results.
type SearchQuery struct {
	observer *query.Observer[SearchResult]
	client   *Client
}

func NewSearchQuery(cache *query.Client, client *Client) *SearchQuery {
	return &SearchQuery{
		observer: query.NewObserver[SearchResult](cache, searchOptions()),
		client:   client,
	}
}

// Observe runs the search for term. An empty term disables the query.
func (q *SearchQuery) Observe(ctx context.Context, term string) {
	if term == "" {
		q.observer.SetEnabled(false)
		return
	}
	q.observer.SetEnabled(true)
	key := query.Key{"agenda", "search", term}
	q.observer.Observe(ctx, key, func(ctx context.Context) (SearchResult, error) {
		return q.client.Search(ctx, term)
	})
}

func (q *SearchQuery) Result() query.Result[SearchResult] { return q.observer.Result() }
func (q *SearchQuery) Updates() <-chan struct{}           { return q.observer.Updates() }

// SlotsQuery observes the free booking windows of a day's services.
// The booking modal drives it while the user picks a time.
type SlotsQuery struct {
	observer *query.Observer[[]Slot]
	client   *Client
}

func NewSlotsQuery(cache *query.Client, client *Client) *SlotsQuery {
	return &SlotsQuery{
		observer: query.NewObserver[[]Slot](cache, dayOptions()),
		client:   client,
	}
}

// Observe points the query at a day and service set. An empty set
// disables the query; the picker has nothing to offer yet.
func (q *SlotsQuery) Observe(ctx context.Context, date time.Time, serviceIDs []string) {
	if len(serviceIDs) == 0 {
		q.observer.SetEnabled(false)
		return
	}
	q.observer.SetEnabled(true)
	key := query.AgendaSlotsKey(date.Format(dateLayout), serviceIDs)
	q.observer.Observe(ctx, key, func(ctx context.Context) ([]Slot, error) {
		return q.client.GetAvailableSlots(ctx, date, serviceIDs)
	})
}

func (q *SlotsQuery) Result() query.Result[[]Slot] { return q.observer.Result() }
func (q *SlotsQuery) Updates() <-chan struct{}     { return q.observer.Updates() }

// Dashboard bundles the queries one agenda surface needs — the selected
// day plus its surrounding week — behind a single combined snapshot.
// The two fetches are independent and race; neither waits on the other.
type Dashboard struct {
	Day  *DayQuery
	Week *WeekQuery
}

// NewDashboard builds the combined surface queries on one cache.
func NewDashboard(cache *query.Client, client *Client) *Dashboard {
	return &Dashboard{
		Day:  NewDayQuery(cache, client),
		Week: NewWeekQuery(cache, client),
	}
}

// startOfWeek returns the Sunday on or before date.
func startOfWeek(date time.Time) time.Time {
	return date.AddDate(0, 0, -int(date.Weekday()))
}

// Observe points the day query at date and the week query at the week
// containing it.
func (d *Dashboard) Observe(ctx context.Context, date time.Time, domain Domain, filters query.Filters) {
	start := startOfWeek(date)
	d.Day.Observe(ctx, date, domain, filters)
	d.Week.Observe(ctx, start, start.AddDate(0, 0, 6), domain)
}

// Snapshot is the unified view: loading while either query loads,
// erroring on the first failure, data from whichever queries resolved.
// Summary, Conflicts, and WeekDays default to zero structures, never
// nil.
type Snapshot struct {
	Items        []Item
	Summary      DaySummary
	Conflicts    []ConflictRecord
	HasConflicts bool
	WeekDays     []WeekDay
	WeekSummary  WeekSummary
	IsLoading    bool
	IsFetching   bool
	Err          error
}

// Snapshot combines both query results.
func (d *Dashboard) Snapshot() Snapshot {
	day := d.Day.Result()
	week := d.Week.Result()

	snap := Snapshot{
		Items:       day.Data.Appointments,
		Summary:     day.Data.Summary,
		Conflicts:   day.Data.Conflicts,
		WeekDays:    week.Data.Days,
		WeekSummary: week.Data.Summary,
		IsLoading:   day.IsLoading || week.IsLoading,
		IsFetching:  day.IsFetching || week.IsFetching,
	}
	if snap.Items == nil {
		snap.Items = []Item{}
	}
	if snap.Conflicts == nil {
		snap.Conflicts = []ConflictRecord{}
	}
	if snap.WeekDays == nil {
		snap.WeekDays = []WeekDay{}
	}
	snap.HasConflicts = len(snap.Conflicts) > 0 || week.Data.HasConflicts()
	if day.Error != nil {
		snap.Err = day.Error
	} else if week.Error != nil {
		snap.Err = week.Error
	}
	return snap
}

// Refetch revalidates both queries in parallel and waits for both to
// settle.
func (d *Dashboard) Refetch(ctx context.Context, date time.Time, domain Domain) {
	start := startOfWeek(date)
	var g errgroup.Group
	g.Go(func() error {
		d.Day.Refetch(ctx, date, domain)
		return nil
	})
	g.Go(func() error {
		d.Week.Refetch(ctx, start, start.AddDate(0, 0, 6), domain)
		return nil
	})
	g.Wait() //nolint:errcheck // goroutines never return errors
}
