package agenda

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/api"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/device"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/query"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

func newGateway(baseURL string) *api.Client {
	return api.NewClient(baseURL, logging.Discard())
}

func waitFor(t *testing.T, updates <-chan struct{}, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-updates:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("condition not met before deadline")
		}
	}
}

func TestDashboardResolvesDayAndWeek(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/appointments/day":
			w.Write([]byte(`{
				"appointments":[{"id":"apt-1","status":"CONFIRMADO"}],
				"summary":{"total":1,"revenue":50},
				"conflicts":[{"type":"OVERLAP","description":"conflito"}]
			}`))
		case "/appointments/week":
			w.Write([]byte(`{
				"days":[{"date":"2026-03-15","appointments":[]}],
				"summary":{"totalAppointments":4,"totalRevenue":310}
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	cache := query.NewClient(device.Desktop, logging.Discard())
	client := NewClient(newGateway(srv.URL), logging.Discard())
	dash := NewDashboard(cache, client)

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	dash.Observe(context.Background(), date, DomainSPA, nil)

	waitFor(t, dash.Day.Updates(), func() bool {
		snap := dash.Snapshot()
		return len(snap.Items) == 1 && len(snap.WeekDays) == 1
	})

	snap := dash.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Equal(t, "apt-1", snap.Items[0].ID)
	assert.Equal(t, 1, snap.Summary.Total)
	assert.Equal(t, 4, snap.WeekSummary.TotalAppointments)
	require.Len(t, snap.Conflicts, 1)
	assert.True(t, snap.HasConflicts)
}

func TestDashboardSnapshotNeverNil(t *testing.T) {
	cache := query.NewClient(device.Desktop, logging.Discard())
	dash := NewDashboard(cache, NewClient(newGateway("http://unreachable.invalid"), logging.Discard()))

	snap := dash.Snapshot()
	require.NotNil(t, snap.Items)
	require.NotNil(t, snap.Conflicts)
	require.NotNil(t, snap.WeekDays)
	assert.Empty(t, snap.Items)
	assert.Zero(t, snap.Summary.Total)
	assert.False(t, snap.HasConflicts)
}

func TestDashboardFetchesDayAndWeekConcurrently(t *testing.T) {
	release := make(chan struct{})
	var weekServed atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/appointments/day":
			// Day is held open; the week request must still complete.
			<-release
			w.Write([]byte(`{"appointments":[]}`))
		case "/appointments/week":
			weekServed.Store(true)
			w.Write([]byte(`{"days":[{"date":"2026-03-15"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	cache := query.NewClient(device.Desktop, logging.Discard())
	dash := NewDashboard(cache, NewClient(newGateway(srv.URL), logging.Discard()))

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	dash.Observe(context.Background(), date, DomainSPA, nil)

	waitFor(t, dash.Week.Updates(), func() bool {
		return len(dash.Snapshot().WeekDays) == 1
	})
	assert.True(t, weekServed.Load())
}

func TestSearchQueryDisabledOnEmptyTerm(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Rex", r.URL.Query().Get("query"))
		w.Write([]byte(`{"appointments":[{"id":"apt-1","status":"PENDENTE"}],"total":1}`))
	}))
	t.Cleanup(srv.Close)

	cache := query.NewClient(device.Desktop, logging.Discard())
	search := NewSearchQuery(cache, NewClient(newGateway(srv.URL), logging.Discard()))

	search.Observe(context.Background(), "")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	search.Observe(context.Background(), "Rex")
	waitFor(t, search.Updates(), func() bool {
		return search.Result().HasData
	})
	assert.Equal(t, int32(1), calls.Load())
	res := search.Result().Data
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Appointments, 1)
}

func TestSlotsQueryRequiresServices(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/appointments/slots", r.URL.Path)
		assert.Equal(t, []string{"svc-1", "svc-2"}, r.URL.Query()["serviceIds"])
		w.Write([]byte(`{"slots":[{"startAt":"2026-03-15T09:00:00Z","endAt":"2026-03-15T10:00:00Z"}]}`))
	}))
	t.Cleanup(srv.Close)

	cache := query.NewClient(device.Desktop, logging.Discard())
	slots := NewSlotsQuery(cache, NewClient(newGateway(srv.URL), logging.Discard()))

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	slots.Observe(context.Background(), date, nil)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	slots.Observe(context.Background(), date, []string{"svc-1", "svc-2"})
	waitFor(t, slots.Updates(), func() bool {
		return slots.Result().HasData
	})
	require.Len(t, slots.Result().Data, 1)
}

func TestDayQueryKeepsDataWhileChangingDay(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/appointments/day" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("date") == "2026-03-16" {
			<-release
			w.Write([]byte(`{"appointments":[{"id":"apt-2","status":"PENDENTE"}]}`))
			return
		}
		w.Write([]byte(`{"appointments":[{"id":"apt-1","status":"CONFIRMADO"}]}`))
	}))
	t.Cleanup(srv.Close)

	cache := query.NewClient(device.Desktop, logging.Discard())
	day := NewDayQuery(cache, NewClient(newGateway(srv.URL), logging.Discard()))

	d1 := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	day.Observe(context.Background(), d1, DomainSPA, nil)
	waitFor(t, day.Updates(), func() bool { return day.Result().HasData })

	// Day 2 is held open server-side; day 1's data must stay visible as
	// placeholder, flagged as a background fetch rather than a fresh load.
	day.Observe(context.Background(), d2, DomainSPA, nil)
	res := day.Result()
	require.True(t, res.HasData)
	assert.Equal(t, "apt-1", res.Data.Appointments[0].ID)
	assert.True(t, res.IsFetching)
	assert.False(t, res.IsLoading)

	close(release)
	waitFor(t, day.Updates(), func() bool {
		r := day.Result()
		return r.HasData && len(r.Data.Appointments) == 1 && r.Data.Appointments[0].ID == "apt-2"
	})
}

func TestConflictsQueryParsesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"conflicts":[{"type":"UNAVAILABLE_PERFORMER","description":"sem colaborador","severity":"medium"}]}`))
	}))
	t.Cleanup(srv.Close)

	cache := query.NewClient(device.Desktop, logging.Discard())
	conflicts := NewConflictsQuery(cache, NewClient(newGateway(srv.URL), logging.Discard()))

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	conflicts.Observe(context.Background(), date, date)
	waitFor(t, conflicts.Updates(), func() bool {
		return conflicts.Result().HasData
	})
	require.Len(t, conflicts.Result().Data, 1)
	assert.Equal(t, "UNAVAILABLE_PERFORMER", conflicts.Result().Data[0].Type)
}
