package viewmodel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/agenda"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/api"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/device"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/query"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/users"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

type fakeNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *fakeNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *fakeNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *fakeNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

type fakeConfirmer struct {
	answer  bool
	prompts []string
}

func (c *fakeConfirmer) Confirm(msg string) bool {
	c.prompts = append(c.prompts, msg)
	return c.answer
}

func newDomainVM(t *testing.T, handler http.Handler, profile device.Profile, domain agenda.Domain) (*VM, *fakeNotifier, *fakeConfirmer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gateway := api.NewClient(srv.URL, logging.Discard())
	client := agenda.NewClient(gateway, logging.Discard())
	cache := query.NewClient(profile, logging.Discard())
	notifier := &fakeNotifier{}
	confirmer := &fakeConfirmer{answer: true}
	vm := New(domain, cache, client, notifier, confirmer, NewDiskPrefs(t.TempDir()), logging.Discard())
	return vm, notifier, confirmer
}

func newVM(t *testing.T, handler http.Handler, profile device.Profile) (*VM, *fakeNotifier, *fakeConfirmer) {
	t.Helper()
	return newDomainVM(t, handler, profile, agenda.DomainSPA)
}

func waitForItems(t *testing.T, vm *VM, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if len(vm.Snapshot().Items) >= n {
			return
		}
		select {
		case <-vm.Updates():
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("never saw %d items", n)
		}
	}
}

func dayHandler(items string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/appointments/day":
			w.Write([]byte(`{"appointments":` + items + `,"summary":{"total":0},"conflicts":[]}`))
		case "/appointments/week":
			w.Write([]byte(`{"days":[],"summary":{}}`))
		default:
			http.NotFound(w, r)
		}
	})
}

const twoAppointments = `[
	{"id":"apt-1","status":"CONFIRMADO","customer":{"name":"João Silva"},"pet":{"name":"Rex"},
	 "services":[{"id":"s1","name":"Banho","basePrice":50}]},
	{"id":"apt-2","status":"PENDENTE","customer":{"name":"Maria Souza"},"pet":{"name":"Bibi"},
	 "services":[{"id":"s2","name":"Tosa","basePrice":70}]}
]`

func TestSearchFiltersByCustomerAndPetName(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(twoAppointments), device.Desktop)
	vm.Activate(context.Background())
	waitForItems(t, vm, 2)

	vm.SetSearchTerm("rex")
	filtered := vm.Filtered()
	require.Len(t, filtered, 1)
	assert.Equal(t, "João Silva", filtered[0].Customer.Name)

	vm.SetSearchTerm("maria")
	filtered = vm.Filtered()
	require.Len(t, filtered, 1)
	assert.Equal(t, "Bibi", filtered[0].Pet.Name)

	vm.SetSearchTerm("")
	assert.Len(t, vm.Filtered(), 2)
}

func TestLogisticsSearchMatchesTransportRoute(t *testing.T) {
	const transportItems = `[
		{"id":"log-1","status":"CONFIRMADO","category":"LOGISTICA","customer":{"name":"Ana Lima"},"pet":{"name":"Thor"},
		 "transport":{"origin":"Centro","destination":"Bairro Alto"}}
	]`

	vm, _, _ := newDomainVM(t, dayHandler(transportItems), device.Desktop, agenda.DomainLOG)
	vm.Activate(context.Background())
	waitForItems(t, vm, 1)

	vm.SetSearchTerm("centro")
	require.Len(t, vm.Filtered(), 1)

	vm.SetSearchTerm("bairro")
	require.Len(t, vm.Filtered(), 1)

	vm.SetSearchTerm("aeroporto")
	assert.Empty(t, vm.Filtered())

	// The route branch is LOG-only; the grooming surface does not match
	// transport text.
	spa, _, _ := newVM(t, dayHandler(transportItems), device.Desktop)
	spa.Activate(context.Background())
	waitForItems(t, spa, 1)
	spa.SetSearchTerm("centro")
	assert.Empty(t, spa.Filtered())
}

func TestFilteredIsMemoized(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(twoAppointments), device.Desktop)
	vm.Activate(context.Background())
	waitForItems(t, vm, 2)

	vm.SetSearchTerm("rex")
	first := vm.Filtered()
	second := vm.Filtered()
	require.Len(t, first, 1)
	// Same inputs, same backing slice: no recomputation happened.
	assert.Same(t, &first[0], &second[0])
}

func TestFilteredRecomputesAfterRefetch(t *testing.T) {
	var fetches atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/appointments/day":
			performer := "u1"
			if fetches.Add(1) > 1 {
				performer = "u2"
			}
			w.Write([]byte(`{"appointments":[{"id":"apt-1","status":"CONFIRMADO","performerId":"` + performer + `","customer":{"name":"João"},"pet":{"name":"Rex"}}]}`))
		case "/appointments/week":
			w.Write([]byte(`{"days":[]}`))
		default:
			http.NotFound(w, r)
		}
	})

	vm, _, _ := newVM(t, handler, device.Desktop)
	vm.Activate(context.Background())
	waitForItems(t, vm, 1)

	vm.SetPerformerFilter("u2")
	assert.Empty(t, vm.Filtered())

	// The refetch returns the same id with a reassigned performer; the
	// memo must not serve the stale result.
	vm.Refresh(context.Background())
	require.Len(t, vm.Filtered(), 1)
	assert.Equal(t, "u2", vm.Filtered()[0].PerformerID)
}

func TestBulkDeleteRequiresConfirmation(t *testing.T) {
	var deletes atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/appointments/bulk-delete" {
			deletes.Add(1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		dayHandler(twoAppointments).ServeHTTP(w, r)
	})

	vm, _, confirmer := newVM(t, handler, device.Desktop)
	confirmer.answer = false
	vm.Activate(context.Background())
	waitForItems(t, vm, 2)

	vm.ToggleSelect("apt-1")
	vm.BulkDelete(context.Background())

	assert.Len(t, confirmer.prompts, 1)
	assert.Zero(t, deletes.Load(), "declined confirmation must abort with no calls")
	assert.True(t, vm.State().BulkMode, "selection survives a declined confirmation")
}

func TestBulkDeleteClearsSelectionAndNotifies(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/appointments/bulk-delete" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		dayHandler(twoAppointments).ServeHTTP(w, r)
	})

	vm, notifier, _ := newVM(t, handler, device.Desktop)
	vm.Activate(context.Background())
	waitForItems(t, vm, 2)

	vm.ToggleSelect("apt-1")
	vm.ToggleSelect("apt-2")
	require.True(t, vm.State().BulkMode)

	vm.BulkDelete(context.Background())

	state := vm.State()
	assert.False(t, state.BulkMode)
	assert.Empty(t, state.Selection)
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Len(t, notifier.successes, 1)
}

func TestBulkDeleteKeepsSelectionOnFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/appointments/bulk-delete" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		dayHandler(twoAppointments).ServeHTTP(w, r)
	})

	vm, notifier, _ := newVM(t, handler, device.Desktop)
	vm.Activate(context.Background())
	waitForItems(t, vm, 2)

	vm.ToggleSelect("apt-1")
	vm.ToggleSelect("apt-2")
	vm.BulkDelete(context.Background())

	state := vm.State()
	assert.Len(t, state.Selection, 2, "the selection must survive a failed bulk action for retry")
	assert.True(t, state.BulkMode)
	assert.Equal(t, 1, notifier.errorCount())
}

func TestSelectAllTogglesSelection(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(twoAppointments), device.Desktop)
	vm.Activate(context.Background())
	waitForItems(t, vm, 2)

	vm.SelectAll()
	state := vm.State()
	assert.Len(t, state.Selection, 2)
	assert.True(t, state.BulkMode)

	// Everything visible is already selected: the same action clears.
	vm.SelectAll()
	state = vm.State()
	assert.Empty(t, state.Selection)
	assert.False(t, state.BulkMode)
}

func TestOpenDetailsRedirectsToSelectionInBulkMode(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(twoAppointments), device.Desktop)
	vm.Activate(context.Background())
	waitForItems(t, vm, 2)

	vm.ToggleSelect("apt-1")
	vm.OpenDetailsModal(agenda.Item{ID: "apt-2"})

	state := vm.State()
	assert.False(t, state.Modal.DetailsOpen, "details must not open while bulk mode is active")
	assert.True(t, state.Selection["apt-2"])

	// Deselecting everything leaves bulk mode; the details view opens
	// normally.
	vm.ClearSelection()
	vm.OpenDetailsModal(agenda.Item{ID: "apt-2"})
	state = vm.State()
	assert.True(t, state.Modal.DetailsOpen)
	assert.False(t, state.Modal.FormOpen)
	require.NotNil(t, state.Modal.Selected)
	assert.Equal(t, "apt-2", state.Modal.Selected.ID)
	assert.False(t, state.Modal.IsCopying)
}

func TestModalFormAndDetailsAreDistinct(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(`[]`), device.Desktop)
	appt := agenda.Item{ID: "apt-1"}

	vm.OpenDetailsModal(appt)
	require.True(t, vm.State().Modal.DetailsOpen)

	// Editing swaps the details view for the form.
	vm.OpenEditModal(appt)
	state := vm.State()
	assert.True(t, state.Modal.FormOpen)
	assert.False(t, state.Modal.DetailsOpen)
	require.NotNil(t, state.Modal.Selected)
	assert.Equal(t, "apt-1", state.Modal.Selected.ID)
	assert.False(t, state.Modal.IsCopying)

	vm.CloseModals()
	assert.Equal(t, Modal{}, vm.State().Modal)
}

func TestCreateModalCarriesPrefill(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(`[]`), device.Desktop)

	vm.OpenCreateModal(map[string]any{"startAt": "2026-03-15T09:00:00Z"})
	state := vm.State()
	assert.True(t, state.Modal.FormOpen)
	assert.Nil(t, state.Modal.Selected)
	assert.Equal(t, "2026-03-15T09:00:00Z", state.Modal.Prefill["startAt"])

	vm.CloseModals()
	assert.Nil(t, vm.State().Modal.Prefill)
}

func TestCopyModalFlagsCopying(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(`[]`), device.Desktop)
	vm.OpenCopyModal(agenda.Item{ID: "apt-1"})
	state := vm.State()
	assert.True(t, state.Modal.FormOpen)
	assert.True(t, state.Modal.IsCopying)
	require.NotNil(t, state.Modal.Selected)

	vm.CloseModals()
	assert.False(t, vm.State().Modal.FormOpen)
}

func TestNarrowViewportForcesCompact(t *testing.T) {
	mobile := device.Profile{Tier: device.TierBalanced, Mobile: true, ViewportWidth: 390}
	vm, _, _ := newVM(t, dayHandler(`[]`), mobile)

	assert.Equal(t, ModeCompact, vm.State().ViewMode)

	vm.SetViewMode(ModeWeek)
	assert.Equal(t, ModeCompact, vm.State().ViewMode, "narrow viewports pin the compact layout")
}

func TestViewModePreferencePersists(t *testing.T) {
	prefs := NewDiskPrefs(t.TempDir())
	require.NoError(t, prefs.SaveViewMode(agenda.DomainSPA, ModeWeek))

	mode, ok := prefs.LoadViewMode(agenda.DomainSPA)
	require.True(t, ok)
	assert.Equal(t, ModeWeek, mode)

	_, ok = prefs.LoadViewMode(agenda.DomainLOG)
	assert.False(t, ok)
}

func TestDateNavigationFollowsViewMode(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(`[]`), device.Desktop)
	ctx := context.Background()

	vm.SetViewMode(ModeDay)
	start := vm.State().ViewDate
	vm.NextDate(ctx)
	assert.Equal(t, start.AddDate(0, 0, 1), vm.State().ViewDate)

	vm.SetViewMode(ModeWeek)
	vm.NextDate(ctx)
	assert.Equal(t, start.AddDate(0, 0, 8), vm.State().ViewDate)

	vm.SetViewMode(ModeMonth)
	vm.PrevDate(ctx)
	assert.Equal(t, start.AddDate(0, -1, 8), vm.State().ViewDate)

	vm.SetToday(ctx)
	assert.Equal(t, start, vm.State().ViewDate)
}

func TestSetTodayResetsBothFocusDates(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(`[]`), device.Desktop)
	ctx := context.Background()

	start := vm.State().ViewDate
	vm.NextDate(ctx)
	vm.SetDayDate(start.AddDate(0, 0, 3))
	require.NotEqual(t, start, vm.State().ViewDate)
	require.NotEqual(t, start, vm.State().DayDate)

	vm.SetToday(ctx)
	state := vm.State()
	assert.Equal(t, start, state.ViewDate)
	assert.Equal(t, start, state.DayDate)
}

func TestSetDayDateLeavesMonthReferenceAlone(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(`[]`), device.Desktop)

	ref := vm.State().ViewDate
	vm.SetDayDate(ref.AddDate(0, 0, 5))

	state := vm.State()
	assert.Equal(t, ref, state.ViewDate, "the month grid keeps its reference date")
	assert.Equal(t, ref.AddDate(0, 0, 5), state.DayDate)
}

func TestDefaultViewModeIsMonth(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(`[]`), device.Desktop)
	assert.Equal(t, ModeMonth, vm.State().ViewMode)
}

func TestPerformerFilterHonorsAllSentinel(t *testing.T) {
	const withPerformers = `[
		{"id":"apt-1","status":"CONFIRMADO","performerId":"u1","customer":{"name":"João"},"pet":{"name":"Rex"}},
		{"id":"apt-2","status":"CONFIRMADO","performerId":"u2","customer":{"name":"Maria"},"pet":{"name":"Bibi"}}
	]`
	vm, _, _ := newVM(t, dayHandler(withPerformers), device.Desktop)
	vm.Activate(context.Background())
	waitForItems(t, vm, 2)

	assert.Equal(t, PerformerAll, vm.State().PerformerID)
	assert.Len(t, vm.Filtered(), 2)

	vm.SetPerformerFilter("u2")
	filtered := vm.Filtered()
	require.Len(t, filtered, 1)
	assert.Equal(t, "apt-2", filtered[0].ID)

	vm.SetPerformerFilter(PerformerAll)
	assert.Len(t, vm.Filtered(), 2)

	vm.SetPerformerFilter("")
	assert.Equal(t, PerformerAll, vm.State().PerformerID)
	assert.Len(t, vm.Filtered(), 2)
}

func TestPerformersLoadWhenUsersClientWired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/management":
			w.Write([]byte(`[{"id":"u1","name":"Carla","active":true}]`))
		case "/appointments/day":
			w.Write([]byte(`{"appointments":[]}`))
		case "/appointments/week":
			w.Write([]byte(`{"days":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	gateway := api.NewClient(srv.URL, logging.Discard())
	cache := query.NewClient(device.Desktop, logging.Discard())
	vm := New(agenda.DomainSPA, cache,
		agenda.NewClient(gateway, logging.Discard()),
		&fakeNotifier{}, &fakeConfirmer{answer: true}, NewDiskPrefs(t.TempDir()), logging.Discard(),
		WithUsers(users.NewClient(gateway, logging.Discard())),
	)
	vm.Activate(context.Background())

	deadline := time.After(2 * time.Second)
	for len(vm.Performers()) == 0 {
		select {
		case <-deadline:
			t.Fatal("performers never resolved")
		case <-time.After(10 * time.Millisecond):
		}
	}
	assert.Equal(t, "Carla", vm.Performers()[0].Name)
}

func TestRefreshRecordsFetchDiagnostics(t *testing.T) {
	vm, _, _ := newVM(t, dayHandler(twoAppointments), device.Desktop)
	vm.Activate(context.Background())
	waitForItems(t, vm, 2)

	vm.Refresh(context.Background())
	diag := vm.State().LastFetch
	assert.False(t, diag.At.IsZero())
	assert.NoError(t, diag.Err)
}

func TestBulkDeleteOnTrashTabIsPermanent(t *testing.T) {
	var permanent, soft atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/appointments/bulk-permanent":
			permanent.Add(1)
			w.WriteHeader(http.StatusNoContent)
		case "/appointments/bulk-delete":
			soft.Add(1)
			w.WriteHeader(http.StatusNoContent)
		case "/appointments/trash":
			w.Write([]byte(`[{"id":"trash-1","status":"CANCELADO","category":"SPA"}]`))
		default:
			dayHandler(`[]`).ServeHTTP(w, r)
		}
	})

	vm, _, _ := newVM(t, handler, device.Desktop)
	vm.SetTab(context.Background(), TabTrash)
	waitForItems(t, vm, 1)

	vm.ToggleSelect("trash-1")
	vm.BulkDelete(context.Background())

	assert.Equal(t, int32(1), permanent.Load())
	assert.Zero(t, soft.Load(), "trash tab deletes must bypass the soft path")
}

func TestSwitchingTabsClearsSelection(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/appointments/trash" {
			w.Write([]byte(`[{"id":"trash-1","status":"CANCELADO","category":"SPA","deletedAt":"2026-03-01T10:00:00Z"}]`))
			return
		}
		dayHandler(twoAppointments).ServeHTTP(w, r)
	})

	vm, _, _ := newVM(t, handler, device.Desktop)
	vm.Activate(context.Background())
	waitForItems(t, vm, 2)

	vm.ToggleSelect("apt-1")
	vm.SetTab(context.Background(), TabTrash)

	state := vm.State()
	assert.Empty(t, state.Selection)
	assert.False(t, state.BulkMode)
	waitForItems(t, vm, 1)
	assert.Equal(t, "trash-1", vm.Snapshot().Items[0].ID)
}
