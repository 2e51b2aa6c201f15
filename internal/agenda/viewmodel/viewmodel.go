// Package viewmodel is the agenda surface's state machine: calendar
// navigation, view modes, tab and filter state, bulk selection, and
// modal orchestration. It owns no rendering; consumers read State
// snapshots and react to Updates.
package viewmodel

import (
	"context"
	"sync"
	"time"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/agenda"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/api"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/device"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/query"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/users"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

// ViewMode is the calendar layout.
type ViewMode string

const (
	ModeDay     ViewMode = "DAY"
	ModeWeek    ViewMode = "WEEK"
	ModeMonth   ViewMode = "MONTH"
	ModeList    ViewMode = "LIST"
	ModeCompact ViewMode = "COMPACT"
)

// Tab selects between the active agenda and the trash.
type Tab string

const (
	TabActive Tab = "active"
	TabTrash  Tab = "trash"
)

// Notifier surfaces operation outcomes to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Confirmer gates destructive actions. Returning false aborts the
// action with no side effects.
type Confirmer interface {
	Confirm(msg string) bool
}

// PrefStore persists per-surface display preferences across restarts.
type PrefStore interface {
	SaveViewMode(domain agenda.Domain, mode ViewMode) error
	LoadViewMode(domain agenda.Domain) (ViewMode, bool)
}

// Modal is the appointment modal's orchestration state. The form and
// the read-only details view are distinct surfaces; at most one is open
// per view-model instance.
type Modal struct {
	FormOpen    bool
	DetailsOpen bool
	// Selected is the appointment the open modal is showing or editing;
	// nil when creating from scratch.
	Selected *agenda.Item
	// IsCopying opens the form pre-filled from an existing appointment
	// but saves as a new one.
	IsCopying bool
	// Prefill seeds the create form (e.g. a slot tapped on the grid).
	Prefill map[string]any
}

// FetchDiag records the last refresh for support and the diagnostics
// endpoint.
type FetchDiag struct {
	At       time.Time
	Duration time.Duration
	Err      error
}

// PerformerAll is the sentinel meaning "no performer narrowing".
const PerformerAll = "ALL"

// State is one immutable snapshot of the surface.
type State struct {
	Domain   agenda.Domain
	ViewDate time.Time
	// DayDate is the compact/day views' focus day, tracked separately
	// from ViewDate because the month grid keeps its own reference month
	// while the user taps through days.
	DayDate     time.Time
	ViewMode    ViewMode
	Tab         Tab
	SearchTerm  string
	Status      agenda.Status
	PerformerID string
	Selection   map[string]bool
	BulkMode    bool
	Modal       Modal
	LastFetch   FetchDiag
}

// VM drives one agenda surface (SPA or LOG). All methods are safe for
// concurrent use.
type VM struct {
	client     *agenda.Client
	dash       *agenda.Dashboard
	trash      *query.Observer[[]agenda.Item]
	users      *users.Client
	performers *query.Observer[[]users.User]
	profile    device.Profile

	notifier  Notifier
	confirmer Confirmer
	prefs     PrefStore
	logger    *logging.Logger

	mu      sync.Mutex
	state   State
	updates chan struct{}

	// memoized Filtered result, recomputed only when its inputs move
	filterCache filterCache
}

// Option customises the view-model.
type Option func(*VM)

// WithUsers enables the performer picker: the staff list is observed
// alongside the agenda and exposed through Performers.
func WithUsers(u *users.Client) Option {
	return func(vm *VM) { vm.users = u }
}

// New builds the view-model for one surface. The initial view mode
// comes from the preference store, overridden to COMPACT on narrow
// viewports.
func New(domain agenda.Domain, cache *query.Client, client *agenda.Client, notifier Notifier, confirmer Confirmer, prefs PrefStore, logger *logging.Logger, opts ...Option) *VM {
	if logger == nil {
		logger = logging.Default()
	}
	profile := cache.Profile()

	mode := ModeMonth
	if prefs != nil {
		if saved, ok := prefs.LoadViewMode(domain); ok {
			mode = saved
		}
	}
	if profile.ViewportWidth > 0 && profile.ViewportWidth < device.MobileBreakpoint {
		// Narrow viewports always render the compact layout; the saved
		// preference resumes when the viewport grows back.
		mode = ModeCompact
	}

	vm := &VM{
		client:     client,
		dash:       agenda.NewDashboard(cache, client),
		trash:      query.NewObserver[[]agenda.Item](cache, query.Options{StaleTime: query.StaleListWeb, Retries: 1}),
		performers: query.NewObserver[[]users.User](cache, query.Options{StaleTime: query.StaleSettings, Retries: 1}),
		profile:    profile,
		notifier:   notifier,
		confirmer:  confirmer,
		prefs:      prefs,
		logger:     logger.Named("agenda.vm"),
		state: State{
			Domain:      domain,
			ViewDate:    today(),
			DayDate:     today(),
			ViewMode:    mode,
			Tab:         TabActive,
			PerformerID: PerformerAll,
			Selection:   map[string]bool{},
		},
		updates: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Updates signals state changes; the channel coalesces.
func (vm *VM) Updates() <-chan struct{} { return vm.updates }

// State returns the current snapshot. The selection map is copied so
// callers can't mutate internal state.
func (vm *VM) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.snapshotLocked()
}

func (vm *VM) snapshotLocked() State {
	s := vm.state
	sel := make(map[string]bool, len(s.Selection))
	for id := range s.Selection {
		sel[id] = true
	}
	s.Selection = sel
	return s
}

func (vm *VM) notify() {
	select {
	case vm.updates <- struct{}{}:
	default:
	}
}

// Activate starts (or re-points) the queries for the current state.
// Call it once after New and after any navigation.
func (vm *VM) Activate(ctx context.Context) {
	vm.mu.Lock()
	s := vm.state
	vm.state.LastFetch = FetchDiag{At: time.Now()}
	vm.mu.Unlock()

	switch s.Tab {
	case TabTrash:
		vm.observeTrash(ctx, s.Domain)
	default:
		vm.dash.Observe(ctx, s.ViewDate, s.Domain, vm.serverFilters(s))
	}
	if vm.users != nil {
		vm.performers.Observe(ctx, query.StaffUsersListKey("management", nil), func(ctx context.Context) ([]users.User, error) {
			return vm.users.ListManagementUsers(ctx)
		})
	}
	vm.notify()
}

// Performers returns the assignable staff for the performer picker.
// Empty until a users client is wired and the list resolves.
func (vm *VM) Performers() []users.User {
	res := vm.performers.Result()
	if res.Data == nil {
		return []users.User{}
	}
	return res.Data
}

// serverFilters narrows the active list server-side. Trash narrowing is
// client-side only; the backend returns the full trash set.
func (vm *VM) serverFilters(s State) query.Filters {
	f := query.Filters{}
	if s.Status != "" {
		f["status"] = string(s.Status)
	}
	if len(f) == 0 {
		return nil
	}
	return f
}

func (vm *VM) observeTrash(ctx context.Context, domain agenda.Domain) {
	key := query.AgendaListKey("trash", string(domain.Category()))
	vm.trash.Observe(ctx, key, func(ctx context.Context) ([]agenda.Item, error) {
		items, err := vm.client.ListTrash(ctx)
		if err != nil {
			return nil, err
		}
		kept := make([]agenda.Item, 0, len(items))
		for _, it := range items {
			if it.Category == domain.Category() || it.Category == "" {
				kept = append(kept, it)
			}
		}
		return kept, nil
	})
}

// Refresh forces revalidation of the visible queries and records the
// round trip in LastFetch.
func (vm *VM) Refresh(ctx context.Context) {
	vm.mu.Lock()
	s := vm.state
	vm.mu.Unlock()

	start := time.Now()
	var settled <-chan struct{}
	if s.Tab == TabTrash {
		settled = vm.trash.Updates()
		vm.trash.Refetch(ctx, func(ctx context.Context) ([]agenda.Item, error) {
			return vm.client.ListTrash(ctx)
		})
	} else {
		settled = vm.dash.Day.Updates()
		vm.dash.Refetch(ctx, s.ViewDate, s.Domain)
	}
	vm.waitSettled(ctx, settled, 10*time.Second)

	diag := FetchDiag{At: start, Duration: time.Since(start), Err: vm.Snapshot().Err}
	vm.mu.Lock()
	vm.state.LastFetch = diag
	vm.mu.Unlock()
	vm.notify()
}

// waitSettled blocks until the visible queries finish revalidating, so
// the fetch diagnostics carry a real round-trip duration. Bounded by
// the timeout; a stuck backend never wedges the caller.
func (vm *VM) waitSettled(ctx context.Context, updates <-chan struct{}, timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		snap := vm.Snapshot()
		if !snap.IsFetching && !snap.IsLoading {
			return
		}
		select {
		case <-updates:
		case <-time.After(20 * time.Millisecond):
		case <-deadline.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SetViewMode switches the calendar layout and persists the choice.
// Narrow viewports pin COMPACT; other modes are refused there.
func (vm *VM) SetViewMode(mode ViewMode) {
	vm.mu.Lock()
	if vm.profile.ViewportWidth > 0 && vm.profile.ViewportWidth < device.MobileBreakpoint && mode != ModeCompact {
		vm.mu.Unlock()
		return
	}
	vm.state.ViewMode = mode
	domain := vm.state.Domain
	vm.mu.Unlock()

	if vm.prefs != nil {
		if err := vm.prefs.SaveViewMode(domain, mode); err != nil {
			vm.logger.Warn("view mode preference not saved", "error", err)
		}
	}
	vm.notify()
}

// SetTab switches between the active agenda and the trash, clearing the
// bulk selection; ids never carry across tabs.
func (vm *VM) SetTab(ctx context.Context, tab Tab) {
	vm.mu.Lock()
	if vm.state.Tab == tab {
		vm.mu.Unlock()
		return
	}
	vm.state.Tab = tab
	vm.state.Selection = map[string]bool{}
	vm.state.BulkMode = false
	vm.mu.Unlock()
	vm.Activate(ctx)
}

// SetSearchTerm updates the client-side search filter.
func (vm *VM) SetSearchTerm(term string) {
	vm.mu.Lock()
	vm.state.SearchTerm = term
	vm.mu.Unlock()
	vm.notify()
}

// SetStatusFilter narrows by appointment status.
func (vm *VM) SetStatusFilter(ctx context.Context, status agenda.Status) {
	vm.mu.Lock()
	vm.state.Status = status
	vm.mu.Unlock()
	vm.Activate(ctx)
}

// SetPerformerFilter narrows the visible list to one staff member. The
// "ALL" sentinel (or an empty id) clears the narrowing. Client-side:
// performer assignment changes too often to key the cache on it.
func (vm *VM) SetPerformerFilter(performerID string) {
	if performerID == "" {
		performerID = PerformerAll
	}
	vm.mu.Lock()
	vm.state.PerformerID = performerID
	vm.mu.Unlock()
	vm.notify()
}

// NextDate advances the view date by one unit of the current view mode.
func (vm *VM) NextDate(ctx context.Context) { vm.step(ctx, 1) }

// PrevDate moves the view date back by one unit.
func (vm *VM) PrevDate(ctx context.Context) { vm.step(ctx, -1) }

// SetDayDate moves the compact/day focus day without touching the
// month grid's reference date.
func (vm *VM) SetDayDate(date time.Time) {
	vm.mu.Lock()
	vm.state.DayDate = date
	vm.mu.Unlock()
	vm.notify()
}

// SetToday jumps both navigation dates back to the current day.
func (vm *VM) SetToday(ctx context.Context) {
	vm.mu.Lock()
	now := today()
	vm.state.ViewDate = now
	vm.state.DayDate = now
	vm.mu.Unlock()
	vm.Activate(ctx)
}

func (vm *VM) step(ctx context.Context, direction int) {
	vm.mu.Lock()
	d := vm.state.ViewDate
	switch vm.state.ViewMode {
	case ModeWeek:
		d = d.AddDate(0, 0, 7*direction)
	case ModeMonth:
		d = d.AddDate(0, direction, 0)
	default:
		d = d.AddDate(0, 0, direction)
	}
	vm.state.ViewDate = d
	vm.mu.Unlock()
	vm.Activate(ctx)
}

// ToggleSelect flips one appointment in or out of the bulk selection.
// Selecting the first id enters bulk mode; clearing the last leaves it.
func (vm *VM) ToggleSelect(id string) {
	vm.mu.Lock()
	if vm.state.Selection[id] {
		delete(vm.state.Selection, id)
	} else {
		vm.state.Selection[id] = true
	}
	vm.state.BulkMode = len(vm.state.Selection) > 0
	vm.mu.Unlock()
	vm.notify()
}

// ClearSelection empties the bulk selection and leaves bulk mode.
func (vm *VM) ClearSelection() {
	vm.mu.Lock()
	vm.state.Selection = map[string]bool{}
	vm.state.BulkMode = false
	vm.mu.Unlock()
	vm.notify()
}

// SelectAll toggles the bulk selection: it selects every currently
// visible appointment, unless the whole visible set is already selected,
// in which case it clears the selection.
func (vm *VM) SelectAll() {
	items := vm.Filtered()
	vm.mu.Lock()
	if len(vm.state.Selection) == len(items) && len(items) > 0 {
		vm.state.Selection = map[string]bool{}
	} else {
		for _, it := range items {
			vm.state.Selection[it.ID] = true
		}
	}
	vm.state.BulkMode = len(vm.state.Selection) > 0
	vm.mu.Unlock()
	vm.notify()
}

func (vm *VM) selectedIDs() []string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	ids := make([]string, 0, len(vm.state.Selection))
	for id := range vm.state.Selection {
		ids = append(ids, id)
	}
	return ids
}

// OpenDetailsModal opens the read-only details view. While bulk mode is
// active a tap on an appointment toggles its selection instead; the
// modal never opens over an active selection.
func (vm *VM) OpenDetailsModal(appt agenda.Item) {
	vm.mu.Lock()
	if vm.state.BulkMode {
		vm.mu.Unlock()
		vm.ToggleSelect(appt.ID)
		return
	}
	vm.state.Modal = Modal{DetailsOpen: true, Selected: &appt}
	vm.mu.Unlock()
	vm.notify()
}

// OpenCreateModal opens an empty form for a new appointment, optionally
// seeded with prefill data.
func (vm *VM) OpenCreateModal(prefill map[string]any) {
	vm.mu.Lock()
	vm.state.Modal = Modal{FormOpen: true, Prefill: prefill}
	vm.mu.Unlock()
	vm.notify()
}

// OpenEditModal swaps the details view for the edit form on an existing
// appointment.
func (vm *VM) OpenEditModal(appt agenda.Item) {
	vm.mu.Lock()
	vm.state.Modal = Modal{FormOpen: true, Selected: &appt}
	vm.mu.Unlock()
	vm.notify()
}

// OpenCopyModal opens the form pre-filled from an existing appointment
// in copy mode; saving creates a new record.
func (vm *VM) OpenCopyModal(appt agenda.Item) {
	vm.mu.Lock()
	vm.state.Modal = Modal{FormOpen: true, Selected: &appt, IsCopying: true}
	vm.mu.Unlock()
	vm.notify()
}

// CloseModals dismisses both modal surfaces and drops the prefill.
func (vm *VM) CloseModals() {
	vm.mu.Lock()
	vm.state.Modal = Modal{}
	vm.mu.Unlock()
	vm.notify()
}

// Snapshot returns the combined query view for the active tab.
func (vm *VM) Snapshot() agenda.Snapshot {
	vm.mu.Lock()
	tab := vm.state.Tab
	vm.mu.Unlock()

	if tab == TabTrash {
		res := vm.trash.Result()
		snap := agenda.Snapshot{
			Items:      res.Data,
			Conflicts:  []agenda.ConflictRecord{},
			WeekDays:   []agenda.WeekDay{},
			IsLoading:  res.IsLoading,
			IsFetching: res.IsFetching,
			Err:        res.Error,
		}
		if snap.Items == nil {
			snap.Items = []agenda.Item{}
		}
		return snap
	}
	return vm.dash.Snapshot()
}

// CancelAppointment cancels one appointment with a reason and
// revalidates the agenda.
func (vm *VM) CancelAppointment(ctx context.Context, id, reason string) {
	if err := vm.client.Cancel(ctx, id, reason); err != nil {
		vm.logger.Warn("cancel failed", "id", id, "error", err)
		vm.notifyError("Não foi possível cancelar o agendamento")
		return
	}
	vm.notifySuccess("Agendamento cancelado")
	vm.Refresh(ctx)
}

// BulkDelete removes the selection after confirmation. On the active
// tab this is a soft delete into the trash; on the trash tab the same
// action deletes permanently.
func (vm *VM) BulkDelete(ctx context.Context) {
	vm.mu.Lock()
	trash := vm.state.Tab == TabTrash
	vm.mu.Unlock()

	if trash {
		vm.BulkPermanentDelete(ctx)
		return
	}
	vm.runBulk(ctx, "Excluir os agendamentos selecionados?", vm.client.BulkDelete,
		"agendamentos movidos para a lixeira")
}

// BulkRestore restores the selection from the trash after confirmation.
func (vm *VM) BulkRestore(ctx context.Context) {
	vm.runBulk(ctx, "Restaurar os agendamentos selecionados?", vm.client.BulkRestore,
		"agendamentos restaurados")
}

// BulkPermanentDelete permanently removes the selection after
// confirmation.
func (vm *VM) BulkPermanentDelete(ctx context.Context) {
	vm.runBulk(ctx, "Excluir permanentemente? Esta ação não pode ser desfeita.",
		vm.client.BulkPermanentDelete, "agendamentos excluídos permanentemente")
}

func (vm *VM) runBulk(ctx context.Context, prompt string, op func(context.Context, []string) api.BulkResult, successNoun string) {
	ids := vm.selectedIDs()
	if len(ids) == 0 {
		return
	}
	if vm.confirmer != nil && !vm.confirmer.Confirm(prompt) {
		return
	}

	res := op(ctx, ids)
	if res.Failed > 0 {
		// Selection stays so the user can retry the same set.
		if res.Succeeded > 0 {
			vm.notifyError(formatPartialFailure(res.Succeeded, res.Failed))
		} else {
			vm.notifyError("Erro ao processar agendamentos")
		}
		return
	}
	vm.notifySuccess(formatBulkSuccess(res.Succeeded, successNoun))
	vm.ClearSelection()
	vm.Refresh(ctx)
}

func (vm *VM) notifySuccess(msg string) {
	if vm.notifier != nil {
		vm.notifier.Success(msg)
	}
}

func (vm *VM) notifyError(msg string) {
	if vm.notifier != nil {
		vm.notifier.Error(msg)
	}
}
