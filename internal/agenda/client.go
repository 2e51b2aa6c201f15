package agenda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/api"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

// Client is the typed appointments service client. It owns every
// appointment endpoint and the envelope normalization, so callers only
// ever see []Item.
type Client struct {
	api    *api.Client
	logger *logging.Logger
}

// NewClient wraps the shared gateway with appointment endpoints.
func NewClient(gateway *api.Client, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{api: gateway, logger: logger.Named("agenda")}
}

// ListFilters narrows the active appointment list server-side.
type ListFilters struct {
	Status     Status
	Category   Category
	CustomerID string
	From       time.Time
	To         time.Time
}

func (f ListFilters) query() string {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Category != "" {
		q.Set("category", string(f.Category))
	}
	if f.CustomerID != "" {
		q.Set("customerId", f.CustomerID)
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.Format("2006-01-02"))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.Format("2006-01-02"))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// List returns active (non-deleted) appointments, filtered server-side.
func (c *Client) List(ctx context.Context, filters ListFilters) ([]Item, error) {
	var raw json.RawMessage
	if err := c.api.Get(ctx, "/appointments"+filters.query(), &raw); err != nil {
		return nil, err
	}
	return api.UnwrapList[Item](raw)
}

// ListTrash returns soft-deleted appointments. The backend returns the
// full trash set; any further narrowing happens client-side.
func (c *Client) ListTrash(ctx context.Context) ([]Item, error) {
	var raw json.RawMessage
	if err := c.api.Get(ctx, "/appointments/trash", &raw); err != nil {
		return nil, err
	}
	return api.UnwrapList[Item](raw)
}

// GetByID fetches one appointment.
func (c *Client) GetByID(ctx context.Context, id string) (*Item, error) {
	var item Item
	if err := c.api.Get(ctx, "/appointments/"+url.PathEscape(id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateInput is the creation payload. The backend computes conflicts
// and pricing snapshots; the client sends intent only.
type CreateInput struct {
	StartAt     time.Time      `json:"startAt"`
	EndAt       time.Time      `json:"endAt"`
	IsAllDay    bool           `json:"isAllDay,omitempty"`
	Category    Category       `json:"category"`
	CustomerID  string         `json:"customerId"`
	PetID       string         `json:"petId"`
	ServiceIDs  []string       `json:"serviceIds,omitempty"`
	PerformerID string         `json:"performerId,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Transport   *Transport     `json:"transport,omitempty"`
	Legs        []TransportLeg `json:"transportLegs,omitempty"`
	QuoteID     string         `json:"quoteId,omitempty"`
}

// Create books a new appointment.
func (c *Client) Create(ctx context.Context, in CreateInput) (*Item, error) {
	var item Item
	if err := c.api.Post(ctx, "/appointments", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateInput carries a partial update; zero fields are omitted.
type UpdateInput struct {
	StartAt     *time.Time `json:"startAt,omitempty"`
	EndAt       *time.Time `json:"endAt,omitempty"`
	Status      Status     `json:"status,omitempty"`
	ServiceIDs  []string   `json:"serviceIds,omitempty"`
	PerformerID string     `json:"performerId,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// Update patches an existing appointment.
func (c *Client) Update(ctx context.Context, id string, in UpdateInput) (*Item, error) {
	var item Item
	if err := c.api.Put(ctx, "/appointments/"+url.PathEscape(id), in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Cancel transitions an appointment to CANCELADO with an audit reason.
func (c *Client) Cancel(ctx context.Context, id, reason string) error {
	body := map[string]string{"reason": reason}
	return c.api.Post(ctx, "/appointments/"+url.PathEscape(id)+"/cancel", body, nil)
}

// BulkDelete moves every id to the trash through the batch endpoint.
func (c *Client) BulkDelete(ctx context.Context, ids []string) api.BulkResult {
	return c.bulk(ctx, "bulk delete", "/appointments/bulk-delete", ids)
}

// BulkRestore restores every id from the trash.
func (c *Client) BulkRestore(ctx context.Context, ids []string) api.BulkResult {
	return c.bulk(ctx, "bulk restore", "/appointments/bulk-restore", ids)
}

// BulkPermanentDelete permanently removes every id.
func (c *Client) BulkPermanentDelete(ctx context.Context, ids []string) api.BulkResult {
	return c.bulk(ctx, "bulk permanent delete", "/appointments/bulk-permanent", ids)
}

// bulk posts one batch mutation. The backend applies the whole batch or
// rejects it; the result reports the ids as one unit, never per-id.
func (c *Client) bulk(ctx context.Context, op, path string, ids []string) api.BulkResult {
	if len(ids) == 0 {
		return api.BulkResult{}
	}
	body := map[string][]string{"ids": ids}
	if err := c.api.Post(ctx, path, body, nil); err != nil {
		c.logger.Warn(op+" failed", "count", len(ids), "error", err)
		return api.BulkResult{Failed: len(ids)}
	}
	c.logger.Info(op+" completed", "count", len(ids))
	return api.BulkResult{Succeeded: len(ids)}
}

// DaySummary aggregates one day's agenda server-side.
type DaySummary struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	ByCategory map[string]int `json:"byCategory"`
	Revenue    float64        `json:"revenue"`
}

// DayResult is the day endpoint's envelope. After normalization the
// slices are never nil; consumers read the fields without null checks.
type DayResult struct {
	Appointments []Item           `json:"appointments"`
	Summary      DaySummary       `json:"summary"`
	Conflicts    []ConflictRecord `json:"conflicts"`
}

func (r *DayResult) normalize() {
	if r.Appointments == nil {
		r.Appointments = []Item{}
	}
	if r.Conflicts == nil {
		r.Conflicts = []ConflictRecord{}
	}
	if r.Summary.ByStatus == nil {
		r.Summary.ByStatus = map[string]int{}
	}
	if r.Summary.ByCategory == nil {
		r.Summary.ByCategory = map[string]int{}
	}
}

// HasConflicts reports whether the day carries any scheduling conflict.
func (r *DayResult) HasConflicts() bool { return len(r.Conflicts) > 0 }

// GetDay returns one calendar day's envelope for a surface.
func (c *Client) GetDay(ctx context.Context, date time.Time, domain Domain) (DayResult, error) {
	q := url.Values{}
	q.Set("date", date.Format("2006-01-02"))
	q.Set("module", string(domain))
	var out DayResult
	if err := c.api.Get(ctx, "/appointments/day?"+q.Encode(), &out); err != nil {
		return DayResult{}, err
	}
	out.normalize()
	return out, nil
}

// WeekDay is one day's slice of a week envelope.
type WeekDay struct {
	Date           string           `json:"date"`
	Appointments   []Item           `json:"appointments"`
	AvailableSlots []int            `json:"availableSlots"`
	Conflicts      []ConflictRecord `json:"conflicts"`
}

// WeekSummary aggregates one week's agenda server-side.
type WeekSummary struct {
	TotalAppointments int     `json:"totalAppointments"`
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalSlots        int     `json:"totalSlots"`
}

// WeekResult is the week endpoint's envelope.
type WeekResult struct {
	Days    []WeekDay   `json:"days"`
	Summary WeekSummary `json:"summary"`
}

func (r *WeekResult) normalize() {
	if r.Days == nil {
		r.Days = []WeekDay{}
	}
}

// HasConflicts reports whether any day of the week carries conflicts.
func (r *WeekResult) HasConflicts() bool {
	for _, d := range r.Days {
		if len(d.Conflicts) > 0 {
			return true
		}
	}
	return false
}

// GetWeek returns the week envelope for the inclusive date range.
func (c *Client) GetWeek(ctx context.Context, start, end time.Time, domain Domain) (WeekResult, error) {
	q := url.Values{}
	q.Set("startDate", start.Format("2006-01-02"))
	q.Set("endDate", end.Format("2006-01-02"))
	q.Set("module", string(domain))
	var out WeekResult
	if err := c.api.Get(ctx, "/appointments/week?"+q.Encode(), &out); err != nil {
		return WeekResult{}, err
	}
	out.normalize()
	return out, nil
}

// MonthWeek is one week row of a month envelope.
type MonthWeek struct {
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Days      []WeekDay `json:"days"`
}

// MonthSummary aggregates one month's agenda server-side.
type MonthSummary struct {
	TotalAppointments int     `json:"totalAppointments"`
	TotalRevenue      float64 `json:"totalRevenue"`
	Utilization       float64 `json:"utilization"`
}

// MonthResult is the month endpoint's envelope.
type MonthResult struct {
	Weeks   []MonthWeek  `json:"weeks"`
	Summary MonthSummary `json:"summary"`
}

// GetMonth returns the month envelope.
func (c *Client) GetMonth(ctx context.Context, year int, month time.Month, domain Domain) (MonthResult, error) {
	q := url.Values{}
	q.Set("month", fmt.Sprintf("%d-%02d", year, int(month)))
	q.Set("module", string(domain))
	var out MonthResult
	if err := c.api.Get(ctx, "/appointments/month?"+q.Encode(), &out); err != nil {
		return MonthResult{}, err
	}
	if out.Weeks == nil {
		out.Weeks = []MonthWeek{}
	}
	return out, nil
}

// GetConflicts returns the server-computed conflicts of a date range.
// The records are passed through untouched; conflict logic is never
// recomputed client-side.
func (c *Client) GetConflicts(ctx context.Context, start, end time.Time) ([]ConflictRecord, error) {
	q := url.Values{}
	q.Set("startDate", start.Format("2006-01-02"))
	q.Set("endDate", end.Format("2006-01-02"))
	var out struct {
		Conflicts []ConflictRecord `json:"conflicts"`
	}
	if err := c.api.Get(ctx, "/appointments/conflicts?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.Conflicts == nil {
		out.Conflicts = []ConflictRecord{}
	}
	return out.Conflicts, nil
}

// Slot is one bookable time window.
type Slot struct {
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
}

// GetAvailableSlots returns the free windows for the services on a day.
func (c *Client) GetAvailableSlots(ctx context.Context, date time.Time, serviceIDs []string) ([]Slot, error) {
	q := url.Values{}
	q.Set("date", date.Format("2006-01-02"))
	for _, id := range serviceIDs {
		q.Add("serviceIds", id)
	}
	var out struct {
		Slots []Slot `json:"slots"`
	}
	if err := c.api.Get(ctx, "/appointments/slots?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.Slots == nil {
		out.Slots = []Slot{}
	}
	return out.Slots, nil
}

// SearchResult is the search endpoint's envelope.
type SearchResult struct {
	Appointments []Item `json:"appointments"`
	Total        int    `json:"total"`
}

// Search runs a server-side free-text search over appointments.
func (c *Client) Search(ctx context.Context, term string) (SearchResult, error) {
	q := url.Values{}
	q.Set("query", term)
	var out SearchResult
	if err := c.api.Get(ctx, "/appointments/search?"+q.Encode(), &out); err != nil {
		return SearchResult{}, err
	}
	if out.Appointments == nil {
		out.Appointments = []Item{}
	}
	return out, nil
}
