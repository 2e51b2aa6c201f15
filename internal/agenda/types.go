// Package agenda holds the appointment domain model and the typed
// client for the appointments backend.
package agenda

import (
	"encoding/json"
	"time"
)

// Status is the appointment lifecycle state. Normal flow progresses
// forward only; cancellation is reachable from any non-terminal state.
type Status string

const (
	StatusPendente      Status = "PENDENTE"
	StatusConfirmado    Status = "CONFIRMADO"
	StatusEmAtendimento Status = "EM_ATENDIMENTO"
	StatusEmAndamento   Status = "EM_ANDAMENTO"
	StatusFinalizado    Status = "FINALIZADO"
	StatusCancelado     Status = "CANCELADO"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusFinalizado || s == StatusCancelado
}

// InProgress normalizes the legacy EM_ATENDIMENTO spelling.
func (s Status) InProgress() bool {
	return s == StatusEmAtendimento || s == StatusEmAndamento
}

// CanCancel reports whether a cancellation is still allowed.
func (s Status) CanCancel() bool {
	return !s.IsTerminal()
}

// Category partitions appointments into the two independent agenda
// domains.
type Category string

const (
	CategorySPA       Category = "SPA"
	CategoryLogistica Category = "LOGISTICA"
)

// Domain names an agenda surface (SPA grooming vs LOG transport). Each
// surface runs its own view-model instance with independent state.
type Domain string

const (
	DomainSPA Domain = "SPA"
	DomainLOG Domain = "LOG"
)

// Category maps the surface to the backend appointment category.
func (d Domain) Category() Category {
	if d == DomainLOG {
		return CategoryLogistica
	}
	return CategorySPA
}

// CustomerType distinguishes walk-in from recurring customers.
type CustomerType string

const (
	CustomerAvulso     CustomerType = "AVULSO"
	CustomerRecorrente CustomerType = "RECORRENTE"
)

// LegType is the direction of one transport movement.
type LegType string

const (
	LegLeva LegType = "LEVA" // pickup
	LegTraz LegType = "TRAZ" // drop-off
)

// Customer is the embedded customer summary on an appointment.
type Customer struct {
	ID    string       `json:"id,omitempty"`
	Name  string       `json:"name"`
	Phone string       `json:"phone,omitempty"`
	Type  CustomerType `json:"type,omitempty"`
}

// Pet is the embedded pet summary.
type Pet struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Species string `json:"species,omitempty"`
	Breed   string `json:"breed,omitempty"`
}

// Service is one booked service with its catalog base price.
type Service struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Duration  int     `json:"duration,omitempty"`
	BasePrice float64 `json:"basePrice,omitempty"`
}

// Performer is the staff member assigned to the appointment. Color is a
// stable per-performer display tint, independent of status coloring.
type Performer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Transport carries the logistics route summary.
type Transport struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	Type        string `json:"type,omitempty"`
}

// TransportLeg is one directional movement within a transport
// appointment.
type TransportLeg struct {
	ID       string  `json:"id,omitempty"`
	LegType  LegType `json:"legType"`
	Provider string  `json:"provider,omitempty"`
	Price    float64 `json:"price"`
}

// TransportSnapshot is the legacy pre-leg pricing record; used only as a
// total fallback when no legs exist.
type TransportSnapshot struct {
	TotalAmount float64 `json:"totalAmount"`
}

// ConflictRecord is a server-computed scheduling conflict, consumed as
// opaque severity-tagged data.
type ConflictRecord struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"`
}

// Item is one appointment. Instances are created server-side; this core
// only reads and soft/bulk-mutates them.
type Item struct {
	ID          string     `json:"id"`
	StartAt     time.Time  `json:"startAt"`
	EndAt       time.Time  `json:"endAt"`
	IsAllDay    bool       `json:"isAllDay,omitempty"`
	Status      Status     `json:"status"`
	Category    Category   `json:"category,omitempty"`
	CustomerID  string     `json:"customerId,omitempty"`
	Customer    Customer   `json:"customer"`
	PetID       string     `json:"petId,omitempty"`
	Pet         Pet        `json:"pet"`
	Services    []Service  `json:"services,omitempty"`
	PerformerID string     `json:"performerId,omitempty"`
	Performer   *Performer `json:"performer,omitempty"`
	Notes       string     `json:"notes,omitempty"`

	Transport         *Transport         `json:"transport,omitempty"`
	TransportLegs     []TransportLeg     `json:"transportLegs,omitempty"`
	TransportSnapshot *TransportSnapshot `json:"transportSnapshot,omitempty"`

	QuoteID   string           `json:"quoteId,omitempty"`
	Conflicts []ConflictRecord `json:"conflicts,omitempty"`

	// DeletedAt routes the item into the trash view when set.
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// IsTrashed reports whether the item is soft-deleted.
func (it *Item) IsTrashed() bool {
	return it.DeletedAt != nil
}

// UnmarshalJSON lifts the legacy singular `service` field into the
// plural Services slice, so every consumer sees exactly one shape. The
// adapter lives here at the wire boundary, not scattered through
// consumers.
func (it *Item) UnmarshalJSON(data []byte) error {
	type alias Item
	aux := struct {
		*alias
		LegacyService *Service `json:"service"`
	}{alias: (*alias)(it)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.LegacyService != nil && len(it.Services) == 0 {
		it.Services = []Service{*aux.LegacyService}
	}
	return nil
}
