package viewmodel

import (
	"fmt"
	"strings"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/agenda"
)

// filterCache memoizes the last Filtered computation. The raw list is
// keyed by slice identity: every refetch decodes a fresh slice, so a
// moved head pointer means new data even when ids repeat.
type filterCache struct {
	sourceHead  *agenda.Item
	sourceLen   int
	term        string
	status      agenda.Status
	performerID string
	result      []agenda.Item
	valid       bool
}

// Filtered returns the appointments visible under the current search
// term, performer, and status filters. The active tab arrives
// pre-narrowed by the server; the trash tab is narrowed entirely here.
func (vm *VM) Filtered() []agenda.Item {
	snap := vm.Snapshot()

	vm.mu.Lock()
	defer vm.mu.Unlock()

	domain := vm.state.Domain
	term := vm.state.SearchTerm
	status := vm.state.Status
	performerID := vm.state.PerformerID
	applyStatus := vm.state.Tab == TabTrash && status != ""
	applyPerformer := performerID != "" && performerID != PerformerAll

	var head *agenda.Item
	if len(snap.Items) > 0 {
		head = &snap.Items[0]
	}
	c := &vm.filterCache
	if c.valid && c.sourceHead == head && c.sourceLen == len(snap.Items) &&
		c.term == term && c.status == status && c.performerID == performerID {
		return c.result
	}

	filtered := make([]agenda.Item, 0, len(snap.Items))
	for _, it := range snap.Items {
		if applyStatus && it.Status != status {
			continue
		}
		if applyPerformer && it.PerformerID != performerID {
			continue
		}
		if term != "" && !matches(&it, term, domain) {
			continue
		}
		filtered = append(filtered, it)
	}

	*c = filterCache{
		sourceHead:  head,
		sourceLen:   len(snap.Items),
		term:        term,
		status:      status,
		performerID: performerID,
		result:      filtered,
		valid:       true,
	}
	return filtered
}

// matches does a case-insensitive substring search over the fields a
// receptionist actually types: customer name, pet name, service names,
// performer, and notes. The LOG surface additionally matches the
// transport route, since dispatchers search by address.
func matches(it *agenda.Item, term string, domain agenda.Domain) bool {
	needle := strings.ToLower(term)
	if contains(it.Customer.Name, needle) || contains(it.Pet.Name, needle) {
		return true
	}
	for _, svc := range it.Services {
		if contains(svc.Name, needle) {
			return true
		}
	}
	if it.Performer != nil && contains(it.Performer.Name, needle) {
		return true
	}
	if contains(it.Notes, needle) {
		return true
	}
	if domain == agenda.DomainLOG && it.Transport != nil {
		return contains(it.Transport.Origin, needle) ||
			contains(it.Transport.Destination, needle)
	}
	return false
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func formatBulkSuccess(count int, noun string) string {
	return fmt.Sprintf("%d %s", count, noun)
}

func formatPartialFailure(succeeded, failed int) string {
	return fmt.Sprintf("%d concluído(s), %d falhou(aram)", succeeded, failed)
}
