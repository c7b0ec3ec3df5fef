package service

import "github.com/rubicondrive/dealerdesk/internal/sale/domain"

// AllowTransition maps each lifecycle state to the states it may move to.
// Completed and cancelled are terminal.
var AllowTransition = map[domain.Status][]domain.Status{
	domain.StatusPending:   {domain.StatusCompleted, domain.StatusCancelled},
	domain.StatusCompleted: {},
	domain.StatusCancelled: {},
}

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to domain.Status) bool {
	for _, allowed := range AllowTransition[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
