package models

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// validTransitions is the exhaustive transition table. PAID and CANCELLED
// are terminal; anything not listed here is rejected.
var validTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending: {
		OrderStatusPaid:      true,
		OrderStatusCancelled: true,
	},
	OrderStatusPaid:      {},
	OrderStatusCancelled: {},
}

// CanTransition reports whether from -> to is a permitted lifecycle move.
func CanTransition(from, to OrderStatus) bool {
	return validTransitions[from][to]
}

// IsTerminal reports whether no further transitions are permitted.
func (s OrderStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}
