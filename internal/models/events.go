package models

import "time"

// Notification types delivered to users.
const (
	NotificationOrderCreated   = "ORDER_CREATED"
	NotificationOrderPaid      = "ORDER_PAID"
	NotificationOrderCancelled = "ORDER_CANCELLED"
	NotificationPaymentFailed  = "PAYMENT_FAILED"
	NotificationLowStock       = "LOW_STOCK"
)

// Notification is a fire-and-forget message to a user (or, with an empty
// UserID, to admins). Delivery failure never affects core state.
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
