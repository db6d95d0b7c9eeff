// Package notify delivers reminders for scheduled posts.
//
// A Gateway accepts registration and cancellation requests keyed by an
// opaque id. Delivery is best effort: callers log gateway errors and never
// roll back their own state because of them.
package notify

import (
	"context"
	"time"
)

// CategoryScheduledPost tags reminders created for scheduled posts.
const CategoryScheduledPost = "SCHEDULED_POST"

// Request describes one reminder.
type Request struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Category string    `json:"category,omitempty"`
	FireAt   time.Time `json:"fireAt"`
}

// Gateway registers and cancels reminders.
type Gateway interface {
	// RequestAuthorization asks for permission to deliver. A false result
	// only disables delivery; registration still succeeds.
	RequestAuthorization(ctx context.Context) (bool, error)
	// Register arms a reminder, replacing any reminder with the same id.
	Register(ctx context.Context, req Request) error
	// Cancel disarms a reminder. Unknown ids are ignored.
	Cancel(ctx context.Context, id string)
}

// Disabled is a Gateway that accepts every call and never delivers.
// It is used when notifications are turned off in config.
type Disabled struct{}

func (Disabled) RequestAuthorization(context.Context) (bool, error) { return false, nil }
func (Disabled) Register(context.Context, Request) error           { return nil }
func (Disabled) Cancel(context.Context, string)                    {}
