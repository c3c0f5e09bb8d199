package models

import "time"

// ScheduledEvent is an opaque handle on a guild scheduled event. The bot
// never owns these; it receives them from the platform listing and hands
// their IDs back for edit and delete calls.
type ScheduledEvent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
}
