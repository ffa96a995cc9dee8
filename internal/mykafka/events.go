package mykafka

import "time"

const (
	EventUserRegistered = "user_registered"
	EventUserLoggedIn   = "user_logged_in"
)

type UserEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}
