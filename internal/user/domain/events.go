package domain

import "time"

const SubjectUserRegistered = "user.registered"

// UserRegisteredEvent is published after a successful registration.
type UserRegisteredEvent struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
}
