package models

import "time"

// AuthEventKind names what happened in an AuthEvent.
type AuthEventKind string

const (
	EventRegister    AuthEventKind = "register"
	EventLogin       AuthEventKind = "login"
	EventLoginFailed AuthEventKind = "login_failed"
)

// AuthEvent is one row of the authentication audit log.
type AuthEvent struct {
	UserID     string
	Email      string
	Kind       AuthEventKind
	RemoteAddr string
	CreatedAt  time.Time
}
