// Package repository remembers the upstream analysis session per user so a
// follow-up submission continues the same conversation.
package repository

import (
	"context"
	"time"
)

// Session is one remembered upstream session.
type Session struct {
	UserID    string
	SessionID string
	UpdatedAt time.Time
}

// Store provides read/write access to remembered sessions.
type Store interface {
	// Get returns the live session for userID, or ErrNotFound.
	Get(ctx context.Context, userID string) (Session, error)

	// Put remembers sessionID for userID, replacing any previous one.
	// An empty sessionID forgets the user.
	Put(ctx context.Context, userID, sessionID string) error

	// Delete forgets userID.
	Delete(ctx context.Context, userID string)

	// Count returns the number of live sessions.
	Count(ctx context.Context) int
}
