// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"
)

// Operator is a weighbridge clerk allowed to record tickets.
type Operator struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session represents an active operator session.
type Session struct {
	Token      string
	OperatorID int64
	UserAgent  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// OperatorRepository defines the port for operator persistence operations.
// Lookups return nil, nil when nothing matches.
type OperatorRepository interface {
	GetOperatorByUsername(ctx context.Context, username string) (*Operator, error)
	GetOperatorByID(ctx context.Context, id int64) (*Operator, error)
	CreateOperator(ctx context.Context, username, passwordHash string) (*Operator, error)
	CountOperators(ctx context.Context) (int, error)
}

// SessionRepository defines the port for session persistence operations.
// GetSession returns nil, nil for unknown or expired tokens.
type SessionRepository interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) error
}
