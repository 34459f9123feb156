package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"weighbridge/internal/domain"
)

var (
	_ domain.OperatorRepository = (*DB)(nil)
	_ domain.SessionRepository  = (*DB)(nil)
)

// GetOperatorByUsername retrieves an operator by username.
func (d *DB) GetOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	var o domain.Operator
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM operators WHERE username = $1",
		username,
	).Scan(&o.ID, &o.Username, &o.PasswordHash, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOperatorByID retrieves an operator by ID.
func (d *DB) GetOperatorByID(ctx context.Context, id int64) (*domain.Operator, error) {
	var o domain.Operator
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM operators WHERE id = $1",
		id,
	).Scan(&o.ID, &o.Username, &o.PasswordHash, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOperator creates a new operator.
func (d *DB) CreateOperator(ctx context.Context, username, passwordHash string) (*domain.Operator, error) {
	var o domain.Operator
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO operators (username, password_hash, created_at) VALUES ($1, $2, $3) RETURNING id, username, password_hash, created_at",
		username, passwordHash, time.Now().UTC(),
	).Scan(&o.ID, &o.Username, &o.PasswordHash, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CountOperators returns the total number of operators.
func (d *DB) CountOperators(ctx context.Context) (int, error) {
	var count int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM operators").Scan(&count)
	return count, err
}

// CreateSession stores a new session.
func (d *DB) CreateSession(ctx context.Context, s domain.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, operator_id, user_agent, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)",
		s.Token, s.OperatorID, s.UserAgent, s.ExpiresAt, s.CreatedAt,
	)
	return err
}

// GetSession retrieves an unexpired session by token.
func (d *DB) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := d.sql.QueryRowContext(ctx,
		"SELECT token, operator_id, user_agent, expires_at, created_at FROM sessions WHERE token = $1 AND expires_at > $2",
		token, time.Now(),
	).Scan(&s.Token, &s.OperatorID, &s.UserAgent, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession deletes a session by token.
func (d *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpiredSessions deletes all expired sessions.
func (d *DB) DeleteExpiredSessions(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1", time.Now())
	return err
}
