package sqlite

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

// Timestamps are stored as unix seconds.

func (d *DB) getOperator(ctx context.Context, where string, arg any) (*domain.Operator, error) {
	var (
		o       domain.Operator
		created int64
	)
	err := d.sql.QueryRowContext(stmtCtx(ctx),
		"SELECT id, username, password_hash, created_at FROM operators WHERE "+where+" = ?", arg,
	).Scan(&o.ID, &o.Username, &o.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.CreatedAt = time.Unix(created, 0).UTC()
	return &o, nil
}

// GetOperatorByUsername retrieves an operator by username.
func (d *DB) GetOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	return d.getOperator(ctx, "username", username)
}

// GetOperatorByID retrieves an operator by ID.
func (d *DB) GetOperatorByID(ctx context.Context, id int64) (*domain.Operator, error) {
	return d.getOperator(ctx, "id", id)
}

// CreateOperator creates a new operator.
func (d *DB) CreateOperator(ctx context.Context, username, passwordHash string) (*domain.Operator, error) {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := d.sql.ExecContext(stmtCtx(ctx),
		"INSERT INTO operators (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, passwordHash, now.Unix(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Operator{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// CountOperators returns the total number of operators.
func (d *DB) CountOperators(ctx context.Context) (int, error) {
	var count int
	err := d.sql.QueryRowContext(stmtCtx(ctx), "SELECT COUNT(*) FROM operators").Scan(&count)
	return count, err
}

// CreateSession stores a new session.
func (d *DB) CreateSession(ctx context.Context, s domain.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := d.sql.ExecContext(stmtCtx(ctx),
		"INSERT INTO sessions (token, operator_id, user_agent, expires_at, created_at) VALUES (?, ?, ?, ?, ?)",
		s.Token, s.OperatorID, s.UserAgent, s.ExpiresAt.Unix(), s.CreatedAt.Unix(),
	)
	return err
}

// GetSession retrieves an unexpired session by token.
func (d *DB) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var (
		s                domain.Session
		expires, created int64
	)
	err := d.sql.QueryRowContext(stmtCtx(ctx),
		"SELECT token, operator_id, user_agent, expires_at, created_at FROM sessions WHERE token = ? AND expires_at > ?",
		token, time.Now().Unix(),
	).Scan(&s.Token, &s.OperatorID, &s.UserAgent, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.ExpiresAt = time.Unix(expires, 0).UTC()
	s.CreatedAt = time.Unix(created, 0).UTC()
	return &s, nil
}

// DeleteSession deletes a session by token.
func (d *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := d.sql.ExecContext(stmtCtx(ctx), "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpiredSessions deletes all expired sessions.
func (d *DB) DeleteExpiredSessions(ctx context.Context) error {
	_, err := d.sql.ExecContext(stmtCtx(ctx), "DELETE FROM sessions WHERE expires_at <= ?", time.Now().Unix())
	return err
}
