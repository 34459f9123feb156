// Package app holds the weighbridge use cases: the record list presenter,
// the ticket workflow, the daily summary and operator authentication.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"weighbridge/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrOperatorNotFound indicates that the operator does not exist.
	ErrOperatorNotFound = errors.New("operator not found")
	// ErrOperatorsExist is returned by CreateInitialOperator once setup has run.
	ErrOperatorsExist = errors.New("operators already exist")
)

// SessionTTL is how long a login stays valid.
const SessionTTL = 24 * time.Hour

// AuthService handles operator authentication and session management.
type AuthService struct {
	operators domain.OperatorRepository
	sessions  domain.SessionRepository
	now       func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(operators domain.OperatorRepository, sessions domain.SessionRepository) *AuthService {
	return &AuthService{
		operators: operators,
		sessions:  sessions,
		now:       time.Now,
	}
}

// Login checks the operator's password and opens a session bound to userAgent.
func (s *AuthService) Login(ctx context.Context, username, password, userAgent string) (string, error) {
	op, err := s.operators.GetOperatorByUsername(ctx, username)
	if err != nil || op == nil || op.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.openSession(ctx, op.ID, userAgent)
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

// ValidateSession checks that a session token is live and was issued to the
// same user agent.
func (s *AuthService) ValidateSession(ctx context.Context, token, userAgent string) (*domain.Operator, error) {
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil || session == nil {
		return nil, ErrSessionNotFound
	}

	if s.now().After(session.ExpiresAt) || session.UserAgent != userAgent {
		_ = s.sessions.DeleteSession(ctx, token)
		return nil, ErrSessionExpired
	}

	op, err := s.operators.GetOperatorByID(ctx, session.OperatorID)
	if err != nil || op == nil {
		return nil, ErrOperatorNotFound
	}
	return op, nil
}

// NeedsSetup reports whether no operator has been created yet.
func (s *AuthService) NeedsSetup(ctx context.Context) (bool, error) {
	count, err := s.operators.CountOperators(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// CreateInitialOperator creates the first operator if none exist.
func (s *AuthService) CreateInitialOperator(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	count, err := s.operators.CountOperators(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrOperatorsExist
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.operators.CreateOperator(ctx, username, string(hash))
	return err
}

// ValidateForwardAuth resolves the operator named by a reverse proxy's
// forward auth header, provisioning it on first sight.
func (s *AuthService) ValidateForwardAuth(ctx context.Context, remoteUser string) (*domain.Operator, error) {
	if remoteUser == "" {
		return nil, errors.New("no remote user header")
	}
	return s.provision(ctx, remoteUser)
}

// LoginWithOperator opens a session for an operator already authenticated
// elsewhere (SSO). Unknown operators are created without a password.
func (s *AuthService) LoginWithOperator(ctx context.Context, username, userAgent string) (string, error) {
	op, err := s.provision(ctx, username)
	if err != nil {
		return "", err
	}
	return s.openSession(ctx, op.ID, userAgent)
}

func (s *AuthService) provision(ctx context.Context, username string) (*domain.Operator, error) {
	op, err := s.operators.GetOperatorByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if op != nil {
		return op, nil
	}
	op, err = s.operators.CreateOperator(ctx, username, "")
	if err != nil {
		// Lost a race with a concurrent first login.
		if again, getErr := s.operators.GetOperatorByUsername(ctx, username); getErr == nil && again != nil {
			return again, nil
		}
		return nil, err
	}
	return op, nil
}

func (s *AuthService) openSession(ctx context.Context, operatorID int64, userAgent string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	session := domain.Session{
		Token:      token,
		OperatorID: operatorID,
		UserAgent:  userAgent,
		ExpiresAt:  now.Add(SessionTTL),
		CreatedAt:  now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

// PruneSessions removes expired sessions.
func (s *AuthService) PruneSessions(ctx context.Context) error {
	return s.sessions.DeleteExpiredSessions(ctx)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
