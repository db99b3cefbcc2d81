// Package auth authenticates administrators and manages their sessions.
//
// A successful login stores a session record and hands the client an HS256
// token naming it. Requests are authenticated by verifying the token and
// then requiring the stored session to still exist, so logout takes effect
// immediately even though the token itself has not expired.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/garnizeh/labbook/pkg/models"
	"github.com/garnizeh/labbook/pkg/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for an unknown username or a wrong
	// password; callers cannot tell which.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated is returned when a token is missing, malformed,
	// expired, or names a session that no longer exists.
	ErrUnauthenticated = errors.New("not authenticated")
)

// Outcome classifies a login attempt for auditing.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeUnknownUser     Outcome = "unknown_user"
	OutcomeInvalidPassword Outcome = "invalid_password"
	OutcomeError           Outcome = "error"
)

// AuditFunc observes every login attempt.
type AuditFunc func(username string, outcome Outcome)

type claims struct {
	AdminID int64 `json:"admin_id"`
	jwt.RegisteredClaims
}

// Session is an authenticated login together with its signed token.
type Session struct {
	models.Session
	Username string
	Token    string
}

type Service struct {
	admins   repository.AdminRepo
	sessions repository.SessionRepo
	secret   []byte
	ttl      time.Duration
	logger   *slog.Logger
	audit    AuditFunc
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAudit registers a hook called after every login attempt.
func WithAudit(fn AuditFunc) Option {
	return func(s *Service) { s.audit = fn }
}

func NewService(admins repository.AdminRepo, sessions repository.SessionRepo, secret string, ttl time.Duration, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Service{
		admins:   admins,
		sessions: sessions,
		secret:   []byte(secret),
		ttl:      ttl,
		logger:   logger,
		audit:    func(string, Outcome) {},
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TTL is how long a new session stays valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Login checks the credentials and opens a new session.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	admin, err := s.admins.GetAdminByUsername(ctx, username)
	if err != nil {
		s.record(username, OutcomeError)
		return nil, fmt.Errorf("lookup admin: %w", err)
	}
	if admin == nil {
		s.record(username, OutcomeUnknownUser)
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		s.record(username, OutcomeInvalidPassword)
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	if _, err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		s.logger.Warn("purge expired sessions", slog.Any("err", err))
	}

	sess := models.Session{
		ID:        uuid.NewString(),
		AdminID:   admin.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	token, err := s.sign(sess, admin.Username)
	if err != nil {
		s.record(username, OutcomeError)
		return nil, err
	}

	if err := s.sessions.CreateSession(ctx, &sess); err != nil {
		s.record(username, OutcomeError)
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.record(username, OutcomeSuccess)
	return &Session{Session: sess, Username: admin.Username, Token: token}, nil
}

// Authenticate resolves a token to the admin and session it belongs to.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Admin, *models.Session, error) {
	if token == "" {
		return nil, nil, ErrUnauthenticated
	}

	c, err := s.parse(token, true)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}

	sess, err := s.sessions.GetSession(ctx, c.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.AdminID != c.AdminID || sess.Expired(s.now()) {
		return nil, nil, ErrUnauthenticated
	}

	admin, err := s.admins.GetAdminByID(ctx, sess.AdminID)
	if err != nil {
		return nil, nil, fmt.Errorf("load admin: %w", err)
	}
	if admin == nil {
		return nil, nil, ErrUnauthenticated
	}

	return admin, sess, nil
}

// Logout deletes the session named by token. Expired tokens are accepted
// so a stale cookie can still be cleared; a bad signature is not.
func (s *Service) Logout(ctx context.Context, token string) error {
	c, err := s.parse(token, false)
	if err != nil {
		return ErrUnauthenticated
	}

	if err := s.sessions.DeleteSession(ctx, c.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.logger.Info("admin logged out", slog.String("username", c.Subject), slog.String("session", c.ID))
	return nil
}

func (s *Service) sign(sess models.Session, username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		AdminID: sess.AdminID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	tokenStr, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return tokenStr, nil
}

func (s *Service) parse(token string, validate bool) (*claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if !validate {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var c claims
	if _, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...); err != nil {
		return nil, err
	}
	if c.ID == "" {
		return nil, fmt.Errorf("token has no session id")
	}

	return &c, nil
}

func (s *Service) record(username string, outcome Outcome) {
	attrs := []any{slog.String("username", username), slog.String("outcome", string(outcome))}
	switch outcome {
	case OutcomeSuccess:
		s.logger.Info("admin login", attrs...)
	case OutcomeError:
		s.logger.Error("admin login", attrs...)
	default:
		s.logger.Warn("admin login failed", attrs...)
	}
	s.audit(username, outcome)
}

// EnsureAdmin creates the account username with a bcrypt hash of password
// unless it already exists. It reports whether an account was created.
func EnsureAdmin(ctx context.Context, repo repository.AdminRepo, username, password string) (bool, error) {
	existing, err := repo.GetAdminByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	if _, err := repo.CreateAdmin(ctx, &models.Admin{Username: username, PasswordHash: string(hash)}); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	return true, nil
}
