// Package auth implements account registration, login and token refresh on top of the users table.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
	"github.com/matiasleandrokruk/explorer/internal/infra/sqlite"
	pkgauth "github.com/matiasleandrokruk/explorer/pkg/auth"
)

// Roles stored in users.role.
const (
	RoleBasic = "basic"
	RoleAdmin = "admin"
)

// Registration limits.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 20
	MinPasswordLen = 6
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown user, an inactive user
	// or a wrong password alike, so callers cannot probe which usernames exist.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")

	ErrInvalidUsername = fmt.Errorf("username must be %d to %d characters", MinUsernameLen, MaxUsernameLen)
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrWeakPassword    = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
)

// User is a row of the users table without the password hash.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  *string    `json:"full_name"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// RegisterInput holds the data needed to create a basic account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Validate checks the registration limits. Email syntax follows net/mail.
func (in RegisterInput) Validate() error {
	if n := utf8.RuneCountInString(in.Username); n < MinUsernameLen || n > MaxUsernameLen {
		return ErrInvalidUsername
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return ErrInvalidEmail
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLen {
		return ErrWeakPassword
	}
	return nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// AuthResult is returned after a successful Register, Login or Refresh.
//
//nolint:revive // stable domain API name
type AuthResult struct {
	Tokens *pkgauth.TokenPair
	User   *User
}

// AdminSeed describes the account EnsureAdmin creates when it is missing.
type AdminSeed struct {
	Username string
	Email    string
	Password string
	FullName string
}

// AuthService defines the authentication business operations.
//
//nolint:revive // stable domain API name
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	// GetUser returns an active user by id, or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (*User, error)
	// GetUserByUsername returns an active user by username, or ErrUserNotFound.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	EnsureAdmin(ctx context.Context, seed AdminSeed) (created bool, err error)
}

type authService struct {
	db     *sql.DB
	issuer *pkgauth.Issuer
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService creates an AuthService backed by db. logger may be nil.
func NewAuthService(db *sql.DB, issuer *pkgauth.Issuer, logger *zap.Logger) AuthService {
	return &authService{
		db:     db,
		issuer: issuer,
		logger: logging.OrNop(logger).Named("auth"),
		now:    time.Now,
	}
}

// Register creates a basic account and returns a token pair for it.
// The password is hashed with bcrypt before storage.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	user, err := s.insertUser(ctx, input.Username, input.Email, input.Password, input.FullName, RoleBasic)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

func (s *authService) insertUser(ctx context.Context, username, email, password, fullName, role string) (*User, error) {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Username:  username,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}
	if fullName != "" {
		user.FullName = &fullName
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, full_name, password_hash, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, user.ID, user.Username, user.Email, user.FullName, hash, user.Role, sqlite.FormatTime(user.CreatedAt))
	if err != nil {
		switch {
		case isUniqueViolationOn(err, "users.username"):
			return nil, ErrUsernameTaken
		case isUniqueViolationOn(err, "users.email"):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials, stamps last_login and returns a token pair.
func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	var id, hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM users
		WHERE username = ? AND is_active = 1
		LIMIT 1
	`, input.Username).Scan(&id, &hash)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("login lookup failed", zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}

	// bcrypt comparison is constant-time
	if !pkgauth.VerifyPassword(hash, input.Password) {
		s.logger.Info("login rejected", zap.String("user_id", id))
		return nil, ErrInvalidCredentials
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE users SET last_login = ? WHERE id = ?",
		sqlite.FormatTime(s.now()), id,
	); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Refresh exchanges a valid refresh token for a new pair. The subject must still be an active user.
// Token errors from pkg/auth are returned unwrapped so callers can map them to messages.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.issuer.Parse(refreshToken, pkgauth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *authService) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *authService) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, "username", username)
}

func (s *authService) getUser(ctx context.Context, column, value string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, full_name, role, is_active, created_at, last_login
		FROM users
		WHERE `+column+` = ? AND is_active = 1
	`, value)
	user, err := ScanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates the admin account when no user holds seed.Username.
// An existing account is left untouched, whatever its role or password.
func (s *authService) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	if seed.Username == "" || seed.Password == "" {
		return false, errors.New("admin seed requires a username and a password")
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ?", seed.Username,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	user, err := s.insertUser(ctx, seed.Username, seed.Email, seed.Password, seed.FullName, RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to seed admin: %w", err)
	}
	s.logger.Info("admin user created", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return true, nil
}

func (s *authService) issue(user *User) (*AuthResult, error) {
	tokens, err := s.issuer.IssuePair(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: tokens, User: user}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanUser reads the column list
// id, username, email, full_name, role, is_active, created_at, last_login.
func ScanUser(row rowScanner) (*User, error) {
	var (
		u         User
		fullName  sql.NullString
		active    int
		createdAt string
		lastLogin sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &fullName, &u.Role, &active, &createdAt, &lastLogin); err != nil {
		return nil, err
	}
	if fullName.Valid {
		u.FullName = &fullName.String
	}
	u.IsActive = active != 0

	var err error
	if u.CreatedAt, err = sqlite.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if u.LastLogin, err = sqlite.ParseNullTime(lastLogin); err != nil {
		return nil, fmt.Errorf("parse last_login: %w", err)
	}
	return &u, nil
}

// isUniqueViolationOn checks for SQLite's "UNIQUE constraint failed: <table.column>" message.
func isUniqueViolationOn(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
