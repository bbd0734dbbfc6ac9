package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/nanacaring/cmsportal/internal/api"
)

// AdminUser is a row of the admin_users table.
type AdminUser struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	FullName     string    `db:"full_name"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

// User converts the row to an API user.
func (a AdminUser) User() api.User {
	return api.User{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		FullName:  a.FullName,
		Role:      api.Role(a.Role),
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}

// SetPassword hashes pwd into the row.
func (a *AdminUser) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// CheckPassword compares pwd with the stored hash.
func (a AdminUser) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// AdminStore looks up local admins.
type AdminStore interface {
	FindAdmin(ctx context.Context, usernameOrEmail string) (*AdminUser, error)
}

// SQLAdmins reads admin_users with sqlx.
type SQLAdmins struct {
	DB *sqlx.DB
}

const adminSchema = `CREATE TABLE IF NOT EXISTS admin_users (
	id            %s,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	full_name     TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL,
	password_hash BYTEA NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Migrate creates the admin_users table if it is missing.
func (s SQLAdmins) Migrate(ctx context.Context) error {
	id := "BIGSERIAL PRIMARY KEY"
	if s.DB.DriverName() == "sqlite3" {
		id = "INTEGER PRIMARY KEY"
	}
	if _, err := s.DB.ExecContext(ctx, fmt.Sprintf(adminSchema, id)); err != nil {
		return fmt.Errorf("migrate admin_users: %w", err)
	}
	return nil
}

// FindAdmin returns ErrUnknownUser when no row matches.
func (s SQLAdmins) FindAdmin(ctx context.Context, usernameOrEmail string) (*AdminUser, error) {
	var u AdminUser
	q := s.DB.Rebind(`SELECT id, username, email, full_name, role, password_hash, is_active, created_at
		FROM admin_users WHERE lower(username) = lower(?) OR lower(email) = lower(?)`)
	err := s.DB.GetContext(ctx, &u, q, usernameOrEmail, usernameOrEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("find admin %q: %w", usernameOrEmail, err)
	}
	return &u, nil
}

// CreateAdmin inserts u, hashing password.
func (s SQLAdmins) CreateAdmin(ctx context.Context, u AdminUser, password string) error {
	if err := u.SetPassword(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err := s.DB.NamedExecContext(ctx, `INSERT INTO admin_users (username, email, full_name, role, password_hash, is_active)
		VALUES (:username, :email, :full_name, :role, :password_hash, :is_active)`, u)
	if err != nil {
		return fmt.Errorf("create admin %q: %w", u.Username, err)
	}
	return nil
}

// Local authenticates break-glass admins stored in the portal database and
// issues portal-signed tokens for them.
type Local struct {
	Admins AdminStore
	Signer Signer
}

func (l Local) Authenticate(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error) {
	name := strings.TrimSpace(creds.Username)
	if name == "" {
		return nil, ErrUnknownUser
	}
	admin, err := l.Admins.FindAdmin(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := admin.CheckPassword(creds.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return nil, ErrAccountDeactivated
	}

	user := admin.User()
	token, expires, err := l.Signer.Sign(user)
	if err != nil {
		return nil, err
	}
	return &api.LoginResponse{Token: token, User: user, ExpiresAt: expires}, nil
}
