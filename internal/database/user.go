package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/heartboard/server/internal/auth"
	"github.com/heartboard/server/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

var (
	// ErrInvalidCredentials is returned by AuthenticateUser for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned by CreateUser when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Accounts exposes the user functions as a value for the HTTP handlers.
type Accounts struct{}

func (Accounts) CreateUser(ctx context.Context, u *models.User) error { return CreateUser(ctx, u) }

func (Accounts) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	return AuthenticateUser(ctx, email, password)
}

// CreateUser inserts user, hashing its password. A missing id is generated.
func CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	if user.Password != "" {
		hash, err := auth.HashPassword(user.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hash
	}

	var email any
	if user.Email != "" {
		email = user.Email
	}

	q := `INSERT INTO users (id, email, password, username, is_ephemeral, is_admin)
	      VALUES ($1, $2, $3, $4, $5, $6)
	      RETURNING elo`

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q,
			user.ID, email, user.Password, user.Username,
			user.IsEphemeral, user.IsAdmin,
		).Scan(&user.Elo)
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const userColumns = `id, COALESCE(email, ''), password, username, is_ephemeral, is_admin, elo`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Username, &u.IsEphemeral, &u.IsAdmin, &u.Elo)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail loads a user by email.
func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

// GetUserByID loads a user by id.
func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

// AuthenticateUser checks email and password and returns the user.
func AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	user, err := GetUserByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	match, err := auth.VerifyPassword(password, user.Password)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UpgradeGuest turns an ephemeral user into a registered one with email and password.
func UpgradeGuest(ctx context.Context, u *models.User) error {
	hashed, err := auth.HashPassword(u.Password)
	if err != nil {
		return err
	}

	q := `UPDATE users SET email = $1, password = $2, username = $3, is_ephemeral = FALSE
	      WHERE id = $4 AND is_ephemeral`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, e := tx.Exec(ctx, q, u.Email, hashed, u.Username, u.ID)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upgrade guest: %w", err)
	}
	u.Password = hashed
	u.IsEphemeral = false
	return nil
}
