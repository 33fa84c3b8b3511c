package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seedbuilders/agency-portal-api/internal/models"
)

// ErrUserNotFound is returned when a lookup matches no account.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering with an existing email.
var ErrEmailTaken = errors.New("email already registered")

// CreateUser inserts a new portal account and returns it.
func CreateUser(email, passwordHash, fullName, role string) (*models.User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	var exists bool
	err := Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	user := &models.User{
		ID:        uuid.New(),
		Email:     email,
		FullName:  fullName,
		Role:      role,
		CreatedAt: time.Now(),
	}

	_, err = Pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Email, passwordHash, user.FullName, user.Role, user.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByEmail returns the account and stored password hash for an email.
func GetUserByEmail(email string) (*models.User, string, error) {
	ctx, cancel := GetContext()
	defer cancel()

	var user models.User
	var passwordHash string
	var avatarURL *string

	err := Pool.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name, role, avatar_url, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &passwordHash, &user.FullName, &user.Role, &avatarURL, &user.CreatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("failed to fetch user: %w", err)
	}

	if avatarURL != nil {
		user.AvatarURL = *avatarURL
	}

	return &user, passwordHash, nil
}

// GetUserByID returns the account for an id.
func GetUserByID(userID uuid.UUID) (*models.User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	var user models.User
	var avatarURL *string

	err := Pool.QueryRow(ctx, `
		SELECT id, email, full_name, role, avatar_url, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.FullName, &user.Role, &avatarURL, &user.CreatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if avatarURL != nil {
		user.AvatarURL = *avatarURL
	}

	return &user, nil
}
