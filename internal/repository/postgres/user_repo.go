package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const userColumns = `id, name, email, password_hash, role, phone, avatar, created_at, updated_at`

type userRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewUserRepository(db *sql.DB, logger *logrus.Logger) domain.UserRepository {
	return &userRepository{
		db:  db,
		log: logger,
	}
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Phone,
		&u.Avatar,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	u := *user
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(u.Email)
	if u.Role == "" {
		u.Role = domain.RoleUser
	}

	r.log.Debugf("Repository: Attempting to create user with email: %s", u.Email)
	query := `
        INSERT INTO users (id, name, email, password_hash, role, phone, avatar)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Phone, u.Avatar).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			r.log.Warnf("Repository: Attempted to create user with duplicate email: %s", u.Email)
			return nil, domain.ErrDuplicateEmail
		}
		r.log.Errorf("Repository: Failed to create user '%s': %v", u.Email, err)
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	r.log.Infof("Repository: User created successfully with ID: %s, Email: %s", u.ID, u.Email)
	return &u, nil
}

func (r *userRepository) getUser(ctx context.Context, column, value string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Debugf("Repository: User with %s %s not found", column, value)
			return nil, domain.ErrUserNotFound
		}
		r.log.Errorf("Repository: Failed to get user by %s %s: %v", column, value, err)
		return nil, fmt.Errorf("could not get user by %s: %w", column, err)
	}
	return u, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, "email", strings.ToLower(email))
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, "id", id)
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	query := `
        UPDATE users SET
            name = COALESCE($2::text, name),
            phone = COALESCE($3::text, phone),
            avatar = COALESCE($4::text, avatar),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, update.Name, update.Phone, update.Avatar))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.log.Errorf("Repository: Failed to update profile for user %s: %v", id, err)
		return nil, fmt.Errorf("could not update profile: %w", err)
	}
	return u, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		r.log.Errorf("Repository: Failed to update password for user %s: %v", id, err)
		return fmt.Errorf("could not update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, role))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		if pqCode(err) == codeCheckViolation {
			return nil, domain.Validationf("Invalid role: %q", role)
		}
		r.log.Errorf("Repository: Failed to update role for user %s: %v", id, err)
		return nil, fmt.Errorf("could not update role: %w", err)
	}
	return u, nil
}

func (r *userRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to delete user %s: %v", id, err)
		return fmt.Errorf("could not delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	r.log.Infof("Repository: User %s deleted", id)
	return nil
}

func (r *userRepository) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		r.log.Errorf("Repository: Failed to list users: %v", err)
		return nil, fmt.Errorf("could not list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
