package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mmeshcher/car-rental/internal/model"
)

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, first_name, last_name, phone_number, email, password_hash, is_admin, created_at, updated_at`

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.Email,
		&u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func userExistsError(err error, ident string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", ErrUserExists, ident)
	}
	return nil
}

// CreateUser создаёт нового пользователя и заполняет его идентификатор.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (first_name, last_name, phone_number, email, password_hash, is_admin)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		u.FirstName, u.LastName, u.PhoneNumber, u.Email, u.PasswordHash, u.IsAdmin,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if exists := userExistsError(err, u.Identifier()); exists != nil {
			return exists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get user")
	}
	return u, nil
}

// GetUserByIdentifier возвращает пользователя по телефону или почте.
func (r *PostgresRepository) GetUserByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number = $1 OR email = $1`, identifier))
	if err != nil {
		return nil, mapError(err, "get user")
	}
	return u, nil
}

// ListUsers возвращает всех пользователей.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var res []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// UpdateUser обновляет профиль пользователя.
func (r *PostgresRepository) UpdateUser(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET first_name = $2, last_name = $3, phone_number = $4, email = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		u.ID, u.FirstName, u.LastName, u.PhoneNumber, u.Email,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if exists := userExistsError(err, u.Identifier()); exists != nil {
			return exists
		}
		return mapError(err, "update user")
	}
	return nil
}

// UpdatePassword заменяет хеш пароля пользователя.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID int64, hash []byte) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, hash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(tag, "update password")
}

// DeleteUser удаляет пользователя.
func (r *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete user")
	}
	return expectAffected(tag, "delete user")
}
