package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fresh-tomatoes/catalog-api/internal/domain"
)

// UsersRepository provides persistence helpers for user accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `
    id,
    name,
    username,
    email,
    tel,
    password_hash,
    is_staff,
    created_at,
    updated_at
`

// UserCreateParams bundles the fields required to register a user.
type UserCreateParams struct {
	Name         string
	Username     string
	Email        string
	Tel          string
	PasswordHash string
	Staff        bool
}

// UserUpdateParams carries optional profile changes. Nil fields are
// left untouched.
type UserUpdateParams struct {
	Name         *string
	Username     *string
	Email        *string
	Tel          *string
	PasswordHash *string
}

// Create inserts a new user. A taken username or an email already
// registered for another account yields ErrConflict.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (domain.User, error) {
	query := `
        INSERT INTO users (name, username, email, tel, password_hash, is_staff)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING ` + userColumns
	user, err := scanUser(r.pool.QueryRow(ctx, query,
		params.Name, params.Username, params.Email, params.Tel, params.PasswordHash, params.Staff))
	if err != nil {
		if pgErrCode(err) == pgUniqueViolation {
			return domain.User{}, ErrConflict
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetByUsername fetches a user by their unique username.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE username = $1"
	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// Update applies profile changes; uniqueness violations on username or
// email surface as ErrConflict.
func (r *UsersRepository) Update(ctx context.Context, id int64, params UserUpdateParams) (domain.User, error) {
	query := `
        UPDATE users
        SET name = COALESCE($2, name),
            username = COALESCE($3, username),
            email = COALESCE($4, email),
            tel = COALESCE($5, tel),
            password_hash = COALESCE($6, password_hash),
            updated_at = now()
        WHERE id = $1
        RETURNING ` + userColumns
	user, err := scanUser(r.pool.QueryRow(ctx, query,
		id, params.Name, params.Username, params.Email, params.Tel, params.PasswordHash))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.User{}, ErrNotFound
		}
		if pgErrCode(err) == pgUniqueViolation {
			return domain.User{}, ErrConflict
		}
		return domain.User{}, err
	}
	return user, nil
}

// Delete removes a user; their reviews cascade at the store level.
func (r *UsersRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.Email,
		&user.Tel,
		&user.PasswordHash,
		&user.Staff,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}
