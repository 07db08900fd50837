package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/stockroomhq/stockroom/internal/models"
	"github.com/stockroomhq/stockroom/internal/store"
)

// userSortColumns whitelists the columns List and Search accept for
// ordering. Anything else falls back to created_at.
var userSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"email":      "email",
	"first_name": "first_name",
	"last_name":  "last_name",
}

const userColumns = `
	user_id, email, first_name, last_name, role,
	password_hash, created_at, updated_at, deleted_at
`

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{
		pool: pool,
	}
}

// Create inserts a new user. A duplicate email surfaces as
// store.ErrEmailTaken.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			user_id, email, first_name, last_name, role, password_hash
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at, updated_at
	`

	err := s.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("user_id", user.ID.String()).
		Msg("Created user")

	return nil
}

// Get retrieves a user by ID, including archived users.
func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email. Emails are stored lowercased.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// List returns a page of users ordered per params.
func (s *UserStore) List(ctx context.Context, params store.ListParams) (*store.UserPage, error) {
	return s.page(ctx, params, "", "")
}

// Search returns a page of users whose email or name matches the query,
// case-insensitively.
func (s *UserStore) Search(ctx context.Context, query string, params store.ListParams) (*store.UserPage, error) {
	pattern := "%" + escapeLike(query) + "%"
	where := `(email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1)`
	return s.page(ctx, params, where, pattern)
}

func (s *UserStore) page(ctx context.Context, params store.ListParams, match string, pattern string) (*store.UserPage, error) {
	params.ApplyDefaults()

	var conditions []string
	var args []any
	if match != "" {
		conditions = append(conditions, match)
		args = append(args, pattern)
	}
	if !params.IncludeArchived {
		conditions = append(conditions, "deleted_at IS NULL")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	column, ok := userSortColumns[params.SortBy]
	if !ok {
		column = "created_at"
	}

	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		userColumns, where, column, params.OrderBy.SQL(), len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}

	return &store.UserPage{
		Records:    users,
		Pagination: store.NewPagination(total, params),
	}, nil
}

// Update applies the non-nil fields of update to the user. Archived
// users can still be updated, matching Get.
func (s *UserStore) Update(ctx context.Context, id uuid.UUID, update models.UserUpdate) (*models.User, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Email != nil {
		appendSet("email", strings.TrimSpace(strings.ToLower(*update.Email)))
	}
	if update.FirstName != nil {
		appendSet("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		appendSet("last_name", *update.LastName)
	}
	if update.Role != nil {
		appendSet("role", *update.Role)
	}

	query := fmt.Sprintf(`UPDATE users SET %s WHERE user_id = $1 RETURNING %s`,
		strings.Join(sets, ", "), userColumns)

	user, err := scanUser(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, mapPostgresError(err)
	}

	log.Debug().
		Str("user_id", id.String()).
		Msg("Updated user")

	return user, nil
}

// Archive soft-deletes the user by setting deleted_at. Archiving an
// already archived user is a no-op that still succeeds.
func (s *UserStore) Archive(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		UPDATE users
		SET deleted_at = COALESCE(deleted_at, now()), updated_at = now()
		WHERE user_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to archive user: %w", err)
	}

	log.Debug().
		Str("user_id", id.String()).
		Msg("Archived user")

	return user, nil
}

// Delete removes the user row permanently. Sessions cascade.
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	log.Debug().
		Str("user_id", id.String()).
		Msg("Deleted user")

	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
