package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
)

const (
	userColumns         = `id, email, password_hash, full_name, role, nic, phone, active, last_login, created_at, updated_at`
	refreshTokenColumns = `id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent`
)

var userSortColumns = map[string]string{
	"email":      "email",
	"full_name":  "full_name",
	"fullName":   "full_name",
	"created_at": "created_at",
	"createdAt":  "created_at",
	"updated_at": "updated_at",
}

// UserRepository stores accounts for admins, drivers and residents together with their refresh sessions.
type UserRepository struct {
	db sqlx.ExtContext
}

// NewUserRepository constructs the repository on a database handle or transaction.
func NewUserRepository(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail looks an account up case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "find user by email", "LOWER(email) = LOWER($1)", email)
}

// FindByID returns an account by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "find user by id", "id = $1", id)
}

func (r *UserRepository) findOne(ctx context.Context, op, predicate string, arg interface{}) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + predicate + ` LIMIT 1`
	var user models.User
	if err := sqlx.GetContext(ctx, r.db, &user, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// List pages through accounts. Unknown sort keys fall back to newest first.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Role != nil {
		args = append(args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+strings.ToLower(term)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%[1]d OR LOWER(full_name) LIKE $%[1]d OR nic LIKE $%[1]d)", len(args)))
	}
	where := whereClause(conditions)

	column, ok := userSortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s FROM users%s ORDER BY %s %s LIMIT %d OFFSET %d", userColumns, where, column, direction, limit, offset)
	var users []models.User
	if err := sqlx.SelectContext(ctx, r.db, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM users"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// Create inserts an account, assigning an id and timestamps when missing.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, full_name, role, nic, phone, active, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :full_name, :role, :nic, :phone, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update writes profile, role and activation changes. Email and password have their own paths.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users
		SET full_name = :full_name, role = :role, nic = :nic, phone = :phone, active = :active, updated_at = :updated_at
		WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectAffected(result, "update user")
}

// Delete deactivates the account. Rows stay because requests and payments reference them.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE users SET active = FALSE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return expectAffected(result, "deactivate user")
}

// UpdateLastLogin stamps a successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword stores a new bcrypt hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a login session.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO refresh_tokens (` + refreshTokenColumns + `)
		VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns the session holding the opaque token.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var session models.RefreshToken
	if err := sqlx.GetContext(ctx, r.db, &session, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &session, nil
}

// RevokeRefreshToken revokes a live session. It returns sql.ErrNoRows when the
// session was already revoked, which is how a lost rotation race surfaces.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return expectAffected(result, "revoke refresh token")
}

// RevokeUserRefreshTokens signs the user out everywhere.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
