package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luckynumbers/api/internal/database"
	"github.com/luckynumbers/api/internal/models"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{pool: db.Pool}
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const adminColumns = `id, name, email, password_hash, two_factor_secret, two_factor_enabled,
	reset_password_token, reset_password_expire, role, created_at, updated_at`

func scanAdminRow(scanner rowScanner) (*models.Admin, error) {
	var admin models.Admin
	var secret, resetToken *string
	var resetExpire *time.Time

	err := scanner.Scan(
		&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash,
		&secret, &admin.TwoFactorEnabled,
		&resetToken, &resetExpire,
		&admin.Role, &admin.CreatedAt, &admin.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if secret != nil {
		admin.TwoFactorSecret = *secret
	}
	if resetToken != nil {
		admin.ResetPasswordToken = *resetToken
	}
	admin.ResetPasswordExpire = resetExpire

	return &admin, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	return scanAdminRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE lower(email) = lower($1)`
	return scanAdminRow(r.pool.QueryRow(ctx, query, email))
}

func (r *AdminRepository) GetByResetToken(ctx context.Context, tokenDigest string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE reset_password_token = $1`
	return scanAdminRow(r.pool.QueryRow(ctx, query, tokenDigest))
}

func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	admin.ID = uuid.New().String()
	now := time.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	if admin.Role == "" {
		admin.Role = "admin"
	}

	query := `
		INSERT INTO admins (id, name, email, password_hash, two_factor_secret, two_factor_enabled, role, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, NULLIF($5, ''), $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		admin.ID, admin.Name, admin.Email, admin.PasswordHash,
		admin.TwoFactorSecret, admin.TwoFactorEnabled, admin.Role,
		admin.CreatedAt, admin.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return admin, nil
}

func (r *AdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE admins SET password_hash = $2, updated_at = now() WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, passwordHash)
}

func (r *AdminRepository) UpdateEmail(ctx context.Context, id, email string) error {
	query := `UPDATE admins SET email = lower($2), updated_at = now() WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, email)
}

func (r *AdminRepository) UpdateTwoFactor(ctx context.Context, id, secret string, enabled bool) error {
	query := `UPDATE admins SET two_factor_secret = NULLIF($2, ''), two_factor_enabled = $3, updated_at = now() WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, secret, enabled)
}

func (r *AdminRepository) SetResetToken(ctx context.Context, id, tokenDigest string, expire *time.Time) error {
	query := `UPDATE admins SET reset_password_token = NULLIF($2, ''), reset_password_expire = $3, updated_at = now() WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, tokenDigest, expire)
}

func (r *AdminRepository) execExpectingRow(ctx context.Context, query string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
