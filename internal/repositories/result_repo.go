package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luckynumbers/api/internal/database"
	"github.com/luckynumbers/api/internal/models"
)

type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(db *database.DB) *ResultRepository {
	return &ResultRepository{pool: db.Pool}
}

const resultColumns = `id, date, fr_result, sr_result, fr_time, sr_time, status, locked, created_at, updated_at`

func scanResultRow(scanner rowScanner) (*models.Result, error) {
	var result models.Result

	err := scanner.Scan(
		&result.ID, &result.Date, &result.FRResult, &result.SRResult,
		&result.FRTime, &result.SRTime, &result.Status, &result.Locked,
		&result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &result, nil
}

func scanResultRows(rows pgx.Rows) ([]*models.Result, error) {
	defer rows.Close()

	results := make([]*models.Result, 0)
	for rows.Next() {
		result, err := scanResultRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

func (r *ResultRepository) GetByDate(ctx context.Context, date string) (*models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE date = $1`
	return scanResultRow(r.pool.QueryRow(ctx, query, date))
}

func (r *ResultRepository) Create(ctx context.Context, result *models.Result) (*models.Result, error) {
	result.ID = uuid.New().String()
	now := time.Now()
	result.CreatedAt = now
	result.UpdatedAt = now

	if result.FRTime == "" {
		result.FRTime = models.DefaultFirstRoundTime
	}
	if result.SRTime == "" {
		result.SRTime = models.DefaultSecondRoundTime
	}
	if result.Status == "" {
		result.UpdateStatus()
	}

	query := `
		INSERT INTO results (id, date, fr_result, sr_result, fr_time, sr_time, status, locked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		result.ID, result.Date, result.FRResult, result.SRResult,
		result.FRTime, result.SRTime, result.Status, result.Locked,
		result.CreatedAt, result.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return result, nil
}

func (r *ResultRepository) Update(ctx context.Context, result *models.Result) error {
	query := `
		UPDATE results
		SET fr_result = $2, sr_result = $3, fr_time = $4, sr_time = $5, status = $6, locked = $7, updated_at = now()
		WHERE date = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		result.Date, result.FRResult, result.SRResult,
		result.FRTime, result.SRTime, result.Status, result.Locked,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// List returns results newest first with optional inclusive date bounds, plus
// the unpaged total for pagination.
func (r *ResultRepository) List(ctx context.Context, from, to string, limit, offset int) ([]*models.Result, int, error) {
	where := ` WHERE ($1 = '' OR date >= $1) AND ($2 = '' OR date <= $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM results`+where, from, to).Scan(&total); err != nil {
		return nil, 0, database.MapPostgresError(err)
	}

	query := `SELECT ` + resultColumns + ` FROM results` + where + ` ORDER BY date DESC LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, query, from, to, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query results: %w", err)
	}

	results, err := scanResultRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
