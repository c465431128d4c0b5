package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luckynumbers/api/internal/models"
)

// ResultRepository is the result-persistence collaborator.
type ResultRepository interface {
	GetByDate(ctx context.Context, date string) (*models.Result, error)
	Create(ctx context.Context, result *models.Result) (*models.Result, error)
	Update(ctx context.Context, result *models.Result) error
	List(ctx context.Context, from, to string, limit, offset int) ([]*models.Result, int, error)
}

// ResultBroadcaster pushes result updates to connected viewers. Broadcast is
// fire-and-forget; delivery failures never fail the mutation.
type ResultBroadcaster interface {
	BroadcastResult(result *models.Result)
}

// ResultChanges carries the optional fields of an upsert/edit request. Nil
// means "leave as is".
type ResultChanges struct {
	FRResult *int
	SRResult *int
	FRTime   string
	SRTime   string
}

// ResultService owns the draw lifecycle: declare, edit, lock, unlock.
type ResultService struct {
	repo        ResultRepository
	broadcaster ResultBroadcaster
	clock       Clock
	logger      *slog.Logger
}

func NewResultService(repo ResultRepository, broadcaster ResultBroadcaster, clock Clock, logger *slog.Logger) *ResultService {
	return &ResultService{
		repo:        repo,
		broadcaster: broadcaster,
		clock:       clock,
		logger:      logger,
	}
}

func (s *ResultService) broadcast(result *models.Result) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastResult(result)
	}
}

func validateChanges(c ResultChanges) error {
	if c.FRResult != nil && !models.IsValidResultNumber(*c.FRResult) {
		return fmt.Errorf("%w: invalid First Round result (must be 0-99)", models.ErrBadRequest)
	}
	if c.SRResult != nil && !models.IsValidResultNumber(*c.SRResult) {
		return fmt.Errorf("%w: invalid Second Round result (must be 0-99)", models.ErrBadRequest)
	}
	if c.FRTime != "" && !models.IsValidTime(c.FRTime) {
		return fmt.Errorf("%w: invalid First Round time format (use HH:MM)", models.ErrBadRequest)
	}
	if c.SRTime != "" && !models.IsValidTime(c.SRTime) {
		return fmt.Errorf("%w: invalid Second Round time format (use HH:MM)", models.ErrBadRequest)
	}
	return nil
}

func applyChanges(result *models.Result, c ResultChanges) {
	if c.FRResult != nil {
		result.FRResult = c.FRResult
	}
	if c.SRResult != nil {
		result.SRResult = c.SRResult
	}
	if c.FRTime != "" {
		result.FRTime = c.FRTime
	}
	if c.SRTime != "" {
		result.SRTime = c.SRTime
	}
	result.UpdateStatus()
}

// Upsert creates or updates the result row for date. Locked rows reject all
// field changes.
func (s *ResultService) Upsert(ctx context.Context, date string, changes ResultChanges) (*models.Result, error) {
	if !models.IsValidDate(date) {
		return nil, fmt.Errorf("%w: invalid date format (use YYYY-MM-DD)", models.ErrBadRequest)
	}
	if err := validateChanges(changes); err != nil {
		return nil, err
	}

	result, err := s.repo.GetByDate(ctx, date)
	switch {
	case err == nil:
		if result.Locked {
			return nil, models.ErrResultLocked
		}
		applyChanges(result, changes)
		if err := s.repo.Update(ctx, result); err != nil {
			return nil, err
		}
	case errors.Is(err, models.ErrNotFound):
		result = &models.Result{
			Date:   date,
			FRTime: models.DefaultFirstRoundTime,
			SRTime: models.DefaultSecondRoundTime,
		}
		applyChanges(result, changes)
		if result, err = s.repo.Create(ctx, result); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.broadcast(result)
	return result, nil
}

// Edit updates an existing result row only.
func (s *ResultService) Edit(ctx context.Context, date string, changes ResultChanges) (*models.Result, error) {
	if err := validateChanges(changes); err != nil {
		return nil, err
	}

	result, err := s.repo.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if result.Locked {
		return nil, models.ErrResultLocked
	}

	applyChanges(result, changes)
	if err := s.repo.Update(ctx, result); err != nil {
		return nil, err
	}

	s.broadcast(result)
	return result, nil
}

// DeclareFirstRound sets the FR number, creating the day's row when absent.
func (s *ResultService) DeclareFirstRound(ctx context.Context, date string, number int) (*models.Result, error) {
	if !models.IsValidResultNumber(number) {
		return nil, fmt.Errorf("%w: invalid result (must be 0-99)", models.ErrBadRequest)
	}

	result, err := s.repo.GetByDate(ctx, date)
	if errors.Is(err, models.ErrNotFound) {
		result, err = s.repo.Create(ctx, &models.Result{
			Date:   date,
			FRTime: models.DefaultFirstRoundTime,
			SRTime: models.DefaultSecondRoundTime,
		})
	}
	if err != nil {
		return nil, err
	}
	if result.Locked {
		return nil, models.ErrResultLocked
	}

	result.FRResult = &number
	result.UpdateStatus()
	if err := s.repo.Update(ctx, result); err != nil {
		return nil, err
	}

	s.logger.Info("first round result declared", slog.String("date", date), slog.Int("result", number))
	s.broadcast(result)
	return result, nil
}

// DeclareSecondRound sets the SR number; the row must already exist.
func (s *ResultService) DeclareSecondRound(ctx context.Context, date string, number int) (*models.Result, error) {
	if !models.IsValidResultNumber(number) {
		return nil, fmt.Errorf("%w: invalid result (must be 0-99)", models.ErrBadRequest)
	}

	result, err := s.repo.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if result.Locked {
		return nil, models.ErrResultLocked
	}

	result.SRResult = &number
	result.UpdateStatus()
	if err := s.repo.Update(ctx, result); err != nil {
		return nil, err
	}

	s.logger.Info("second round result declared", slog.String("date", date), slog.Int("result", number))
	s.broadcast(result)
	return result, nil
}

// SetLocked locks or unlocks a result. Lock state changes are always allowed.
func (s *ResultService) SetLocked(ctx context.Context, date string, locked bool) (*models.Result, error) {
	result, err := s.repo.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	result.Locked = locked
	if err := s.repo.Update(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

// GetToday returns today's result, creating a pending row when missing so
// viewers always see the current day.
func (s *ResultService) GetToday(ctx context.Context) (*models.Result, error) {
	today := s.clock.Now().Format("2006-01-02")

	result, err := s.repo.GetByDate(ctx, today)
	if errors.Is(err, models.ErrNotFound) {
		return s.repo.Create(ctx, &models.Result{
			Date:   today,
			FRTime: models.DefaultFirstRoundTime,
			SRTime: models.DefaultSecondRoundTime,
			Status: models.StatusPending,
		})
	}
	return result, err
}

// GetByDate returns the result for one day.
func (s *ResultService) GetByDate(ctx context.Context, date string) (*models.Result, error) {
	if !models.IsValidDate(date) {
		return nil, fmt.Errorf("%w: invalid date format (use YYYY-MM-DD)", models.ErrBadRequest)
	}
	return s.repo.GetByDate(ctx, date)
}

// History lists results newest first with optional date-range filters.
func (s *ResultService) History(ctx context.Context, from, to string, limit, page int) ([]*models.Result, int, error) {
	if from != "" && !models.IsValidDate(from) {
		return nil, 0, fmt.Errorf("%w: invalid from date", models.ErrBadRequest)
	}
	if to != "" && !models.IsValidDate(to) {
		return nil, 0, fmt.Errorf("%w: invalid to date", models.ErrBadRequest)
	}
	limit = ClampHistoryLimit(limit)
	if page <= 0 {
		page = 1
	}

	return s.repo.List(ctx, from, to, limit, (page-1)*limit)
}

// ClampHistoryLimit normalizes a requested page size: 30 when unset,
// capped at 100. Callers reporting the applied limit use the same rule.
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return 30
	}
	if limit > 100 {
		return 100
	}
	return limit
}
