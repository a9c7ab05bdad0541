package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/plateful/plateful-backend/internal/platform/apierr"
)

// ErrRetryable tags transient storage failures (serialization,
// deadlock, lock timeouts) that callers may retry.
var ErrRetryable = errors.New("storage retryable")

// MapError maps storage failures into API errors so services never
// inspect driver errors directly.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierr.NotFound(op+"_not_found", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrRetryable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return apierr.Conflict(op+"_conflict", err) // unique_violation
		case "23503":
			return apierr.Invalid(op+"_reference", err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return errors.Join(ErrRetryable, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "already exists"):
		return apierr.Conflict(op+"_conflict", err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return errors.Join(ErrRetryable, err)
	default:
		return apierr.Internal(err)
	}
}
