package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

// PostgreSQL 错误码，见 https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// classifyError 把驱动返回的错误归为约束冲突或者存储失败，原始错误仍然可以通过 errors.As 取出
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCheckViolation, pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%w: %w", domain.ErrConstraintViolation, err)
		}
	}

	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}
