package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

func (r *Repository) FetchRange(ctx context.Context, projectID int64, from, to civil.Date) ([]domain.AvailabilityRecord, error) {
	return r.fetchRange(ctx, r.readpool, projectID, from, to)
}

// FetchRangeFromPrimary 在更新之后回显时使用，避免读到副本上的旧数据
func (r *Repository) FetchRangeFromPrimary(ctx context.Context, projectID int64, from, to civil.Date) ([]domain.AvailabilityRecord, error) {
	return r.fetchRange(ctx, r.dbpool, projectID, from, to)
}

func (r *Repository) fetchRange(ctx context.Context, pool *sql.DB, projectID int64, from, to civil.Date) ([]domain.AvailabilityRecord, error) {
	query := `
		SELECT ondate, username, availability
		FROM team_availability
		WHERE project_id = $1
		AND ondate >= $2 AND ondate <= $3
		ORDER BY ondate, username, availability
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := pool.QueryContext(ctx, query, projectID, from.In(time.UTC), to.In(time.UTC))
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	return scanAvailabilityRecords(rows, projectID)
}

// FetchRangeForUsers 用于在写入前找出与本次提交冲突的记录。
// 结果决定插入还是更新，所以和写入一样走主库
func (r *Repository) FetchRangeForUsers(ctx context.Context, projectID int64, from, to civil.Date, users []string) ([]domain.AvailabilityRecord, error) {
	if len(users) == 0 {
		return []domain.AvailabilityRecord{}, nil
	}

	query := `
		SELECT ondate, username, availability
		FROM team_availability
		WHERE project_id = $1
		AND ondate >= $2 AND ondate <= $3
		AND username = ANY($4)
		ORDER BY ondate, username, availability
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, projectID, from.In(time.UTC), to.In(time.UTC), users)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	return scanAvailabilityRecords(rows, projectID)
}

func scanAvailabilityRecords(rows *sql.Rows, projectID int64) ([]domain.AvailabilityRecord, error) {
	records := make([]domain.AvailabilityRecord, 0)
	for rows.Next() {
		var row struct {
			ondate       time.Time
			username     string
			availability decimal.Decimal
		}

		if err := rows.Scan(&row.ondate, &row.username, &row.availability); err != nil {
			return nil, classifyError(err)
		}

		records = append(records, domain.AvailabilityRecord{
			Username:     row.username,
			ProjectID:    projectID,
			Date:         civil.DateOf(row.ondate),
			Availability: row.availability,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	return records, nil
}

// Apply 在同一个事务中插入和更新可用度，要么全部成功，要么全部回滚
func (r *Repository) Apply(ctx context.Context, projectID int64, inserts, updates []domain.AvailabilityRecord) error {
	// 数据库中也有 CHECK 约束，这里提前拒绝可以避免无意义的事务
	for _, records := range [][]domain.AvailabilityRecord{inserts, updates} {
		for _, record := range records {
			if !domain.ValidAvailability(record.Availability) {
				return fmt.Errorf("%w: %s 在 %s 的可用度 %s 超出 [0, 1]", domain.ErrConstraintViolation, record.Username, record.Date, record.Availability)
			}
		}
	}

	if len(inserts) == 0 && len(updates) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return classifyError(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if len(inserts) > 0 {
		query, args := buildInsertQuery(projectID, inserts)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return classifyError(err)
		}
	}

	for _, update := range updates {
		query := `
			UPDATE team_availability
			SET availability = $1
			WHERE project_id = $2 AND ondate = $3
			AND username = $4
		`
		if _, err := tx.ExecContext(ctx, query, update.Availability, projectID, update.Date.In(time.UTC), update.Username); err != nil {
			return classifyError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classifyError(err)
	}

	return nil
}

// 一条 INSERT 插入所有记录，每条记录占 4 个参数
func buildInsertQuery(projectID int64, inserts []domain.AvailabilityRecord) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO team_availability (ondate, username, availability, project_id) VALUES ")

	args := make([]any, 0, len(inserts)*4)
	for i, insert := range inserts {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 4
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, insert.Date.In(time.UTC), insert.Username, insert.Availability, projectID)
	}

	return sb.String(), args
}
