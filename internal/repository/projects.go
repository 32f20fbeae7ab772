package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

func (r *Repository) GetProjectByID(ctx context.Context, id int64) (*domain.Project, error) {
	query := `
		SELECT name, created_at
		FROM projects
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	project := &domain.Project{
		ID: id,
	}

	if err := r.readpool.QueryRowContext(ctx, query, id).Scan(&project.Name, &project.CreatedAt); err != nil {
		return nil, err
	}

	return project, nil
}

func (r *Repository) GetProjectMembers(ctx context.Context, projectID int64) ([]string, error) {
	query := `
		SELECT username
		FROM project_members
		WHERE project_id = $1
		ORDER BY username
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.readpool.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]string, 0)
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, err
		}
		members = append(members, username)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

// GetProjectSettings 返回项目自己的日历设置，项目没有覆盖时返回 sql.ErrNoRows。
// 返回的设置没有经过校验，由调用方决定如何处理非法的设置
func (r *Repository) GetProjectSettings(ctx context.Context, projectID int64) (*domain.CalendarSettings, error) {
	query := `
		SELECT weeks_prior, weeks_after, work_days
		FROM team_calendar_settings
		WHERE project_id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	settings := &domain.CalendarSettings{}
	var workDays []int32

	// database/sql 无法直接扫描数组，需要借助 pgtype.Map
	m := pgtype.NewMap()
	dst := []any{&settings.WeeksPrior, &settings.WeeksAfter, m.SQLScanner(&workDays)}
	if err := r.readpool.QueryRowContext(ctx, query, projectID).Scan(dst...); err != nil {
		return nil, err
	}

	settings.WorkDays = make([]int, len(workDays))
	for i, day := range workDays {
		settings.WorkDays[i] = int(day)
	}

	return settings, nil
}

func (r *Repository) SetProjectSettings(ctx context.Context, projectID int64, settings *domain.CalendarSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConstraintViolation, err)
	}

	query := `
		INSERT INTO team_calendar_settings (project_id, weeks_prior, weeks_after, work_days)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id) DO UPDATE
		SET weeks_prior = EXCLUDED.weeks_prior,
			weeks_after = EXCLUDED.weeks_after,
			work_days = EXCLUDED.work_days
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	workDays := make([]int32, len(settings.WorkDays))
	for i, day := range settings.WorkDays {
		workDays[i] = int32(day)
	}

	if _, err := r.dbpool.ExecContext(ctx, query, projectID, settings.WeeksPrior, settings.WeeksAfter, workDays); err != nil {
		return err
	}

	return nil
}

func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (name)
		VALUES ($1)
		RETURNING id, created_at
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, project.Name).Scan(&project.ID, &project.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) AddProjectMember(ctx context.Context, projectID int64, username string) error {
	query := `
		INSERT INTO project_members (project_id, username)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, projectID, username); err != nil {
		return err
	}

	return nil
}
