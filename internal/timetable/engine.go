package timetable

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

// Store 是引擎需要的持久化能力，由 repository.Repository 实现
type Store interface {
	// FetchRange 可以读只读副本，结果可能落后于主库
	FetchRange(ctx context.Context, projectID int64, from, to civil.Date) ([]domain.AvailabilityRecord, error)
	// FetchRangeFromPrimary 总是读主库
	FetchRangeFromPrimary(ctx context.Context, projectID int64, from, to civil.Date) ([]domain.AvailabilityRecord, error)
	// FetchRangeForUsers 的结果决定插入还是更新，必须读主库
	FetchRangeForUsers(ctx context.Context, projectID int64, from, to civil.Date, users []string) ([]domain.AvailabilityRecord, error)
	Apply(ctx context.Context, projectID int64, inserts, updates []domain.AvailabilityRecord) error
}

type Engine struct {
	store Store
	now   func() time.Time
}

// New 中 now 为 nil 时使用 time.Now
func New(store Store, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}

	return &Engine{
		store: store,
		now:   now,
	}
}

func (e *Engine) Today() civil.Date {
	return civil.DateOf(e.now())
}

// GetTimetable 先按默认工作日填满整个区间，再用数据库中的记录覆盖
func (e *Engine) GetTimetable(ctx context.Context, projectID int64, members []string, policy DefaultDayPolicy, from, to civil.Date) (*domain.Timetable, error) {
	records, err := e.store.FetchRange(ctx, projectID, from, to)
	if err != nil {
		return nil, fmt.Errorf("获取可用度失败: %w", err)
	}

	return buildTimetable(records, members, policy, from, to), nil
}

// GetTimetableFromPrimary 与 GetTimetable 相同，但从主库读取，用于更新之后的回显
func (e *Engine) GetTimetableFromPrimary(ctx context.Context, projectID int64, members []string, policy DefaultDayPolicy, from, to civil.Date) (*domain.Timetable, error) {
	records, err := e.store.FetchRangeFromPrimary(ctx, projectID, from, to)
	if err != nil {
		return nil, fmt.Errorf("获取可用度失败: %w", err)
	}

	return buildTimetable(records, members, policy, from, to), nil
}

func buildTimetable(records []domain.AvailabilityRecord, members []string, policy DefaultDayPolicy, from, to civil.Date) *domain.Timetable {
	timetable := &domain.Timetable{
		FromDate: from,
		ToDate:   to,
		Days:     make([]domain.TimetableDay, 0, max(to.DaysSince(from)+1, 0)),
	}

	for current := from; !current.After(to); current = current.AddDays(1) {
		availability := policy.Availability(current)
		people := make(map[string]decimal.Decimal, len(members))
		for _, member := range members {
			people[member] = availability
		}
		timetable.Days = append(timetable.Days, domain.TimetableDay{Date: current, People: people})
	}

	for _, record := range records {
		if record.Date.Before(from) || record.Date.After(to) {
			continue
		}
		timetable.Days[record.Date.DaysSince(from)].People[record.Username] = record.Availability
	}

	return timetable
}

// UpdateTimetable 把提交的修改与数据库中 [from, to] 的记录比对，只写入真正变化的部分。
// 调用方需要保证 batch 中只包含请求者有权修改的用户。
func (e *Engine) UpdateTimetable(ctx context.Context, projectID int64, batch []domain.AvailabilityRecord, from, to civil.Date) (*Reconciliation, error) {
	rounded := make([]domain.AvailabilityRecord, len(batch))
	users := make([]string, 0)
	seen := make(map[string]struct{})
	for i, record := range batch {
		record.ProjectID = projectID
		record.Availability = record.Availability.RoundBank(2)
		rounded[i] = record

		if _, exists := seen[record.Username]; !exists {
			seen[record.Username] = struct{}{}
			users = append(users, record.Username)
		}
	}

	if len(rounded) == 0 {
		return &Reconciliation{}, nil
	}

	existing, err := e.store.FetchRangeForUsers(ctx, projectID, from, to, users)
	if err != nil {
		return nil, fmt.Errorf("获取已有可用度失败: %w", err)
	}

	res := Reconcile(rounded, existing)

	for _, orphan := range res.Orphans {
		slog.Info("界面与数据库不一致", "project_id", projectID, "date", orphan.Date.String(), "username", orphan.Username)
	}

	if len(res.Inserts) == 0 && len(res.Updates) == 0 {
		return &res, nil
	}

	if err := e.store.Apply(ctx, projectID, res.Inserts, res.Updates); err != nil {
		return nil, fmt.Errorf("写入可用度失败: %w", err)
	}

	return &res, nil
}
