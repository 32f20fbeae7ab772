package seed

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/timetable"
)

// 除日期列以外的信息列
const (
	columnNetID    = "NetID"
	columnFullName = "姓名"
	columnEmail    = "邮箱"
)

type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	AddProjectMember(ctx context.Context, projectID int64, username string) error
}

// ImportAvailability 从 CSV 导入可用度，表头形如 NetID,姓名,邮箱,2024-01-08,2024-01-09,...
// 不存在的用户会被创建并加入项目，空单元格会被跳过。返回写入的记录数
func ImportAvailability(ctx context.Context, store Store, engine *timetable.Engine, projectID int64, r io.Reader) (int, error) {
	reader := csv.NewReader(r)

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("读取表头失败: %w", err)
	}

	dateColumns := make(map[int]civil.Date)
	infoColumns := make(map[string]int)
	var from, to civil.Date
	for i, header := range headers {
		header = strings.TrimSpace(header)
		d, err := civil.ParseDate(header)
		if err != nil {
			// 表示这个是信息列
			infoColumns[header] = i
			continue
		}

		dateColumns[i] = d
		if from.IsZero() || d.Before(from) {
			from = d
		}
		if to.IsZero() || d.After(to) {
			to = d
		}
	}

	if _, ok := infoColumns[columnNetID]; !ok {
		return 0, errors.New("没有找到 NetID 列")
	}
	if len(dateColumns) == 0 {
		return 0, errors.New("没有找到日期列")
	}
	if err := timetable.ValidateInterval(from, to); err != nil {
		return 0, err
	}

	batch := make([]domain.AvailabilityRecord, 0)
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("读取文件失败: %w", err)
		}

		username := strings.TrimSpace(row[infoColumns[columnNetID]])
		if username == "" {
			slog.Error("没有找到NetID", "row", row)
			continue
		}

		if err := ensureMember(ctx, store, projectID, &domain.User{
			Username: username,
			FullName: cell(row, infoColumns, columnFullName),
			Email:    cell(row, infoColumns, columnEmail),
		}); err != nil {
			return 0, err
		}

		for i, d := range dateColumns {
			value := strings.TrimSpace(row[i])
			if value == "" {
				continue
			}

			availability, err := decimal.NewFromString(value)
			if err != nil {
				return 0, fmt.Errorf("用户 %s 在 %s 的可用度 %q 不是合法的数字", username, d, value)
			}

			batch = append(batch, domain.AvailabilityRecord{
				Username:     username,
				Date:         d,
				Availability: availability,
			})
		}
	}

	result, err := engine.UpdateTimetable(ctx, projectID, batch, from, to)
	if err != nil {
		return 0, err
	}

	return len(result.Changed()), nil
}

func cell(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ensureMember 在用户不存在时创建用户，并把用户加入项目
func ensureMember(ctx context.Context, store Store, projectID int64, user *domain.User) error {
	if _, err := store.GetUserByUsername(ctx, user.Username); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("获取用户 %s 失败: %w", user.Username, err)
		}
		if err := store.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("插入用户 %s 失败: %w", user.Username, err)
		}
	}

	if err := store.AddProjectMember(ctx, projectID, user.Username); err != nil {
		return fmt.Errorf("把用户 %s 加入项目失败: %w", user.Username, err)
	}
	return nil
}

// RandomAvailability 为 [from, to] 内每个成员的每一天生成随机可用度
func RandomAvailability(members []string, from, to civil.Date, generate func() decimal.Decimal) []domain.AvailabilityRecord {
	batch := make([]domain.AvailabilityRecord, 0, len(members)*max(to.DaysSince(from)+1, 0))
	for d := from; !d.After(to); d = d.AddDays(1) {
		for _, username := range members {
			batch = append(batch, domain.AvailabilityRecord{
				Username:     username,
				Date:         d,
				Availability: generate(),
			})
		}
	}
	return batch
}
